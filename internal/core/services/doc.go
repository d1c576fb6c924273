// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - IndexService: extract, normalise, chunk, embed and cache one PDF
//   - RetrievalService: vector recall followed by cross-encoder rerank
//   - AnswerService: prompt the language model for a claims verdict
//   - Conversation: the clarification state machine
//   - ChatService: sessions that tie the above together
//   - SettingsService, CacheService: configuration and cache housekeeping
//
// Services are pure Go with no CGO or external dependencies.
package services
