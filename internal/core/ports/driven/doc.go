// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Index Build
//
//   - Extractor: Pulls raw per-page text out of a PDF
//   - Normaliser: Cleans pages and detects the document context
//   - Chunker: Splits a document into passages
//   - EmbeddingService: Maps text to vectors
//   - VectorIndex: Inner-product similarity index
//   - CacheStore: Per-document persistence of index and passages
//
// # Query Time
//
//   - Reranker: Cross-encoder scoring of (query, passage) pairs
//   - LLMService: Prompt completion for the verdict
//   - PromptStore: User-editable prompt templates
//   - SourceWatcher: Optional change notification for the source PDF
//
// # Configuration
//
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
