package mcp

import (
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval runs two-stage search over the document.
	Retrieval driving.RetrievalService

	// Answer produces verdicts. Without it the ask tool is not offered.
	Answer driving.AnswerService

	// Cache describes the document's cache entry. Optional.
	Cache driving.CacheService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
