package driving

import (
	"context"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// RetrievalService finds the passages most relevant to a query.
type RetrievalService interface {
	// Retrieve loads the cache for path and runs two-stage search.
	// A missing or corrupted cache yields no result and an error wrapping
	// domain.ErrCacheMiss or domain.ErrCacheCorrupted.
	Retrieve(ctx context.Context, path, query string) (*domain.RetrievalResult, error)
}

// AnswerService asks the language model for a verdict over retrieved passages.
type AnswerService interface {
	// Answer never fails; collaborator problems come back as error verdicts.
	Answer(ctx context.Context, query string, passages []domain.Passage) domain.Verdict
}
