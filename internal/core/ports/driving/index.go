package driving

import (
	"context"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// IndexService builds the searchable representation of a document.
type IndexService interface {
	// Build runs the full pipeline for a file and persists the result,
	// replacing any existing cache entry.
	Build(ctx context.Context, path string) (*domain.BuildSummary, error)

	// Ensure loads the cache for a file and builds it when it is missing,
	// corrupted or was made with a different embedding model. The summary
	// is nil when the existing cache was used.
	Ensure(ctx context.Context, path string) (*domain.BuildSummary, error)
}

// CacheService inspects and clears per-document caches.
type CacheService interface {
	// Status reports the cache state for one source file.
	Status(path string) domain.CacheInfo

	// List describes every cache entry.
	List() ([]domain.CacheInfo, error)

	// Clear removes the cache entry for a source file.
	Clear(path string) error
}
