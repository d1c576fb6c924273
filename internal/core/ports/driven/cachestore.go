package driven

import (
	"context"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// CacheEntry is a similarity index with its parallel passage sequence.
// Index row i is passage i; the two are only valid together.
type CacheEntry struct {
	Index    VectorIndex
	Passages []domain.Passage

	// Model names the embedding model that produced the vectors.
	// Empty when unknown.
	Model string
}

// CacheLoadResult is the typed outcome of CacheStore.Load.
// Entry is set only when Status is domain.CacheFound.
type CacheLoadResult struct {
	Status domain.CacheStatus
	Entry  *CacheEntry

	// Err describes why the load did not succeed.
	Err error
}

// CacheStore persists one CacheEntry per source document.
type CacheStore interface {
	// Key derives the cache directory name for a source path.
	Key(sourcePath string) string

	// Exists reports whether both artifacts are present for the source.
	Exists(sourcePath string) bool

	// Save writes both artifacts, creating the directory when needed.
	// A failure may leave a partially written entry behind.
	Save(ctx context.Context, sourcePath string, entry *CacheEntry) error

	// Load reads both artifacts. It never returns an error; failures are
	// reported through the result status.
	Load(ctx context.Context, sourcePath string) CacheLoadResult

	// Remove deletes the cache directory for the source.
	Remove(sourcePath string) error

	// Info describes the cache directory for one source.
	Info(sourcePath string) domain.CacheInfo

	// List describes every cache directory under the root.
	List() ([]domain.CacheInfo, error)
}
