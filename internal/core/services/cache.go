package services

import (
	"fmt"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
)

// Ensure CacheService implements the interface.
var _ driving.CacheService = (*CacheService)(nil)

// CacheService inspects and clears per-document caches.
type CacheService struct {
	store driven.CacheStore
}

// NewCacheService creates a new cache service.
func NewCacheService(store driven.CacheStore) *CacheService {
	return &CacheService{store: store}
}

// Status reports the cache state for one source file.
func (s *CacheService) Status(path string) domain.CacheInfo {
	return s.store.Info(path)
}

// List describes every cache entry.
func (s *CacheService) List() ([]domain.CacheInfo, error) {
	infos, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	return infos, nil
}

// Clear removes the cache entry for a source file.
// A file that was never indexed yields an error wrapping domain.ErrNotFound.
func (s *CacheService) Clear(path string) error {
	if err := s.store.Remove(path); err != nil {
		return fmt.Errorf("clear cache for %s: %w", s.store.Key(path), err)
	}
	return nil
}
