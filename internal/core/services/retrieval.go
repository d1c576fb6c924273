package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
	"github.com/custodia-labs/policyqa/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService runs two-stage search: inner-product recall over the
// vector index, then cross-encoder rerank of every candidate.
type RetrievalService struct {
	cache    driven.CacheStore
	embedder driven.EmbeddingService
	reranker driven.Reranker
	settings domain.RetrievalSettings
}

// NewRetrievalService creates a new retrieval service.
// Settings are normalised so that 0 < FinalK <= InitialK.
func NewRetrievalService(
	cache driven.CacheStore,
	embedder driven.EmbeddingService,
	reranker driven.Reranker,
	settings domain.RetrievalSettings,
) *RetrievalService {
	return &RetrievalService{
		cache:    cache,
		embedder: embedder,
		reranker: reranker,
		settings: settings.Normalise(),
	}
}

// Settings returns the effective candidate counts.
func (s *RetrievalService) Settings() domain.RetrievalSettings {
	return s.settings
}

// Retrieve loads the cache for path and searches it.
func (s *RetrievalService) Retrieve(ctx context.Context, path, query string) (*domain.RetrievalResult, error) {
	loaded := s.cache.Load(ctx, path)
	if loaded.Status != domain.CacheFound {
		err := loaded.Err
		if err == nil {
			err = loaded.Status.Err()
		}
		return nil, fmt.Errorf("retrieve from %s: %w", filepath.Base(path), err)
	}
	defer loaded.Entry.Index.Close()

	return s.Search(ctx, loaded.Entry, query)
}

// Search runs both stages against an entry already in memory.
// The result holds at most FinalK passages in descending rerank order.
func (s *RetrievalService) Search(
	ctx context.Context, entry *driven.CacheEntry, query string,
) (*domain.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if entry == nil || entry.Index == nil {
		return nil, fmt.Errorf("%w: no index loaded", domain.ErrCacheMiss)
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCollaborator, domain.ErrEmbeddingUnavailable)
	}
	if s.reranker == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCollaborator, domain.ErrRerankerUnavailable)
	}

	logger.Section("Retrieval")
	logger.Debug("Query: %q (initial %d, final %d)", query, s.settings.InitialK, s.settings.FinalK)

	candidates, err := s.recall(ctx, entry, query)
	if err != nil {
		return nil, err
	}
	result := &domain.RetrievalResult{Query: query, Candidates: len(candidates)}
	if len(candidates) == 0 {
		return result, nil
	}

	if err := s.rerank(ctx, query, candidates); err != nil {
		return nil, err
	}

	if len(candidates) > s.settings.FinalK {
		candidates = candidates[:s.settings.FinalK]
	}
	result.Passages = candidates

	for i, c := range candidates {
		logger.Debug("  %d. page %s chunk %d rerank=%.4f vector=%.4f",
			i+1, c.Passage.Metadata.PageLabel(), c.Passage.Metadata.ChunkNumber, c.RerankScore, c.VectorScore)
	}
	return result, nil
}

// recall embeds the query and returns the InitialK nearest passages.
func (s *RetrievalService) recall(
	ctx context.Context, entry *driven.CacheEntry, query string,
) ([]domain.ScoredPassage, error) {
	done := logger.Stage("embed query")
	vec, err := s.embedder.Embed(ctx, query)
	done()
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", domain.ErrCollaborator, err)
	}

	done = logger.Stage("vector search")
	hits, err := entry.Index.Search(ctx, normalise(vec), s.settings.InitialK)
	done()
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	out := make([]domain.ScoredPassage, 0, len(hits))
	for _, hit := range hits {
		if hit.Row < 0 || hit.Row >= len(entry.Passages) {
			return nil, fmt.Errorf("%w: index row %d has no passage (%d passages)",
				domain.ErrCacheCorrupted, hit.Row, len(entry.Passages))
		}
		out = append(out, domain.ScoredPassage{
			Passage:     entry.Passages[hit.Row],
			VectorScore: hit.Similarity,
		})
	}
	return out, nil
}

// rerank scores every candidate and stable-sorts by rerank score, so equal
// scores keep their vector order.
func (s *RetrievalService) rerank(ctx context.Context, query string, candidates []domain.ScoredPassage) error {
	pairs := make([]driven.RerankPair, len(candidates))
	for i := range candidates {
		pairs[i] = driven.RerankPair{Query: query, Passage: candidates[i].Passage.Content}
	}

	done := logger.Stage("rerank")
	scores, err := s.reranker.Score(ctx, pairs)
	done()
	if err != nil {
		return fmt.Errorf("rerank: %w: %w", domain.ErrCollaborator, err)
	}
	if len(scores) != len(candidates) {
		return fmt.Errorf("rerank: %w: got %d scores for %d passages",
			domain.ErrCollaborator, len(scores), len(candidates))
	}

	for i := range candidates {
		candidates[i].RerankScore = scores[i]
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RerankScore > candidates[j].RerankScore
	})
	return nil
}
