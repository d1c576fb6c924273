package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
	"github.com/custodia-labs/policyqa/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService turns a PDF into a cached, searchable entry.
type IndexService struct {
	extractor  driven.Extractor
	normaliser driven.Normaliser
	chunker    driven.Chunker
	embedder   driven.EmbeddingService
	cache      driven.CacheStore
	newIndex   driven.VectorIndexFactory
}

// NewIndexService creates a new index service.
// The embedder may be nil; builds then fail with domain.ErrEmbeddingUnavailable.
func NewIndexService(
	extractor driven.Extractor,
	normaliser driven.Normaliser,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	cache driven.CacheStore,
	newIndex driven.VectorIndexFactory,
) *IndexService {
	return &IndexService{
		extractor:  extractor,
		normaliser: normaliser,
		chunker:    chunker,
		embedder:   embedder,
		cache:      cache,
		newIndex:   newIndex,
	}
}

// Build runs the full pipeline for a file and persists the result.
func (s *IndexService) Build(ctx context.Context, path string) (*domain.BuildSummary, error) {
	_, summary, err := s.BuildEntry(ctx, path)
	return summary, err
}

// Ensure loads the cache for a file, building it when needed.
func (s *IndexService) Ensure(ctx context.Context, path string) (*domain.BuildSummary, error) {
	_, summary, err := s.EnsureEntry(ctx, path)
	return summary, err
}

// BuildEntry is Build that also returns the in-memory entry.
// The entry stays usable when only the save failed; see BuildSummary.SaveErr.
func (s *IndexService) BuildEntry(
	ctx context.Context, path string,
) (*driven.CacheEntry, *domain.BuildSummary, error) {
	logger.Section("Index Build")
	logger.Debug("Source: %s (extractor %s)", path, s.extractor.Name())

	done := logger.Stage("extract text")
	raw, err := s.extractor.Extract(ctx, path)
	done()
	if err != nil {
		if !errors.Is(err, domain.ErrExtractionFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
		}
		return nil, nil, fmt.Errorf("build index for %s: %w", filepath.Base(path), err)
	}

	done = logger.Stage("normalise pages")
	doc := s.normaliser.Normalise(filepath.Base(path), raw)
	done()
	logger.Debug("%d of %d pages kept, header block %q", len(doc.Pages), len(raw), doc.Context)

	done = logger.Stage("split passages")
	passages := s.chunker.Split(doc)
	done()
	if len(passages) == 0 {
		return nil, nil, fmt.Errorf("build index for %s: %w", doc.FileName, domain.ErrEmptyInput)
	}
	logger.Debug("%d passages", len(passages))

	index, err := s.embedPassages(ctx, passages)
	if err != nil {
		return nil, nil, fmt.Errorf("build index for %s: %w", doc.FileName, err)
	}

	entry := &driven.CacheEntry{
		Index:    index,
		Passages: passages,
		Model:    s.embedder.ModelName(),
	}
	summary := &domain.BuildSummary{
		FileName:   doc.FileName,
		CacheKey:   s.cache.Key(path),
		Pages:      len(doc.Pages),
		Passages:   len(passages),
		HasContext: doc.Context != "",
	}

	done = logger.Stage("save cache")
	if err := s.cache.Save(ctx, path, entry); err != nil {
		summary.SaveErr = err
		logger.Warn("index for %s built but not saved, it will be rebuilt next time: %v", doc.FileName, err)
	}
	done()

	return entry, summary, nil
}

// EnsureEntry loads the cached entry for path. A missing or corrupted cache,
// or one embedded with a different model, is rebuilt. The summary is nil when
// the cache was used as is.
func (s *IndexService) EnsureEntry(
	ctx context.Context, path string,
) (*driven.CacheEntry, *domain.BuildSummary, error) {
	result := s.cache.Load(ctx, path)

	switch result.Status {
	case domain.CacheFound:
		if reason := s.stale(result.Entry); reason != "" {
			logger.Warn("rebuilding index for %s: %s", filepath.Base(path), reason)
			result.Entry.Index.Close()
			return s.BuildEntry(ctx, path)
		}
		logger.Debug("loaded %d passages for %s from cache", len(result.Entry.Passages), filepath.Base(path))
		return result.Entry, nil, nil

	case domain.CacheCorrupted:
		logger.Warn("cache for %s is unreadable, rebuilding: %v", filepath.Base(path), result.Err)

	default:
		logger.Info("no cache for %s, building index", filepath.Base(path))
	}

	return s.BuildEntry(ctx, path)
}

// stale explains why a loaded entry cannot serve the current embedder.
func (s *IndexService) stale(entry *driven.CacheEntry) string {
	if s.embedder == nil {
		return ""
	}
	if entry.Model != "" && entry.Model != s.embedder.ModelName() {
		return fmt.Sprintf("it was embedded with %s, now using %s", entry.Model, s.embedder.ModelName())
	}
	if dims := s.embedder.Dimensions(); dims > 0 && entry.Index.Dimension() > 0 && dims != entry.Index.Dimension() {
		return fmt.Sprintf("vector size %d does not match model size %d", entry.Index.Dimension(), dims)
	}
	return ""
}

// embedPassages embeds every passage and loads the normalised vectors into a
// fresh index whose row i is passage i.
func (s *IndexService) embedPassages(ctx context.Context, passages []domain.Passage) (driven.VectorIndex, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCollaborator, domain.ErrEmbeddingUnavailable)
	}

	texts := make([]string, len(passages))
	for i := range passages {
		texts[i] = passages[i].Content
	}

	done := logger.Stage("embed passages")
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	done()
	if err != nil {
		return nil, fmt.Errorf("embed passages: %w: %w", domain.ErrCollaborator, err)
	}
	if len(vectors) != len(passages) {
		return nil, fmt.Errorf("embed passages: %w: got %d vectors for %d passages",
			domain.ErrCollaborator, len(vectors), len(passages))
	}
	for i := range vectors {
		vectors[i] = normalise(vectors[i])
	}

	index := s.newIndex()
	if err := index.Add(ctx, vectors); err != nil {
		index.Close()
		return nil, fmt.Errorf("add vectors: %w", err)
	}
	return index, nil
}

// normalise scales v to unit length so inner product equals cosine similarity.
// A zero vector is returned unchanged.
func normalise(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
