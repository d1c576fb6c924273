package services

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policyqa/internal/adapters/driven/storage/cache"
	"github.com/custodia-labs/policyqa/internal/core/domain"
)

func TestIndexService_Build(t *testing.T) {
	h := newHarness(t, policyPages())

	summary, err := h.index.Build(context.Background(), h.path)

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "Health Policy (2024).pdf", summary.FileName)
	assert.Equal(t, "Health Policy 2024.pdf_cache", summary.CacheKey)
	assert.Equal(t, 5, summary.Pages)
	assert.Equal(t, 6, summary.Passages, "one header passage and one per page")
	assert.True(t, summary.HasContext)
	assert.True(t, summary.Persisted())
	assert.True(t, h.store.Exists(h.path))
}

func TestIndexService_BuildEntry_RowsMatchPassages(t *testing.T) {
	h := newHarness(t, policyPages())

	entry, _, err := h.index.BuildEntry(context.Background(), h.path)
	require.NoError(t, err)

	require.Equal(t, len(entry.Passages), entry.Index.Len())
	assert.Equal(t, "vocab-test", entry.Model)
	assert.Equal(t, domain.DocumentHeaderPage, entry.Passages[0].Metadata.Page)
	assert.Equal(t, "POLICY DOCUMENT", entry.Passages[0].Content)

	// Each passage is its own nearest neighbour: row i is passage i.
	for i, p := range entry.Passages {
		vec, err := h.embedder.Embed(context.Background(), p.Content)
		require.NoError(t, err)
		hits, err := entry.Index.Search(context.Background(), normalise(vec), 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, i, hits[0].Row, "passage %d", i)
		assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	}
}

func TestIndexService_Build_HeaderRemovedFromPages(t *testing.T) {
	h := newHarness(t, policyPages())

	entry, _, err := h.index.BuildEntry(context.Background(), h.path)
	require.NoError(t, err)

	for _, p := range entry.Passages[1:] {
		assert.NotContains(t, p.Content, "POLICY DOCUMENT", "page %s", p.Metadata.PageLabel())
	}
}

func TestIndexService_Build_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(h *harness)
		wantErr error
	}{
		{
			name: "extraction failure",
			setup: func(h *harness) {
				h.extractor.err = errors.New("not a PDF")
			},
			wantErr: domain.ErrExtractionFailed,
		},
		{
			name: "no text",
			setup: func(h *harness) {
				h.extractor.pages = []string{"", "   \n  "}
			},
			wantErr: domain.ErrEmptyInput,
		},
		{
			name: "embedding failure",
			setup: func(h *harness) {
				h.embedder.err = errors.New("connection refused")
			},
			wantErr: domain.ErrCollaborator,
		},
		{
			name: "embedding count mismatch",
			setup: func(h *harness) {
				h.embedder.short = true
			},
			wantErr: domain.ErrCollaborator,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, policyPages())
			tt.setup(h)

			summary, err := h.index.Build(context.Background(), h.path)

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Nil(t, summary)
			assert.False(t, h.store.Exists(h.path), "failed builds write no cache")
		})
	}
}

func TestIndexService_Build_NoEmbedder(t *testing.T) {
	h := newHarness(t, policyPages())
	h.index.embedder = nil

	_, err := h.index.Build(context.Background(), h.path)

	assert.True(t, errors.Is(err, domain.ErrCollaborator))
	assert.True(t, errors.Is(err, domain.ErrEmbeddingUnavailable))
}

func TestIndexService_Build_SaveFailureKeepsEntry(t *testing.T) {
	h := newHarness(t, policyPages())

	// A file where the cache root should be makes every save fail.
	blocker := filepath.Join(t.TempDir(), "root")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))
	store, err := cache.NewStore(blocker)
	require.NoError(t, err)
	h.index.cache = store

	entry, summary, err := h.index.BuildEntry(context.Background(), h.path)

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Error(t, summary.SaveErr)
	assert.False(t, summary.Persisted())
	assert.Equal(t, len(entry.Passages), entry.Index.Len())
}

func TestIndexService_Ensure(t *testing.T) {
	ctx := context.Background()

	t.Run("builds when missing then loads", func(t *testing.T) {
		h := newHarness(t, policyPages())

		summary, err := h.index.Ensure(ctx, h.path)
		require.NoError(t, err)
		require.NotNil(t, summary)
		assert.Equal(t, 1, h.extractor.calls)

		summary, err = h.index.Ensure(ctx, h.path)
		require.NoError(t, err)
		assert.Nil(t, summary, "second call uses the cache")
		assert.Equal(t, 1, h.extractor.calls)
	})

	t.Run("rebuilds when an artifact is missing", func(t *testing.T) {
		h := newHarness(t, policyPages())
		_, err := h.index.Build(ctx, h.path)
		require.NoError(t, err)

		require.NoError(t, os.Remove(filepath.Join(h.store.Dir(h.path), cache.IndexFile)))
		assert.False(t, h.store.Exists(h.path))

		entry, summary, err := h.index.EnsureEntry(ctx, h.path)

		require.NoError(t, err)
		require.NotNil(t, summary, "a partial cache is rebuilt, not loaded")
		assert.Equal(t, 2, h.extractor.calls)
		assert.Equal(t, len(entry.Passages), entry.Index.Len())
		assert.True(t, h.store.Exists(h.path))
	})

	t.Run("rebuilds when corrupted", func(t *testing.T) {
		h := newHarness(t, policyPages())
		_, err := h.index.Build(ctx, h.path)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(filepath.Join(h.store.Dir(h.path), cache.IndexFile), []byte("garbage"), 0600))

		_, summary, err := h.index.EnsureEntry(ctx, h.path)

		require.NoError(t, err)
		assert.NotNil(t, summary)
		assert.Equal(t, 2, h.extractor.calls)
	})

	t.Run("rebuilds when the embedding model changed", func(t *testing.T) {
		h := newHarness(t, policyPages())
		_, err := h.index.Build(ctx, h.path)
		require.NoError(t, err)

		h.embedder.model = "another-model"
		_, summary, err := h.index.EnsureEntry(ctx, h.path)

		require.NoError(t, err)
		assert.NotNil(t, summary)
		assert.Equal(t, 2, h.extractor.calls)
	})

	t.Run("build failure is returned", func(t *testing.T) {
		h := newHarness(t, policyPages())
		h.extractor.err = errors.New("encrypted")

		_, err := h.index.Ensure(ctx, h.path)

		assert.True(t, errors.Is(err, domain.ErrExtractionFailed))
	})
}

func TestNormalise(t *testing.T) {
	v := normalise([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	var sum float64
	for _, x := range normalise([]float32{1, 2, 3, 4, 5}) {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)

	zero := []float32{0, 0}
	assert.Equal(t, zero, normalise(zero))
}
