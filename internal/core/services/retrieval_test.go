package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policyqa/internal/adapters/driven/storage/cache"
	"github.com/custodia-labs/policyqa/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

func TestRetrievalService_KneeSurgeryScenario(t *testing.T) {
	h := newHarness(t, policyPages())
	_, err := h.index.Build(context.Background(), h.path)
	require.NoError(t, err)

	result, err := h.retrieval.Retrieve(context.Background(), h.path, "Is knee surgery covered?")

	require.NoError(t, err)
	require.False(t, result.IsEmpty())
	assert.Equal(t, 4, result.Passages[0].Passage.Metadata.Page)
	assert.Contains(t, result.Passages[0].Passage.Content, "knee surgery")
	for _, p := range result.Passages {
		assert.NotContains(t, p.Passage.Content, "POLICY DOCUMENT")
	}
	assert.LessOrEqual(t, len(result.Passages), 3)
	assert.Equal(t, 6, result.Candidates)
	assert.Equal(t, 6, h.reranker.pairs, "every candidate is reranked")
}

func TestRetrievalService_Retrieve_CacheFailures(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		h := newHarness(t, policyPages())

		result, err := h.retrieval.Retrieve(context.Background(), h.path, "knee")

		assert.Nil(t, result)
		assert.True(t, errors.Is(err, domain.ErrCacheMiss), "got %v", err)
		assert.Zero(t, h.reranker.calls)
	})

	t.Run("corrupted", func(t *testing.T) {
		h := newHarness(t, policyPages())
		_, err := h.index.Build(context.Background(), h.path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(h.store.Dir(h.path), cache.PassagesFile), []byte("garbage"), 0600))

		result, err := h.retrieval.Retrieve(context.Background(), h.path, "knee")

		assert.Nil(t, result)
		assert.True(t, errors.Is(err, domain.ErrCacheCorrupted), "got %v", err)
	})
}

func TestRetrievalService_Search_Errors(t *testing.T) {
	h := newHarness(t, policyPages())
	entry, _, err := h.index.BuildEntry(context.Background(), h.path)
	require.NoError(t, err)

	tests := []struct {
		name    string
		svc     *RetrievalService
		entry   *driven.CacheEntry
		query   string
		wantErr error
	}{
		{
			name:    "empty query",
			svc:     h.retrieval,
			entry:   entry,
			query:   "   ",
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "no entry",
			svc:     h.retrieval,
			query:   "knee",
			wantErr: domain.ErrCacheMiss,
		},
		{
			name:    "no reranker",
			svc:     NewRetrievalService(h.store, h.embedder, nil, domain.RetrievalSettings{}),
			entry:   entry,
			query:   "knee",
			wantErr: domain.ErrRerankerUnavailable,
		},
		{
			name:    "no embedder",
			svc:     NewRetrievalService(h.store, nil, h.reranker, domain.RetrievalSettings{}),
			entry:   entry,
			query:   "knee",
			wantErr: domain.ErrEmbeddingUnavailable,
		},
		{
			name:    "reranker failure",
			svc:     NewRetrievalService(h.store, h.embedder, &keywordReranker{err: errors.New("503")}, domain.RetrievalSettings{}),
			entry:   entry,
			query:   "knee",
			wantErr: domain.ErrCollaborator,
		},
		{
			name: "embedder failure",
			svc: NewRetrievalService(h.store, &vocabEmbedder{vocab: map[string]int{}, err: errors.New("timeout")},
				h.reranker, domain.RetrievalSettings{}),
			entry:   entry,
			query:   "knee",
			wantErr: domain.ErrCollaborator,
		},
		{
			name:  "row without passage",
			svc:   h.retrieval,
			entry: &driven.CacheEntry{Index: entry.Index, Passages: entry.Passages[:1]},
			query: "knee surgery covered",
			// The index has more rows than the truncated passage list.
			wantErr: domain.ErrCacheCorrupted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.svc.Search(context.Background(), tt.entry, tt.query)

			assert.Nil(t, result)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

// randomReranker returns reproducible pseudo-random scores with many ties.
type randomReranker struct {
	rng *rand.Rand
}

func (r *randomReranker) Score(_ context.Context, pairs []driven.RerankPair) ([]float64, error) {
	out := make([]float64, len(pairs))
	for i := range out {
		out[i] = float64(r.rng.Intn(5))
	}
	return out, nil
}

func (r *randomReranker) ModelName() string            { return "random" }
func (r *randomReranker) Ping(_ context.Context) error { return nil }
func (r *randomReranker) Close() error                 { return nil }

func TestRetrievalService_RankingProperties(t *testing.T) {
	// Letters rather than digits keep every line distinct after the
	// normaliser strips digits for header detection.
	raw := make([]string, 40)
	for i := range raw {
		name := string(rune('a'+i%26)) + string(rune('a'+i/26))
		raw[i] = fmt.Sprintf("Clause %s covers group%c and shared terms about claims.", name, rune('a'+i%7))
	}
	h := newHarness(t, raw)
	entry, _, err := h.index.BuildEntry(context.Background(), h.path)
	require.NoError(t, err)

	settings := []domain.RetrievalSettings{
		{InitialK: 15, FinalK: 3},
		{InitialK: 5, FinalK: 5},
		{InitialK: 4, FinalK: 10},
		{InitialK: 100, FinalK: 7},
		{},
	}

	for _, s := range settings {
		t.Run(fmt.Sprintf("initial=%d final=%d", s.InitialK, s.FinalK), func(t *testing.T) {
			svc := NewRetrievalService(h.store, h.embedder, &randomReranker{rng: rand.New(rand.NewSource(7))}, s)
			eff := svc.Settings()
			require.LessOrEqual(t, eff.FinalK, eff.InitialK)

			query := "claims about groupd"
			result, err := svc.Search(context.Background(), entry, query)
			require.NoError(t, err)

			// Stage-one candidates for the same query.
			vec, err := h.embedder.Embed(context.Background(), query)
			require.NoError(t, err)
			hits, err := entry.Index.Search(context.Background(), normalise(vec), eff.InitialK)
			require.NoError(t, err)
			candidates := make(map[string]bool)
			for _, hit := range hits {
				candidates[entry.Passages[hit.Row].ID] = true
			}

			assert.Equal(t, len(hits), result.Candidates)
			assert.LessOrEqual(t, len(result.Passages), eff.FinalK)
			for i, p := range result.Passages {
				assert.True(t, candidates[p.Passage.ID], "passage %d is a stage-one candidate", i)
				if i > 0 {
					assert.GreaterOrEqual(t, result.Passages[i-1].RerankScore, p.RerankScore)
				}
			}
		})
	}
}

func TestRetrievalService_StableOnTies(t *testing.T) {
	idx := flat.New(0)
	require.NoError(t, idx.Add(context.Background(), [][]float32{{1, 0}, {0.9, 0.1}, {0.8, 0.2}}))
	entry := &driven.CacheEntry{
		Index: idx,
		Passages: []domain.Passage{
			{ID: "a", Content: "alpha"},
			{ID: "b", Content: "bravo"},
			{ID: "c", Content: "charlie"},
		},
	}
	embedder := &fixedEmbedder{vec: []float32{1, 0}}
	svc := NewRetrievalService(nil, embedder, &keywordReranker{}, domain.RetrievalSettings{InitialK: 3, FinalK: 3})

	result, err := svc.Search(context.Background(), entry, "zzzz")

	require.NoError(t, err)
	ids := []string{}
	for _, p := range result.Passages {
		ids = append(ids, p.Passage.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids, "equal rerank scores keep vector order")
}

// fixedEmbedder returns the same vector for every text.
type fixedEmbedder struct {
	vec []float32
}

func (e *fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) { return e.vec, nil }
func (e *fixedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = e.vec
	}
	return out, nil
}
func (e *fixedEmbedder) Dimensions() int              { return len(e.vec) }
func (e *fixedEmbedder) ModelName() string            { return "fixed" }
func (e *fixedEmbedder) Ping(_ context.Context) error { return nil }
func (e *fixedEmbedder) Close() error                 { return nil }
