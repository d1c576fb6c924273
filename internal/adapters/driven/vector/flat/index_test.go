package flat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.VectorIndex = (*Index)(nil)
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx := New(0)
	require.NoError(t, idx.Add(context.Background(), [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.6, 0.8, 0},
		{0, 0, 1},
	}))
	return idx
}

func TestAdd_FixesDimension(t *testing.T) {
	idx := newTestIndex(t)
	assert.Equal(t, 3, idx.Dimension())
	assert.Equal(t, 4, idx.Len())

	err := idx.Add(context.Background(), [][]float32{{1, 2}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 4, idx.Len(), "failed add must not change the index")
}

func TestAdd_RejectsMixedBatch(t *testing.T) {
	idx := New(0)
	err := idx.Add(context.Background(), [][]float32{{1, 0}, {1, 0, 0}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Zero(t, idx.Len())
}

func TestSearch_OrdersBySimilarity(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), []float32{0.8, 0.6, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, 2, hits[0].Row)
	assert.InDelta(t, 0.96, hits[0].Similarity, 1e-6)
	assert.Equal(t, 0, hits[1].Row)
	assert.InDelta(t, 0.8, hits[1].Similarity, 1e-6)
	assert.Equal(t, 1, hits[2].Row)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	idx := New(2)
	require.NoError(t, idx.Add(context.Background(), [][]float32{
		{1, 0}, {0, 1}, {1, 0}, {1, 0},
	}))

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []int{0, 2, 3}, []int{hits[0].Row, hits[1].Row, hits[2].Row})
}

func TestSearch_KLargerThanIndex(t *testing.T) {
	idx := newTestIndex(t)
	hits, err := idx.Search(context.Background(), []float32{0, 0, 1}, 50)
	require.NoError(t, err)
	assert.Len(t, hits, 4)
	assert.Equal(t, 3, hits[0].Row)
}

func TestSearch_EdgeCases(t *testing.T) {
	ctx := context.Background()

	hits, err := New(3).Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	idx := newTestIndex(t)
	hits, err = idx.Search(ctx, []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = idx.Search(ctx, []float32{1, 0}, 2)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestVector(t *testing.T) {
	idx := newTestIndex(t)

	v, ok := idx.Vector(2)
	require.True(t, ok)
	assert.Equal(t, []float32{0.6, 0.8, 0}, v)

	v[0] = 42
	again, _ := idx.Vector(2)
	assert.Equal(t, float32(0.6), again[0], "Vector must return a copy")

	_, ok = idx.Vector(4)
	assert.False(t, ok)
}

func TestClose(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Close())

	_, err := idx.Search(context.Background(), []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, idx.Add(context.Background(), [][]float32{{1, 0, 0}}), ErrClosed)
}
