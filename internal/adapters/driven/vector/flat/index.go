package flat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// ErrClosed is returned by operations on a closed index.
var ErrClosed = errors.New("flat: index is closed")

// Index holds vectors row-major in a single slice.
type Index struct {
	mu        sync.RWMutex
	data      []float32
	dimension int
	rows      int
	closed    bool
}

// New creates an empty index. A dimension of 0 is fixed by the first Add.
func New(dimension int) *Index {
	if dimension < 0 {
		dimension = 0
	}
	return &Index{dimension: dimension}
}

// Add appends vectors as new rows.
func (idx *Index) Add(_ context.Context, vectors [][]float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return ErrClosed
	}
	if len(vectors) == 0 {
		return nil
	}

	dim := idx.dimension
	if dim == 0 {
		dim = len(vectors[0])
		if dim == 0 {
			return errors.New("flat: vectors must not be empty")
		}
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("flat: vector %d has %d dimensions, want %d: %w",
				i, len(v), dim, domain.ErrDimensionMismatch)
		}
	}

	idx.dimension = dim
	for _, v := range vectors {
		idx.data = append(idx.data, v...)
	}
	idx.rows += len(vectors)
	return nil
}

// Search finds the k rows with the highest inner product with query.
// Ties keep insertion order.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, ErrClosed
	}
	if k <= 0 || idx.rows == 0 {
		return nil, nil
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("flat: query has %d dimensions, want %d: %w",
			len(query), idx.dimension, domain.ErrDimensionMismatch)
	}

	hits := make([]driven.VectorHit, idx.rows)
	for row := 0; row < idx.rows; row++ {
		hits[row] = driven.VectorHit{
			Row:        row,
			Similarity: dot(query, idx.data[row*idx.dimension:(row+1)*idx.dimension]),
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Vector returns a copy of the vector stored at row.
func (idx *Index) Vector(row int) ([]float32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if row < 0 || row >= idx.rows {
		return nil, false
	}
	v := make([]float32, idx.dimension)
	copy(v, idx.data[row*idx.dimension:])
	return v, true
}

// Len returns the number of rows.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.rows
}

// Dimension returns the vector size.
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

// Close releases the stored vectors.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.data = nil
	idx.closed = true
	return nil
}

// dot accumulates in float64 so scores do not depend on summation drift.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
