package driven

import "context"

// VectorIndex is an inner-product similarity index over fixed-dimension vectors.
// Rows are numbered in insertion order; row i must correspond to passage i of
// the cache entry that owns the index.
type VectorIndex interface {
	// Add appends vectors as new rows.
	Add(ctx context.Context, vectors [][]float32) error

	// Search returns up to k rows with the highest inner product with query,
	// best first. Equal scores keep insertion order.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of rows.
	Len() int

	// Dimension returns the vector size, or 0 for an empty index.
	Dimension() int

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Row is the insertion position of the matched vector.
	Row int

	// Similarity is the inner product; cosine similarity for normalised vectors.
	Similarity float64
}

// VectorIndexFactory returns an empty index whose dimension is fixed by its
// first Add.
type VectorIndexFactory func() VectorIndex
