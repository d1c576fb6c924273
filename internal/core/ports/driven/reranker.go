package driven

import "context"

// RerankPair is one (query, passage) pair to score.
type RerankPair struct {
	Query   string
	Passage string
}

// Reranker scores (query, passage) pairs with a cross-encoder.
// Scores are higher for more relevant pairs; no fixed range is guaranteed.
type Reranker interface {
	// Score returns one score per pair, in input order.
	Score(ctx context.Context, pairs []RerankPair) ([]float64, error)

	// ModelName returns the name of the reranking model.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
