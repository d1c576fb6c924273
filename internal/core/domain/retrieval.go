package domain

// ScoredPassage is a passage with the scores from both retrieval stages.
type ScoredPassage struct {
	Passage Passage `json:"passage"`

	// VectorScore is the inner product between query and passage embeddings.
	VectorScore float64 `json:"vector_score"`

	// RerankScore is the cross-encoder relevance score. Higher is more relevant;
	// the range depends on the reranking model.
	RerankScore float64 `json:"rerank_score"`
}

// RetrievalResult is the outcome of two-stage search for one query.
type RetrievalResult struct {
	// Query is the text that was searched.
	Query string `json:"query"`

	// Candidates is the number of passages returned by the vector stage.
	Candidates int `json:"candidates"`

	// Passages are ordered by descending rerank score.
	Passages []ScoredPassage `json:"passages"`
}

// IsEmpty reports whether nothing was retrieved.
func (r *RetrievalResult) IsEmpty() bool {
	return r == nil || len(r.Passages) == 0
}

// PassageList returns the bare passages in ranked order.
func (r *RetrievalResult) PassageList() []Passage {
	if r == nil {
		return nil
	}
	out := make([]Passage, len(r.Passages))
	for i := range r.Passages {
		out[i] = r.Passages[i].Passage
	}
	return out
}
