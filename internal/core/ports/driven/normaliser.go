package driven

import "github.com/custodia-labs/policyqa/internal/core/domain"

// Normaliser turns raw page text into a cleaned Document.
// It removes repeated headers and footers and lifts the first page's header
// block into Document.Context.
type Normaliser interface {
	Normalise(fileName string, rawPages []string) domain.Document
}

// Chunker splits a Document into overlapping passages.
type Chunker interface {
	// Split returns context passages first, then each page's passages in order.
	// An empty document yields no passages.
	Split(doc domain.Document) []domain.Passage
}
