package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// Index build errors.

	// ErrExtractionFailed indicates the source PDF could not be opened or read.
	// It aborts the index build; no cache is written.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrEmptyInput indicates there is no text to embed.
	ErrEmptyInput = errors.New("no text to index")

	// Cache errors.

	// ErrCacheMiss indicates an expected cache artifact is absent.
	ErrCacheMiss = errors.New("cache not found")

	// ErrCacheCorrupted indicates a cache artifact exists but cannot be decoded.
	ErrCacheCorrupted = errors.New("cache corrupted")

	// Collaborator errors.

	// ErrCollaborator indicates an embedding, rerank or language model call failed.
	ErrCollaborator = errors.New("collaborator call failed")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRerankerUnavailable indicates the reranking service is not configured.
	ErrRerankerUnavailable = errors.New("reranker unavailable")

	// ErrDimensionMismatch indicates a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
