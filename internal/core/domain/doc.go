// Package domain defines the core business entities for policyqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document, Page: a normalised PDF
//   - Passage: a retrievable span of text with page metadata
//   - RetrievalResult: reranked passages for one query
//   - Verdict: the language model's structured answer
//   - Phase, Reply: chat session state and output
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
