// Package normalisers holds the text normalisation stage of the index
// pipeline. Normalisers receive raw extracted text and return a
// domain.Document that is ready for chunking.
//
// Sub-packages:
//   - pages: per-page PDF text cleanup with header and footer removal
package normalisers
