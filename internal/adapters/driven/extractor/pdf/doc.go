// Package pdf extracts per-page text from PDF files.
//
// Two backends implement driven.Extractor:
//
//   - PDFToText shells out to poppler's pdftotext, which gives the best
//     reading order. Pages are separated by form feeds in its output.
//   - Native reads the file with github.com/ledongthuc/pdf and needs no
//     external tools.
//
// Select picks a backend from the configured domain.ExtractorBackend.
package pdf
