package domain

import "strconv"

// DocumentHeaderPage is the page number given to passages cut from the
// document context rather than from a body page.
const DocumentHeaderPage = 0

// DocumentHeaderLabel is the display label for DocumentHeaderPage.
const DocumentHeaderLabel = "Document Header"

// Page is the cleaned text of a single PDF page.
type Page struct {
	// Number is the 1-based position of the page in the source file.
	Number int

	// Text is the normalised, single-spaced page text.
	Text string
}

// Document is a normalised PDF ready for chunking.
type Document struct {
	// FileName is the base name of the source file.
	FileName string

	// Context is the recurring first-page header block (title, policy number).
	// Empty when no header was detected.
	Context string

	// Pages holds the non-empty body pages in source order.
	Pages []Page
}

// IsEmpty reports whether the document has no indexable text at all.
func (d Document) IsEmpty() bool {
	return d.Context == "" && len(d.Pages) == 0
}

// PassageMetadata locates a passage within its source document.
type PassageMetadata struct {
	// FileName is the base name of the source file.
	FileName string `json:"file_name"`

	// Page is the source page number, or DocumentHeaderPage for context passages.
	Page int `json:"page_number"`

	// ChunkNumber is the 1-based position of the passage within its source text.
	ChunkNumber int `json:"chunk_number"`
}

// PageLabel renders the page as shown to users and the language model.
func (m PassageMetadata) PageLabel() string {
	if m.Page == DocumentHeaderPage {
		return DocumentHeaderLabel
	}
	return strconv.Itoa(m.Page)
}

// IsHeader reports whether the passage was cut from the document context.
func (m PassageMetadata) IsHeader() bool {
	return m.Page == DocumentHeaderPage
}

// Passage is the atomic retrievable unit of a document.
// Passages are immutable once created.
type Passage struct {
	// ID is a unique identifier assigned by the chunker.
	ID string `json:"id"`

	// Content is the passage text.
	Content string `json:"content"`

	// Metadata locates the passage in the source.
	Metadata PassageMetadata `json:"metadata"`
}
