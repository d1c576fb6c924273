// Package chunker splits normalised documents into overlapping passages.
package chunker

import (
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/logger"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of runes per passage.
const DefaultChunkSize = 512

// DefaultChunkOverlap is the default number of overlapping runes.
const DefaultChunkOverlap = 50

// Processor splits document text into fixed-size, overlapping passages.
// Lengths are measured in runes.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in runes.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in runes.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		logger.Warn("Chunk overlap %d >= chunk size %d, using %d", p.overlap, p.chunkSize, p.chunkSize/4)
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the maximum passage length in runes.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the overlap between consecutive passages in runes.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Split cuts the document context and each page into passages.
// Context passages come first and carry domain.DocumentHeaderPage.
// Chunk numbers restart at 1 for every source text.
func (p *Processor) Split(doc domain.Document) []domain.Passage {
	if doc.IsEmpty() {
		logger.Warn("Document %q has no text to chunk", doc.FileName)
		return nil
	}

	passages := make([]domain.Passage, 0, p.estimate(doc))
	if doc.Context != "" {
		passages = p.appendPassages(passages, doc.FileName, domain.DocumentHeaderPage, doc.Context)
	}
	for _, page := range doc.Pages {
		passages = p.appendPassages(passages, doc.FileName, page.Number, page.Text)
	}

	logger.Debug("Split %q into %d passages (size=%d, overlap=%d)",
		doc.FileName, len(passages), p.chunkSize, p.overlap)
	return passages
}

func (p *Processor) appendPassages(dst []domain.Passage, fileName string, page int, text string) []domain.Passage {
	for i, content := range p.SplitText(text) {
		dst = append(dst, domain.Passage{
			ID:      uuid.New().String(),
			Content: content,
			Metadata: domain.PassageMetadata{
				FileName:    fileName,
				Page:        page,
				ChunkNumber: i + 1,
			},
		})
	}
	return dst
}

// estimate guesses the passage count for slice pre-allocation.
func (p *Processor) estimate(doc domain.Document) int {
	total := len(doc.Context)
	for _, page := range doc.Pages {
		total += len(page.Text)
	}
	return total/(p.chunkSize-p.overlap) + len(doc.Pages) + 1
}

// SplitText cuts text into chunks of at most chunkSize runes.
//
// Consecutive chunks share exactly overlap runes, so joining the first chunk
// with every later chunk minus its first overlap runes rebuilds the input.
// A chunk ends after a sentence terminator when one falls in the back half of
// the window, otherwise after whitespace, otherwise at the hard limit.
func (p *Processor) SplitText(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for {
		if len(runes)-start <= p.chunkSize {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		end := p.splitPoint(runes, start)
		chunks = append(chunks, string(runes[start:end]))

		// splitPoint guarantees end > start+overlap, so start always advances.
		start = end - p.overlap
	}

	return chunks
}

// splitPoint returns the exclusive end of the chunk beginning at start.
// Candidates lie in (start+overlap, start+chunkSize].
func (p *Processor) splitPoint(runes []rune, start int) int {
	limit := start + p.chunkSize
	floor := start + p.overlap
	sentenceFloor := max(floor, start+p.chunkSize/2)

	for end := limit; end > sentenceFloor; end-- {
		if isSentenceEnd(runes, end) {
			return end
		}
	}
	for end := limit; end > floor; end-- {
		if unicode.IsSpace(runes[end-1]) {
			return end
		}
	}
	return limit
}

// isSentenceEnd reports whether end falls just after the whitespace that
// follows a sentence terminator.
func isSentenceEnd(runes []rune, end int) bool {
	if end < 2 || !unicode.IsSpace(runes[end-1]) {
		return false
	}
	switch runes[end-2] {
	case '.', '!', '?', ';':
		return true
	}
	return false
}
