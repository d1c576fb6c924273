// Package pages cleans raw per-page PDF text.
//
// Running headers and footers are found statistically: a line near the top or
// bottom of a page is "common" when its digit-free, lower-cased form repeats at
// the same position on enough pages. Lines at the very edge need fewer repeats
// than lines further inward. Common lines are stripped greedily from each end
// of every page, and the header block of the first page with a match becomes
// the document context.
package pages

import (
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// DefaultHeaderLines is the number of top lines inspected per page.
const DefaultHeaderLines = 6

// DefaultFooterLines is the number of bottom lines inspected per page.
const DefaultFooterLines = 6

// DefaultThresholdRatio is the share of pages a full-weight line must repeat on.
const DefaultThresholdRatio = 0.40

// minThreshold keeps a line that appears on a single page from ever being common.
const minThreshold = 2

// Normaliser removes repeated headers and footers and cleans page text.
type Normaliser struct {
	headerLines int
	footerLines int
	ratio       float64
}

// Option configures the normaliser.
type Option func(*Normaliser)

// WithHeaderLines sets how many non-blank top lines are header candidates.
func WithHeaderLines(n int) Option {
	return func(p *Normaliser) {
		if n >= 0 {
			p.headerLines = n
		}
	}
}

// WithFooterLines sets how many non-blank bottom lines are footer candidates.
func WithFooterLines(n int) Option {
	return func(p *Normaliser) {
		if n >= 0 {
			p.footerLines = n
		}
	}
}

// WithThresholdPercent sets the repeat threshold as a percentage of pages.
func WithThresholdPercent(pct int) Option {
	return func(p *Normaliser) {
		if pct > 0 && pct <= 100 {
			p.ratio = float64(pct) / 100
		}
	}
}

// New creates a normaliser with the given options.
func New(opts ...Option) *Normaliser {
	n := &Normaliser{
		headerLines: DefaultHeaderLines,
		footerLines: DefaultFooterLines,
		ratio:       DefaultThresholdRatio,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// page is one raw page split into lines.
type page struct {
	lines    []string
	nonBlank []int // indices into lines
}

func splitPage(raw string) page {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	p := page{lines: lines}
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			p.nonBlank = append(p.nonBlank, i)
		}
	}
	return p
}

// slot identifies a comparison key at a position. Header offsets are
// non-negative; footer offsets are -1 for the last line, -2 above it, and so on.
type slot struct {
	key string
	pos int
}

// Normalise cleans raw pages into a Document.
func (n *Normaliser) Normalise(fileName string, rawPages []string) domain.Document {
	logger.Section("Normalise")
	logger.Debug("File: %s, raw pages: %d", fileName, len(rawPages))

	pages := make([]page, len(rawPages))
	for i, raw := range rawPages {
		pages[i] = splitPage(raw)
	}

	common := n.commonSlots(pages)
	logger.Debug("Common header/footer slots: %d", len(common))

	doc := domain.Document{FileName: fileName}
	contextTaken := false

	for i, p := range pages {
		headerEnd, footerStart := n.bounds(p, common)

		if !contextTaken && headerEnd > 0 {
			doc.Context = Clean(strings.Join(p.lines[:headerEnd], "\n"))
			contextTaken = true
			logger.Debug("Document context from page %d: %q", i+1, doc.Context)
		}

		text := Clean(strings.Join(p.lines[headerEnd:footerStart], "\n"))
		if text == "" {
			logger.Debug("Dropping empty page %d", i+1)
			continue
		}
		doc.Pages = append(doc.Pages, domain.Page{Number: i + 1, Text: text})
	}

	logger.Info("Normalised %d of %d pages (context: %t)", len(doc.Pages), len(rawPages), doc.Context != "")
	return doc
}

// commonSlots counts every candidate slot across pages and keeps those whose
// count clears the weighted threshold.
func (n *Normaliser) commonSlots(pages []page) map[slot]bool {
	counts := make(map[slot]int)
	for _, p := range pages {
		for i := 0; i < min(n.headerLines, len(p.nonBlank)); i++ {
			counts[slot{lineKey(p.lines[p.nonBlank[i]]), i}]++
		}
		for j := 0; j < min(n.footerLines, len(p.nonBlank)); j++ {
			idx := p.nonBlank[len(p.nonBlank)-1-j]
			counts[slot{lineKey(p.lines[idx]), -(j + 1)}]++
		}
	}

	base := threshold(n.ratio, len(pages))
	common := make(map[slot]bool)
	for s, c := range counts {
		var w float64
		if s.pos >= 0 {
			w = weight(s.pos, n.headerLines)
		} else {
			w = weight(-s.pos-1, n.footerLines)
		}
		if float64(c) >= float64(base)/w {
			common[s] = true
		}
	}
	return common
}

// bounds returns the raw line range [headerEnd, footerStart) that survives
// stripping. Scanning from each end stops at the first non-common line.
func (n *Normaliser) bounds(p page, common map[slot]bool) (headerEnd, footerStart int) {
	footerStart = len(p.lines)

	stripped := 0
	for i := 0; i < min(n.headerLines, len(p.nonBlank)); i++ {
		idx := p.nonBlank[i]
		if !common[slot{lineKey(p.lines[idx]), i}] {
			break
		}
		headerEnd = idx + 1
		stripped++
	}

	// Footer scanning never reaches lines already taken by the header.
	for j := 0; j < min(n.footerLines, len(p.nonBlank)-stripped); j++ {
		idx := p.nonBlank[len(p.nonBlank)-1-j]
		if !common[slot{lineKey(p.lines[idx]), -(j + 1)}] {
			break
		}
		footerStart = idx
	}

	return headerEnd, footerStart
}

// threshold is the repeat count required at full weight.
func threshold(ratio float64, pageCount int) int {
	return max(minThreshold, int(math.Round(ratio*float64(pageCount))))
}

// weight falls linearly from 1.0 at the page edge to 0.5 at the innermost
// candidate line.
func weight(offset, span int) float64 {
	if span <= 1 {
		return 1
	}
	return 1 - 0.5*float64(offset)/float64(span-1)
}

// lineKey is the comparison form of a line: lower case, no digits, single spaces.
func lineKey(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	for _, r := range strings.ToLower(line) {
		if unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
