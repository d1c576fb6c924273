package pdf

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/logger"
)

// Ensure Native implements the interface.
var _ driven.Extractor = (*Native)(nil)

// Native extracts text with the pure Go reader.
type Native struct{}

// NewNative creates a native extractor.
func NewNative() *Native {
	return &Native{}
}

// Name returns the backend name.
func (e *Native) Name() string {
	return "native"
}

// Extract returns the text of each page in order.
// Pages without content yield empty strings so numbering stays aligned.
func (e *Native) Extract(ctx context.Context, path string) (pages []string, err error) {
	if err := checkFile(path); err != nil {
		return nil, err
	}

	// The reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: reading %s: %v", domain.ErrExtractionFailed, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", domain.ErrExtractionFailed, path, err)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", domain.ErrExtractionFailed, i, err)
		}
		pages = append(pages, text)
	}

	logger.Debug("native reader read %d pages from %s", len(pages), path)
	return pages, nil
}
