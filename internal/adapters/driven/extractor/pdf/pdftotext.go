package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/logger"
)

// Ensure PDFToText implements the interface.
var _ driven.Extractor = (*PDFToText)(nil)

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// CheckAvailable returns ErrPDFToolNotFound when pdftotext is missing.
func CheckAvailable() error {
	if _, err := lookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions explains how to install pdftotext.
func InstallInstructions() string {
	return `pdftotext is part of poppler. Install it with:
  macOS:          brew install poppler
  Debian/Ubuntu:  sudo apt install poppler-utils
  Fedora:         sudo dnf install poppler-utils
Or set extractor.backend = "native" to use the built-in reader.`
}

// PDFToText extracts text using poppler's pdftotext.
type PDFToText struct {
	runner driven.CommandRunner
}

// NewPDFToText creates an extractor that runs the real pdftotext binary.
func NewPDFToText() *PDFToText {
	return &PDFToText{runner: execRunner{}}
}

// NewWithRunner creates an extractor with a custom command runner.
func NewWithRunner(runner driven.CommandRunner) *PDFToText {
	return &PDFToText{runner: runner}
}

// Name returns the backend name.
func (e *PDFToText) Name() string {
	return "pdftotext"
}

// Extract returns the text of each page in order.
func (e *PDFToText) Extract(ctx context.Context, path string) ([]string, error) {
	if err := checkFile(path); err != nil {
		return nil, err
	}

	// "-" writes to stdout; pages end with a form feed.
	out, err := e.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("%w: pdftotext failed: %v", domain.ErrExtractionFailed, err)
	}

	pages := splitPages(string(out))
	logger.Debug("pdftotext read %d pages from %s", len(pages), path)
	return pages, nil
}

// splitPages cuts pdftotext output on form feeds.
// The terminator after the last page does not start a new page.
func splitPages(out string) []string {
	if out == "" {
		return nil
	}
	pages := strings.Split(out, "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}

// checkFile rejects paths that are missing or not regular files.
func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", domain.ErrExtractionFailed, path)
	}
	return nil
}
