package pdf

import (
	"fmt"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/logger"
)

// Select returns the extractor for a backend.
// Auto prefers pdftotext and falls back to the native reader.
func Select(backend domain.ExtractorBackend) (driven.Extractor, error) {
	switch backend {
	case domain.ExtractorPDFToText:
		if err := CheckAvailable(); err != nil {
			return nil, fmt.Errorf("%w\n%s", err, InstallInstructions())
		}
		return NewPDFToText(), nil
	case domain.ExtractorNative:
		return NewNative(), nil
	case domain.ExtractorAuto, "":
		if err := CheckAvailable(); err != nil {
			logger.Debug("pdftotext unavailable, using native PDF reader")
			return NewNative(), nil
		}
		return NewPDFToText(), nil
	default:
		return nil, fmt.Errorf("unknown extractor backend %q: %w", backend, domain.ErrInvalidInput)
	}
}
