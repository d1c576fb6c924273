package driven

import "context"

// Extractor pulls raw text out of a source file, one string per page.
// Implementations must not panic on unreadable input; they return an error
// wrapping domain.ErrExtractionFailed instead.
type Extractor interface {
	// Extract returns the raw text of each page in order.
	Extract(ctx context.Context, path string) ([]string, error)

	// Name identifies the backend for logging.
	Name() string
}

// CommandRunner executes external commands.
// It is injected into extractors that shell out so tests can stub the process.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
