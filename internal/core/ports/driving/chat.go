package driving

import (
	"context"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// ChatService opens interactive sessions over a single document.
type ChatService interface {
	// Open ensures the document is indexed and returns a session for it.
	Open(ctx context.Context, path string) (ChatSession, error)
}

// ChatSession is a multi-turn conversation over one document.
// Sessions are not safe for concurrent use.
type ChatSession interface {
	// Handle processes one line of user input: a reserved command or a query.
	// Query failures are reported in the reply; Handle only returns an error
	// when a rebuild fails.
	Handle(ctx context.Context, input string) (domain.Reply, error)

	// Phase returns the current clarification phase.
	Phase() domain.Phase

	// Path returns the source document path.
	Path() string

	// Close releases the session's resources.
	Close() error
}
