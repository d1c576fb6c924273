package services

import (
	"strings"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// ClarificationLabel introduces user-supplied detail appended to a pending query.
const ClarificationLabel = "Additional information: "

// Conversation is the clarification state machine for one chat session.
// The zero value is ready to use and awaits a query.
type Conversation struct {
	pending string
	phase   domain.Phase
}

// Phase returns the current phase.
func (c *Conversation) Phase() domain.Phase {
	return c.phase
}

// Pending returns the query awaiting clarification, or "" when none.
func (c *Conversation) Pending() string {
	return c.pending
}

// Submit records user input and returns the query to resolve.
// Awaiting a query, the input becomes the pending query. Awaiting
// clarification, it is appended to the pending query as an annotation and
// the combined text becomes the new pending query.
func (c *Conversation) Submit(input string) string {
	input = strings.TrimSpace(input)
	if c.phase == domain.PhaseAwaitingClarification && c.pending != "" {
		c.pending = c.pending + "\n\n" + ClarificationLabel + input
	} else {
		c.pending = input
	}
	return c.pending
}

// Apply moves the machine on a verdict for the pending query.
// An insufficient verdict keeps the pending query and waits for
// clarification; anything else clears it.
func (c *Conversation) Apply(v domain.Verdict) domain.Phase {
	if v.Status == domain.VerdictInsufficient {
		c.phase = domain.PhaseAwaitingClarification
		return c.phase
	}
	c.Reset()
	return c.phase
}

// Skip abandons the pending query.
func (c *Conversation) Skip() {
	c.Reset()
}

// Reset clears all state, as when the document changes.
func (c *Conversation) Reset() {
	c.pending = ""
	c.phase = domain.PhaseAwaitingQuery
}
