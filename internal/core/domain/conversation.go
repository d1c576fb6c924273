package domain

// Phase is the state of a chat session's clarification loop.
type Phase int

// Conversation phases.
const (
	// PhaseAwaitingQuery waits for a fresh question.
	PhaseAwaitingQuery Phase = iota

	// PhaseAwaitingClarification waits for detail that answers the model's questions.
	PhaseAwaitingClarification
)

// String returns a human-readable name.
func (p Phase) String() string {
	switch p {
	case PhaseAwaitingQuery:
		return "awaiting query"
	case PhaseAwaitingClarification:
		return "awaiting clarification"
	default:
		return unknownDescription
	}
}

// Command is a reserved session input that bypasses the clarification loop.
type Command string

// Reserved commands.
const (
	CommandNone    Command = ""
	CommandExit    Command = "exit"
	CommandRebuild Command = "rebuild"
	CommandBack    Command = "back"
	CommandSkip    Command = "skip"
)

// Reply is the session's response to one line of user input.
type Reply struct {
	// Command is the reserved command that was handled, or CommandNone for a query.
	Command Command `json:"command,omitempty"`

	// Query is the text that was resolved, including any clarification annotations.
	Query string `json:"query,omitempty"`

	// Verdict is set when a query was resolved.
	Verdict *Verdict `json:"verdict,omitempty"`

	// Passages are the passages the verdict was based on.
	Passages []ScoredPassage `json:"passages,omitempty"`

	// Phase is the conversation phase after handling the input.
	Phase Phase `json:"phase"`

	// Notices are informational messages (rebuild summaries, stale source warnings).
	Notices []string `json:"notices,omitempty"`
}
