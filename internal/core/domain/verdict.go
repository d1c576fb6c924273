package domain

import "strings"

// VerdictStatus classifies a language model reply.
type VerdictStatus string

// Verdict statuses.
const (
	// VerdictSufficient means the passages were enough to decide.
	VerdictSufficient VerdictStatus = "sufficient"

	// VerdictInsufficient means the model needs more detail from the user.
	VerdictInsufficient VerdictStatus = "insufficient"

	// VerdictError means the model call failed or its reply was unusable.
	VerdictError VerdictStatus = "error"
)

// String returns the string representation.
func (s VerdictStatus) String() string {
	return string(s)
}

// Decision is the claims verdict the model is asked to reach.
type Decision string

// Decisions the prompt allows.
const (
	DecisionApproved     Decision = "Approved"
	DecisionNotApproved  Decision = "Not Approved"
	DecisionInsufficient Decision = "Insufficient Information"
)

// ParseDecision maps free text onto a Decision.
// Matching is case-insensitive and tolerant of trailing reasons.
// It returns false when the text names none of the known decisions.
func ParseDecision(s string) (Decision, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "insufficient"):
		return DecisionInsufficient, true
	case strings.HasPrefix(s, "not approved"), strings.HasPrefix(s, "not-approved"),
		strings.HasPrefix(s, "rejected"), strings.HasPrefix(s, "denied"):
		return DecisionNotApproved, true
	case strings.HasPrefix(s, "approved"):
		return DecisionApproved, true
	default:
		return "", false
	}
}

// Status returns the verdict status implied by the decision.
func (d Decision) Status() VerdictStatus {
	if d == DecisionInsufficient {
		return VerdictInsufficient
	}
	return VerdictSufficient
}

// Verdict is the structured answer synthesised by the language model.
type Verdict struct {
	Status VerdictStatus `json:"status"`

	// Decision is empty when Status is VerdictError.
	Decision Decision `json:"decision,omitempty"`

	// Answer is the justification shown to the user, or the diagnostic for errors.
	Answer string `json:"answer"`

	// Questions are follow-ups to put to the user when Status is VerdictInsufficient.
	Questions []string `json:"questions,omitempty"`
}

// ErrorVerdict wraps a failure as a verdict so a session can keep going.
func ErrorVerdict(err error) Verdict {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Verdict{Status: VerdictError, Answer: msg}
}
