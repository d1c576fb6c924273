package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
	"github.com/custodia-labs/policyqa/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// PassageSeparator joins passages in the prompt context block.
const PassageSeparator = "\n\n---\n\n"

// NoInformationAnswer is returned when retrieval found nothing to show the model.
const NoInformationAnswer = "I could not find any relevant information in the document to answer your question."

// answerMaxTokens bounds the verdict reply.
const answerMaxTokens = 1024

// AnswerService asks the language model for a claims verdict.
type AnswerService struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// NewAnswerService creates a new answer service. The LLM may be nil; every
// answer is then an error verdict.
func NewAnswerService(llm driven.LLMService, prompts driven.PromptStore) *AnswerService {
	return &AnswerService{llm: llm, prompts: prompts}
}

// Answer builds the prompt, calls the model and parses its reply.
func (s *AnswerService) Answer(ctx context.Context, query string, passages []domain.Passage) domain.Verdict {
	if len(passages) == 0 {
		return domain.Verdict{
			Status:   domain.VerdictInsufficient,
			Decision: domain.DecisionInsufficient,
			Answer:   NoInformationAnswer,
		}
	}
	if s.llm == nil {
		return domain.ErrorVerdict(fmt.Errorf("%w: %w", domain.ErrCollaborator, domain.ErrLLMUnavailable))
	}

	prompt, err := s.Prompt(query, passages)
	if err != nil {
		return domain.ErrorVerdict(err)
	}

	logger.Section("Answer")
	logger.Debug("Prompt is %d bytes over %d passages", len(prompt), len(passages))

	done := logger.Stage("generate verdict")
	reply, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   answerMaxTokens,
		Temperature: 0,
		JSON:        true,
	})
	done()
	if err != nil {
		return domain.ErrorVerdict(fmt.Errorf("generate verdict: %w: %w", domain.ErrCollaborator, err))
	}
	logger.Debug("Reply: %s", reply)

	return ParseVerdict(reply)
}

// Prompt renders the verdict template with the context block and query.
func (s *AnswerService) Prompt(query string, passages []domain.Passage) (string, error) {
	if s.prompts == nil {
		return "", fmt.Errorf("%w: no prompt store", domain.ErrNotFound)
	}
	tmpl, err := s.prompts.Load(driven.PromptVerdict)
	if err != nil {
		return "", fmt.Errorf("load verdict prompt: %w", err)
	}
	return renderPrompt(tmpl, ContextBlock(passages), query)
}

// ContextBlock labels each passage with its page and joins them.
func ContextBlock(passages []domain.Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = fmt.Sprintf("[Page %s]\n%s", p.Metadata.PageLabel(), p.Content)
	}
	return strings.Join(parts, PassageSeparator)
}

// renderPrompt substitutes the two %s placeholders. Other % signs in the
// template and in the substituted text are left alone.
func renderPrompt(tmpl, contextBlock, query string) (string, error) {
	parts := strings.Split(tmpl, "%s")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: verdict prompt needs exactly two %%s placeholders, found %d",
			domain.ErrInvalidInput, len(parts)-1)
	}
	return parts[0] + contextBlock + parts[1] + query + parts[2], nil
}

// verdictReply is the JSON object the prompt asks for.
type verdictReply struct {
	Decision      string   `json:"decision"`
	Justification string   `json:"justification"`
	Questions     []string `json:"questions"`
}

// ParseVerdict reads a model reply. A JSON object is preferred; otherwise a
// "Decision:" line and an optional "Questions:" list are read from the text.
// A reply naming no known decision becomes an error verdict.
func ParseVerdict(reply string) domain.Verdict {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return domain.ErrorVerdict(fmt.Errorf("%w: empty model reply", domain.ErrCollaborator))
	}

	if v, ok := parseJSONVerdict(reply); ok {
		return v
	}
	if v, ok := parseTextVerdict(reply); ok {
		return v
	}
	return domain.ErrorVerdict(fmt.Errorf("%w: no decision in model reply: %s",
		domain.ErrCollaborator, truncate(reply, 200)))
}

func parseJSONVerdict(reply string) (domain.Verdict, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return domain.Verdict{}, false
	}

	var r verdictReply
	if err := json.Unmarshal([]byte(reply[start:end+1]), &r); err != nil {
		return domain.Verdict{}, false
	}
	decision, ok := domain.ParseDecision(r.Decision)
	if !ok {
		return domain.Verdict{}, false
	}
	return newVerdict(decision, strings.TrimSpace(r.Justification), r.Questions), true
}

func parseTextVerdict(reply string) (domain.Verdict, bool) {
	var (
		decision      domain.Decision
		found         bool
		reason        string
		justification []string
		questions     []string
		section       string
	)

	for _, raw := range strings.Split(reply, "\n") {
		line := strings.TrimSpace(raw)
		label, rest := splitLabel(line)

		switch label {
		case "decision":
			if d, ok := domain.ParseDecision(rest); ok && !found {
				decision, found = d, true
				reason = decisionReason(rest)
			}
			section = ""
			continue
		case "justification":
			section = label
			if rest != "" {
				justification = append(justification, rest)
			}
			continue
		case "questions", "follow-up questions":
			section = "questions"
			continue
		}

		switch section {
		case "justification":
			if line != "" {
				justification = append(justification, line)
			}
		case "questions":
			if q := listItem(line); q != "" {
				questions = append(questions, q)
			}
		}
	}

	if !found {
		return domain.Verdict{}, false
	}

	answer := strings.Join(justification, "\n")
	if answer == "" {
		answer = reason
	}
	return newVerdict(decision, answer, questions), true
}

func newVerdict(decision domain.Decision, answer string, questions []string) domain.Verdict {
	v := domain.Verdict{
		Status:   decision.Status(),
		Decision: decision,
		Answer:   answer,
	}
	if v.Status == domain.VerdictInsufficient {
		for _, q := range questions {
			if q = strings.TrimSpace(q); q != "" {
				v.Questions = append(v.Questions, q)
			}
		}
	}
	return v
}

// splitLabel splits "**Decision:** Approved" into ("decision", "Approved").
// Lines without a leading "label:" return an empty label.
func splitLabel(line string) (string, string) {
	trimmed := strings.TrimLeft(line, "*#-• ")
	idx := strings.Index(trimmed, ":")
	if idx <= 0 {
		return "", line
	}
	label := strings.ToLower(strings.Trim(trimmed[:idx], "* "))
	switch label {
	case "decision", "justification", "questions", "follow-up questions":
		return label, strings.TrimSpace(strings.Trim(trimmed[idx+1:], "* "))
	default:
		return "", line
	}
}

// decisionReason returns the text after the decision word, if any.
func decisionReason(rest string) string {
	for _, sep := range []string{"—", "–", " - ", ":"} {
		if i := strings.Index(rest, sep); i >= 0 {
			return strings.TrimSpace(rest[i+len(sep):])
		}
	}
	return ""
}

// listItem strips bullets and numbering from a list line.
func listItem(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "-*• ")
	if i := strings.IndexAny(line, ".)"); i > 0 && i <= 3 && isDigits(line[:i]) {
		line = line[i+1:]
	}
	return strings.TrimSpace(line)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
