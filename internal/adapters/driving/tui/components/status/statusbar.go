// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// State represents what the session is doing.
type State string

const (
	StateReady    State = "ready"
	StateOpening  State = "opening"
	StateThinking State = "thinking"
	StateError    State = "error"
)

// Bar displays the document, the session state and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	bindings []key.Binding
	state    State
	message  string
	document string
	phase    domain.Phase
	width    int
}

// NewBar creates a new status bar component showing the given key hints.
func NewBar(s *styles.Styles, bindings []key.Binding) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if bindings == nil {
		bindings = keymap.DefaultKeyMap().PickerHelp()
	}

	return &Bar{
		styles:   s,
		bindings: bindings,
		state:    StateReady,
		width:    80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	var parts []string
	if s.document != "" {
		parts = append(parts, s.document)
	}

	switch s.state {
	case StateOpening:
		parts = append(parts, "Indexing...")
	case StateThinking:
		parts = append(parts, "Thinking...")
	case StateError:
		msg := "Error"
		if s.message != "" {
			msg = "Error: " + s.message
		}
		return s.styles.Error.Render(strings.Join(append(parts, msg), " | "))
	case StateReady:
		if s.phase == domain.PhaseAwaitingClarification {
			parts = append(parts, "awaiting clarification (type 'skip' to drop it)")
		} else if s.message != "" {
			parts = append(parts, s.message)
		}
	}

	if len(parts) == 0 {
		return s.styles.Muted.Render("Ready")
	}
	return s.styles.Normal.Render(strings.Join(parts, " | "))
}

func (s *Bar) renderRight() string {
	hints := make([]string, 0, len(s.bindings))
	for _, b := range s.bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a short message shown beside the state.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetDocument sets the document name.
func (s *Bar) SetDocument(name string) {
	s.document = name
}

// SetPhase sets the conversation phase.
func (s *Bar) SetPhase(phase domain.Phase) {
	s.phase = phase
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the status bar to default state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.document = ""
	s.phase = domain.PhaseAwaitingQuery
}
