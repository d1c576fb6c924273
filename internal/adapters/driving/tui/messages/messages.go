// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewPicker asks for the PDF to chat about.
	ViewPicker ViewType = iota
	// ViewChat is a session over one document.
	ViewChat
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewPicker:
		return "picker"
	case ViewChat:
		return "chat"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// FileChosen is sent when the user picks a document.
type FileChosen struct {
	Path string
}

// SessionOpened carries the result of indexing or loading a document.
type SessionOpened struct {
	Session driving.ChatSession
	Err     error
}

// ReplyReceived carries the session's answer to one line of input.
type ReplyReceived struct {
	Reply domain.Reply
	Err   error
}

// Quit signals the application should exit.
type Quit struct{}
