// Package tui provides the full-screen chat interface for policyqa.
package tui

import (
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	// Chat opens sessions over documents.
	Chat driving.ChatService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
