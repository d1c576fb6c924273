package tui

import (
	"context"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
)

// MockChatService is a mock implementation of driving.ChatService.
type MockChatService struct {
	session *MockSession
	err     error
	opened  []string
}

func (m *MockChatService) Open(_ context.Context, path string) (driving.ChatSession, error) {
	m.opened = append(m.opened, path)
	if m.err != nil {
		return nil, m.err
	}
	m.session.path = path
	return m.session, nil
}

// MockSession is a mock implementation of driving.ChatSession.
type MockSession struct {
	path    string
	replies []domain.Reply
	inputs  []string
	closed  int
}

func (m *MockSession) Handle(_ context.Context, input string) (domain.Reply, error) {
	m.inputs = append(m.inputs, input)
	if len(m.replies) == 0 {
		return domain.Reply{}, nil
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r, nil
}

func (m *MockSession) Phase() domain.Phase { return domain.PhaseAwaitingQuery }
func (m *MockSession) Path() string        { return m.path }
func (m *MockSession) Close() error        { m.closed++; return nil }
