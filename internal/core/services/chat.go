package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
	"github.com/custodia-labs/policyqa/internal/logger"
)

// Ensure ChatService and Session implement the interfaces.
var (
	_ driving.ChatService = (*ChatService)(nil)
	_ driving.ChatSession = (*Session)(nil)
)

// ChatService opens chat sessions over single documents.
type ChatService struct {
	index     *IndexService
	retrieval *RetrievalService
	answer    driving.AnswerService
	watch     driven.WatcherFactory
}

// NewChatService creates a new chat service.
// The watcher factory is optional; without it sessions never report stale sources.
func NewChatService(
	index *IndexService,
	retrieval *RetrievalService,
	answer driving.AnswerService,
	watch driven.WatcherFactory,
) *ChatService {
	return &ChatService{
		index:     index,
		retrieval: retrieval,
		answer:    answer,
		watch:     watch,
	}
}

// Open ensures the document is indexed and starts a session for it.
func (s *ChatService) Open(ctx context.Context, path string) (driving.ChatSession, error) {
	return s.OpenSession(ctx, path)
}

// OpenSession is Open returning the concrete session.
func (s *ChatService) OpenSession(ctx context.Context, path string) (*Session, error) {
	entry, summary, err := s.index.EnsureEntry(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}

	session := &Session{
		path:    path,
		service: s,
		entry:   entry,
		summary: summary,
	}

	if s.watch != nil {
		w, err := s.watch(path)
		if err != nil {
			logger.Warn("changes to %s will not be detected: %v", filepath.Base(path), err)
		} else {
			session.watcher = w
		}
	}

	return session, nil
}

// Session is a multi-turn conversation over one document.
// Sessions are not safe for concurrent use.
type Session struct {
	path    string
	service *ChatService
	entry   *driven.CacheEntry
	summary *domain.BuildSummary
	conv    Conversation
	watcher driven.SourceWatcher

	// staleNoticed is set once the stale-source notice has been shown.
	staleNoticed bool
}

// Path returns the source document path.
func (s *Session) Path() string {
	return s.path
}

// Phase returns the current clarification phase.
func (s *Session) Phase() domain.Phase {
	return s.conv.Phase()
}

// Pending returns the query awaiting clarification, or "".
func (s *Session) Pending() string {
	return s.conv.Pending()
}

// Summary describes the build that opened the session, or nil when the
// cache was used.
func (s *Session) Summary() *domain.BuildSummary {
	return s.summary
}

// Passages returns the number of indexed passages.
func (s *Session) Passages() int {
	return len(s.entry.Passages)
}

// ParseCommand recognises a reserved command. Matching ignores case and
// surrounding whitespace; anything else is CommandNone.
func ParseCommand(input string) domain.Command {
	switch cmd := domain.Command(strings.ToLower(strings.TrimSpace(input))); cmd {
	case domain.CommandExit, domain.CommandBack, domain.CommandRebuild, domain.CommandSkip:
		return cmd
	default:
		return domain.CommandNone
	}
}

// Handle processes one line of user input.
func (s *Session) Handle(ctx context.Context, input string) (domain.Reply, error) {
	cmd := ParseCommand(input)
	switch cmd {
	case domain.CommandExit, domain.CommandBack:
		return domain.Reply{Command: cmd, Phase: s.conv.Phase()}, nil

	case domain.CommandRebuild:
		return s.rebuild(ctx)

	case domain.CommandSkip:
		reply := domain.Reply{Command: cmd}
		if s.conv.Phase() == domain.PhaseAwaitingClarification {
			s.conv.Skip()
			reply.Notices = append(reply.Notices, "Skipped the pending question.")
		} else {
			reply.Notices = append(reply.Notices, "Nothing to skip.")
		}
		reply.Phase = s.conv.Phase()
		return reply, nil
	}

	if strings.TrimSpace(input) == "" {
		return domain.Reply{Phase: s.conv.Phase()}, nil
	}

	reply := domain.Reply{Notices: s.staleNotice()}
	reply.Query = s.conv.Submit(input)

	var verdict domain.Verdict
	result, err := s.service.retrieval.Search(ctx, s.entry, reply.Query)
	if err != nil {
		logger.Warn("query failed: %v", err)
		verdict = domain.ErrorVerdict(err)
	} else {
		reply.Passages = result.Passages
		verdict = s.service.answer.Answer(ctx, reply.Query, result.PassageList())
	}

	reply.Verdict = &verdict
	reply.Phase = s.conv.Apply(verdict)
	return reply, nil
}

// rebuild re-runs the index pipeline for the session's document.
// On failure the previous index stays in use.
func (s *Session) rebuild(ctx context.Context) (domain.Reply, error) {
	reply := domain.Reply{Command: domain.CommandRebuild, Phase: s.conv.Phase()}

	entry, summary, err := s.service.index.BuildEntry(ctx, s.path)
	if err != nil {
		return reply, fmt.Errorf("rebuild %s: %w", filepath.Base(s.path), err)
	}

	if s.entry != nil && s.entry.Index != nil {
		s.entry.Index.Close()
	}
	s.entry = entry
	s.summary = summary
	s.conv.Reset()
	s.staleNoticed = false
	if s.watcher != nil {
		s.watcher.Reset()
	}

	reply.Phase = s.conv.Phase()
	reply.Notices = append(reply.Notices, fmt.Sprintf("Rebuilt index: %d passages from %d pages.",
		summary.Passages, summary.Pages))
	if summary.SaveErr != nil {
		reply.Notices = append(reply.Notices, fmt.Sprintf("The index could not be saved and will be rebuilt next time: %v",
			summary.SaveErr))
	}
	return reply, nil
}

// staleNotice reports, once per change, that the source changed on disk.
func (s *Session) staleNotice() []string {
	if s.watcher == nil || s.staleNoticed || !s.watcher.Changed() {
		return nil
	}
	s.staleNoticed = true
	return []string{fmt.Sprintf("%s changed on disk. Type 'rebuild' to re-index it.", filepath.Base(s.path))}
}

// Close stops the watcher and releases the index.
func (s *Session) Close() error {
	var err error
	if s.watcher != nil {
		err = s.watcher.Close()
		s.watcher = nil
	}
	if s.entry != nil && s.entry.Index != nil {
		s.entry.Index.Close()
	}
	return err
}
