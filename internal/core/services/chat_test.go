package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

const (
	insufficientReply = `{"decision":"Insufficient Information","justification":"Coverage depends on the cause.","questions":["Was it an accident?","Is it pre-authorised?"]}`
	approvedReply     = `{"decision":"Approved","justification":"Page 4 covers knee surgery with pre-authorisation.","questions":[]}`
)

func watcherFactory(w *fakeWatcher) driven.WatcherFactory {
	return func(string) (driven.SourceWatcher, error) { return w, nil }
}

func openSession(t *testing.T, h *harness, w *fakeWatcher) *Session {
	t.Helper()
	var factory driven.WatcherFactory
	if w != nil {
		factory = watcherFactory(w)
	}
	s, err := h.chat(factory).OpenSession(context.Background(), h.path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  domain.Command
	}{
		{"exit", domain.CommandExit},
		{"  EXIT ", domain.CommandExit},
		{"Back", domain.CommandBack},
		{"rebuild", domain.CommandRebuild},
		{"SKIP", domain.CommandSkip},
		{"exit now", domain.CommandNone},
		{"is exit covered", domain.CommandNone},
		{"", domain.CommandNone},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommand(tt.input))
		})
	}
}

func TestChatService_OpenBuildsOnce(t *testing.T) {
	h := newHarness(t, policyPages())

	first := openSession(t, h, nil)
	require.NotNil(t, first.Summary())
	assert.Equal(t, 6, first.Passages())
	assert.Equal(t, h.path, first.Path())

	second := openSession(t, h, nil)
	assert.Nil(t, second.Summary(), "second session loads the cache")
	assert.Equal(t, 6, second.Passages())
	assert.Equal(t, 1, h.extractor.calls)
}

func TestChatService_OpenFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.extractor.err = errors.New("no such file")

	_, err := h.chat(nil).Open(context.Background(), h.path)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExtractionFailed))
}

func TestChatService_WatcherFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, policyPages())
	factory := func(string) (driven.SourceWatcher, error) { return nil, errors.New("too many open files") }

	s, err := h.chat(factory).OpenSession(context.Background(), h.path)
	require.NoError(t, err)
	defer s.Close()

	h.llm.replies = []string{approvedReply}
	reply, err := s.Handle(context.Background(), "Is knee surgery covered?")
	require.NoError(t, err)
	assert.Empty(t, reply.Notices)
}

func TestSession_ClarificationLoop(t *testing.T) {
	h := newHarness(t, policyPages())
	h.llm.replies = []string{insufficientReply, approvedReply}
	s := openSession(t, h, nil)
	ctx := context.Background()

	reply, err := s.Handle(ctx, "Is knee surgery covered?")
	require.NoError(t, err)
	require.NotNil(t, reply.Verdict)
	assert.Equal(t, domain.VerdictInsufficient, reply.Verdict.Status)
	assert.Equal(t, []string{"Was it an accident?", "Is it pre-authorised?"}, reply.Verdict.Questions)
	assert.Equal(t, domain.PhaseAwaitingClarification, reply.Phase)
	assert.Equal(t, "Is knee surgery covered?", s.Pending())
	require.NotEmpty(t, reply.Passages)
	assert.Equal(t, 4, reply.Passages[0].Passage.Metadata.Page)

	reply, err = s.Handle(ctx, "Yes, it is pre-authorised")
	require.NoError(t, err)
	assert.Equal(t, "Is knee surgery covered?\n\nAdditional information: Yes, it is pre-authorised", reply.Query)
	assert.Equal(t, domain.DecisionApproved, reply.Verdict.Decision)
	assert.Equal(t, domain.PhaseAwaitingQuery, reply.Phase)
	assert.Empty(t, s.Pending())

	require.Len(t, h.llm.prompts, 2)
	assert.Contains(t, h.llm.prompts[1], "QUERY: Is knee surgery covered?\n\nAdditional information: Yes, it is pre-authorised")
	assert.Contains(t, h.llm.prompts[1], "[Page 4]")
}

func TestSession_Skip(t *testing.T) {
	h := newHarness(t, policyPages())
	h.llm.replies = []string{insufficientReply, approvedReply}
	s := openSession(t, h, nil)
	ctx := context.Background()

	reply, err := s.Handle(ctx, "skip")
	require.NoError(t, err)
	assert.Equal(t, domain.CommandSkip, reply.Command)
	assert.Equal(t, []string{"Nothing to skip."}, reply.Notices)

	_, err = s.Handle(ctx, "Is dental covered?")
	require.NoError(t, err)
	require.Equal(t, domain.PhaseAwaitingClarification, s.Phase())

	reply, err = s.Handle(ctx, "Skip")
	require.NoError(t, err)
	assert.Equal(t, []string{"Skipped the pending question."}, reply.Notices)
	assert.Equal(t, domain.PhaseAwaitingQuery, reply.Phase)

	reply, err = s.Handle(ctx, "Is knee surgery covered?")
	require.NoError(t, err)
	assert.Equal(t, "Is knee surgery covered?", reply.Query, "skipped question is not carried over")
}

func TestSession_ExitAndBack(t *testing.T) {
	h := newHarness(t, policyPages())
	s := openSession(t, h, nil)

	for _, input := range []string{"exit", "BACK"} {
		reply, err := s.Handle(context.Background(), input)
		require.NoError(t, err)
		assert.Nil(t, reply.Verdict)
		assert.Equal(t, ParseCommand(input), reply.Command)
	}
	assert.Empty(t, h.llm.prompts)
}

func TestSession_BlankInput(t *testing.T) {
	h := newHarness(t, policyPages())
	s := openSession(t, h, nil)

	reply, err := s.Handle(context.Background(), "   ")

	require.NoError(t, err)
	assert.Nil(t, reply.Verdict)
	assert.Equal(t, domain.CommandNone, reply.Command)
	assert.Empty(t, h.llm.prompts)
}

func TestSession_ErrorVerdictKeepsSessionAlive(t *testing.T) {
	h := newHarness(t, policyPages())
	s := openSession(t, h, nil)
	ctx := context.Background()

	h.reranker.err = errors.New("reranker down")
	reply, err := s.Handle(ctx, "Is knee surgery covered?")
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictError, reply.Verdict.Status)
	assert.Contains(t, reply.Verdict.Answer, "reranker down")
	assert.Equal(t, domain.PhaseAwaitingQuery, reply.Phase)

	h.reranker.err = nil
	h.llm.err = errors.New("model timeout")
	reply, err = s.Handle(ctx, "Is knee surgery covered?")
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictError, reply.Verdict.Status)
	assert.Contains(t, reply.Verdict.Answer, "model timeout")

	h.llm.err = nil
	h.llm.replies = []string{approvedReply}
	reply, err = s.Handle(ctx, "Is knee surgery covered?")
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictSufficient, reply.Verdict.Status)
}

func TestSession_Rebuild(t *testing.T) {
	h := newHarness(t, policyPages())
	h.llm.replies = []string{insufficientReply}
	w := &fakeWatcher{}
	s := openSession(t, h, w)
	ctx := context.Background()

	_, err := s.Handle(ctx, "Is knee surgery covered?")
	require.NoError(t, err)
	require.Equal(t, domain.PhaseAwaitingClarification, s.Phase())

	h.extractor.pages = policyPages()[:3]
	reply, err := s.Handle(ctx, "REBUILD")
	require.NoError(t, err)
	assert.Equal(t, domain.CommandRebuild, reply.Command)
	assert.Equal(t, domain.PhaseAwaitingQuery, reply.Phase, "rebuild clears the pending question")
	require.NotEmpty(t, reply.Notices)
	assert.Contains(t, reply.Notices[0], "Rebuilt index")
	assert.Equal(t, 3, s.Summary().Pages)
	assert.Equal(t, 1, w.resets)
	assert.Equal(t, 2, h.extractor.calls)

	loaded := h.store.Load(ctx, h.path)
	require.Equal(t, domain.CacheFound, loaded.Status)
	assert.Len(t, loaded.Entry.Passages, s.Passages())
	loaded.Entry.Index.Close()
}

func TestSession_RebuildFailureKeepsIndex(t *testing.T) {
	h := newHarness(t, policyPages())
	s := openSession(t, h, nil)
	before := s.Passages()

	h.extractor.err = errors.New("file is locked")
	_, err := s.Handle(context.Background(), "rebuild")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExtractionFailed))

	assert.Equal(t, before, s.Passages())
	h.llm.replies = []string{approvedReply}
	reply, err := s.Handle(context.Background(), "Is knee surgery covered?")
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictSufficient, reply.Verdict.Status)
}

func TestSession_StaleNoticeOncePerChange(t *testing.T) {
	h := newHarness(t, policyPages())
	h.llm.replies = []string{approvedReply}
	w := &fakeWatcher{}
	s := openSession(t, h, w)
	ctx := context.Background()

	reply, err := s.Handle(ctx, "Is knee surgery covered?")
	require.NoError(t, err)
	assert.Empty(t, reply.Notices)

	w.changed = true
	reply, err = s.Handle(ctx, "Is knee surgery covered?")
	require.NoError(t, err)
	require.Len(t, reply.Notices, 1)
	assert.Contains(t, reply.Notices[0], "Health Policy (2024).pdf changed on disk")

	reply, err = s.Handle(ctx, "Is knee surgery covered?")
	require.NoError(t, err)
	assert.Empty(t, reply.Notices, "shown once")

	_, err = s.Handle(ctx, "rebuild")
	require.NoError(t, err)
	w.changed = true
	reply, err = s.Handle(ctx, "Is knee surgery covered?")
	require.NoError(t, err)
	assert.Len(t, reply.Notices, 1, "shown again after the next change")
}

func TestSession_CloseStopsWatcher(t *testing.T) {
	h := newHarness(t, policyPages())
	w := &fakeWatcher{}
	s, err := h.chat(watcherFactory(w)).OpenSession(context.Background(), h.path)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}
