package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
)

// MockIndexService is a mock implementation of driving.IndexService.
type MockIndexService struct {
	BuildFunc  func(ctx context.Context, path string) (*domain.BuildSummary, error)
	EnsureFunc func(ctx context.Context, path string) (*domain.BuildSummary, error)
	Built      []string
	Ensured    []string
}

func (m *MockIndexService) Build(ctx context.Context, path string) (*domain.BuildSummary, error) {
	m.Built = append(m.Built, path)
	if m.BuildFunc != nil {
		return m.BuildFunc(ctx, path)
	}
	return &domain.BuildSummary{FileName: "policy.pdf", Pages: 3, Passages: 7}, nil
}

func (m *MockIndexService) Ensure(ctx context.Context, path string) (*domain.BuildSummary, error) {
	m.Ensured = append(m.Ensured, path)
	if m.EnsureFunc != nil {
		return m.EnsureFunc(ctx, path)
	}
	return nil, nil
}

// MockRetrievalService is a mock implementation of driving.RetrievalService.
type MockRetrievalService struct {
	RetrieveFunc func(ctx context.Context, path, query string) (*domain.RetrievalResult, error)
	Queries      []string
}

func (m *MockRetrievalService) Retrieve(ctx context.Context, path, query string) (*domain.RetrievalResult, error) {
	m.Queries = append(m.Queries, query)
	if m.RetrieveFunc != nil {
		return m.RetrieveFunc(ctx, path, query)
	}
	return &domain.RetrievalResult{
		Query:      query,
		Candidates: 15,
		Passages: []domain.ScoredPassage{
			scored(4, "Water damage from burst pipes is covered.", 0.91, 0.72),
			scored(domain.DocumentHeaderPage, "Policy HX-1001 Home Insurance", 0.40, 0.55),
		},
	}, nil
}

// MockAnswerService is a mock implementation of driving.AnswerService.
type MockAnswerService struct {
	Verdict  domain.Verdict
	Passages []domain.Passage
}

func (m *MockAnswerService) Answer(_ context.Context, _ string, passages []domain.Passage) domain.Verdict {
	m.Passages = passages
	return m.Verdict
}

// MockCacheService is a mock implementation of driving.CacheService.
type MockCacheService struct {
	Infos    []domain.CacheInfo
	ListErr  error
	ClearErr error
	Cleared  []string
}

func (m *MockCacheService) Status(path string) domain.CacheInfo {
	for _, info := range m.Infos {
		if strings.Contains(path, info.Key) {
			return info
		}
	}
	return domain.CacheInfo{Key: "unknown", Dir: "/cache/unknown", Passages: -1}
}

func (m *MockCacheService) List() ([]domain.CacheInfo, error) {
	return m.Infos, m.ListErr
}

func (m *MockCacheService) Clear(path string) error {
	m.Cleared = append(m.Cleared, path)
	return m.ClearErr
}

// MockChatService is a mock implementation of driving.ChatService.
type MockChatService struct {
	OpenFunc func(ctx context.Context, path string) (driving.ChatSession, error)
	Opened   []string
}

func (m *MockChatService) Open(ctx context.Context, path string) (driving.ChatSession, error) {
	m.Opened = append(m.Opened, path)
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, path)
	}
	return &MockSession{path: path}, nil
}

// MockSession answers every query with Verdict and recognises reserved commands.
type MockSession struct {
	path    string
	Verdict domain.Verdict
	Inputs  []string
	Closed  bool
	phase   domain.Phase
}

func (m *MockSession) Handle(_ context.Context, input string) (domain.Reply, error) {
	m.Inputs = append(m.Inputs, input)
	switch cmd := domain.Command(strings.TrimSpace(input)); cmd {
	case domain.CommandExit, domain.CommandBack:
		return domain.Reply{Command: cmd}, nil
	case domain.CommandRebuild:
		return domain.Reply{}, errors.New("extract failed")
	}
	v := m.Verdict
	if v.Status == domain.VerdictInsufficient {
		m.phase = domain.PhaseAwaitingClarification
	} else {
		m.phase = domain.PhaseAwaitingQuery
	}
	return domain.Reply{Query: input, Verdict: &v, Phase: m.phase}, nil
}

func (m *MockSession) Phase() domain.Phase { return m.phase }
func (m *MockSession) Path() string        { return m.path }

func (m *MockSession) Close() error {
	m.Closed = true
	return nil
}

// Verify interface compliance.
var (
	_ driving.IndexService     = (*MockIndexService)(nil)
	_ driving.RetrievalService = (*MockRetrievalService)(nil)
	_ driving.AnswerService    = (*MockAnswerService)(nil)
	_ driving.CacheService     = (*MockCacheService)(nil)
	_ driving.ChatService      = (*MockChatService)(nil)
	_ driving.ChatSession      = (*MockSession)(nil)
)

func scored(page int, content string, rerank, vector float64) domain.ScoredPassage {
	return domain.ScoredPassage{
		Passage: domain.Passage{
			ID:       "p" + content[:4],
			Content:  content,
			Metadata: domain.PassageMetadata{FileName: "policy.pdf", Page: page, ChunkNumber: 1},
		},
		RerankScore: rerank,
		VectorScore: vector,
	}
}

// setupTestServices installs s and returns the buffer commands write to.
// Globals and flag values are restored when the test ends.
func setupTestServices(t *testing.T, s *Services) *bytes.Buffer {
	t.Helper()

	oldServices, oldInit, oldTerminal := services, initialiser, isTerminal
	services, initialiser = s, nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)

	t.Cleanup(func() {
		services, initialiser, isTerminal = oldServices, oldInit, oldTerminal
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})
	return buf
}

// execute runs the root command with args and optional stdin.
func execute(t *testing.T, stdin string, args ...string) error {
	t.Helper()
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue) //nolint:errcheck // defaults always parse
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// MockSettingsService is a mock implementation of driving.SettingsService.
type MockSettingsService struct {
	Settings    *domain.AppSettings
	GetErr      error
	ValidateErr error
	Saved       *domain.AppSettings
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Settings == nil {
		d := domain.DefaultAppSettings()
		m.Settings = &d
	}
	s := *m.Settings
	return &s, nil
}

func (m *MockSettingsService) Save(settings *domain.AppSettings) error {
	s := *settings
	m.Saved = &s
	return nil
}

func (m *MockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *MockSettingsService) Path() string {
	return "/home/user/.policyqa/config.toml"
}

func (m *MockSettingsService) Validate(*domain.AppSettings) error {
	return m.ValidateErr
}

var _ driving.SettingsService = (*MockSettingsService)(nil)
