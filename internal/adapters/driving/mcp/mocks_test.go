package mcp

import (
	"context"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result *domain.RetrievalResult
	err    error
	paths  []string
	query  string
}

func (m *mockRetrievalService) Retrieve(_ context.Context, path, query string) (*domain.RetrievalResult, error) {
	m.paths = append(m.paths, path)
	m.query = query
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	verdict  domain.Verdict
	query    string
	passages []domain.Passage
}

func (m *mockAnswerService) Answer(_ context.Context, query string, passages []domain.Passage) domain.Verdict {
	m.query = query
	m.passages = passages
	return m.verdict
}

// mockCacheService is a mock implementation of driving.CacheService.
type mockCacheService struct {
	info  domain.CacheInfo
	infos []domain.CacheInfo
	err   error
}

func (m *mockCacheService) Status(_ string) domain.CacheInfo { return m.info }

func (m *mockCacheService) List() ([]domain.CacheInfo, error) { return m.infos, m.err }

func (m *mockCacheService) Clear(_ string) error { return m.err }

func kneeResult() *domain.RetrievalResult {
	return &domain.RetrievalResult{
		Query:      "Is knee surgery covered?",
		Candidates: 6,
		Passages: []domain.ScoredPassage{
			{
				Passage: domain.Passage{
					ID:       "p4",
					Content:  "Knee surgery is covered when medically necessary.",
					Metadata: domain.PassageMetadata{FileName: "policy.pdf", Page: 4, ChunkNumber: 1},
				},
				VectorScore: 0.71,
				RerankScore: 8.5,
			},
			{
				Passage: domain.Passage{
					ID:       "h1",
					Content:  "POLICY DOCUMENT No. 1234",
					Metadata: domain.PassageMetadata{FileName: "policy.pdf", Page: domain.DocumentHeaderPage, ChunkNumber: 1},
				},
				VectorScore: 0.2,
				RerankScore: -3,
			},
		},
	}
}
