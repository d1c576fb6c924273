// Package cohere provides a cross-encoder reranker adapter for the
// Cohere-style /rerank API.
//
// The same request shape is served by Cohere, Jina, Voyage and by local
// servers such as Infinity or llama.cpp hosting BAAI/bge-reranker models,
// so the default points at a local Infinity instance.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:7997"
	DefaultModel   = "BAAI/bge-reranker-large"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the reranker.
type Config struct {
	// BaseURL is the API root; "/rerank" is appended.
	BaseURL string

	// Model is the cross-encoder model name.
	Model string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration
}

// Reranker scores (query, passage) pairs through a /rerank endpoint.
type Reranker struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
}

// rerankRequest is the /rerank request format.
type rerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n"`
	ReturnDocuments bool     `json:"return_documents"`
}

// rerankResult is one scored document.
type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// rerankResponse is the /rerank response format.
type rerankResponse struct {
	Results []rerankResult `json:"results"`
	Message string         `json:"message,omitempty"`
}

// NewReranker creates a reranker client.
func NewReranker(cfg Config) *Reranker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Reranker{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
	}
}

// Score returns one relevance score per pair, in input order.
// Consecutive pairs that share a query are sent as one request.
func (r *Reranker) Score(ctx context.Context, pairs []driven.RerankPair) ([]float64, error) {
	scores := make([]float64, len(pairs))

	for start := 0; start < len(pairs); {
		end := start + 1
		for end < len(pairs) && pairs[end].Query == pairs[start].Query {
			end++
		}

		docs := make([]string, end-start)
		for i, p := range pairs[start:end] {
			docs[i] = p.Passage
		}

		got, err := r.rerank(ctx, pairs[start].Query, docs)
		if err != nil {
			return nil, err
		}
		copy(scores[start:end], got)
		start = end
	}

	return scores, nil
}

// rerank scores docs against one query and returns scores in docs order.
func (r *Reranker) rerank(ctx context.Context, query string, docs []string) ([]float64, error) {
	payload, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: docs,
		TopN:      len(docs),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRerankerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rerank error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rerankResp rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rerankResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	scores := make([]float64, len(docs))
	seen := make([]bool, len(docs))
	for _, res := range rerankResp.Results {
		if res.Index < 0 || res.Index >= len(docs) {
			return nil, fmt.Errorf("rerank returned index %d for %d documents", res.Index, len(docs))
		}
		scores[res.Index] = res.RelevanceScore
		seen[res.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("rerank returned no score for document %d", i)
		}
	}

	return scores, nil
}

// ModelName returns the cross-encoder model name.
func (r *Reranker) ModelName() string {
	return r.model
}

// Ping scores a trivial pair to check the endpoint is reachable.
func (r *Reranker) Ping(ctx context.Context) error {
	_, err := r.rerank(ctx, "ping", []string{"pong"})
	return err
}

// Close releases resources.
func (r *Reranker) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
