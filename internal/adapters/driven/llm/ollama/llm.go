// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/policyqa/internal/adapters/driven/llm/client"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.1"
	DefaultLLMTimeout = 300 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.1).
	Model string

	// Timeout is the request timeout (default: 300s). Local models on CPU
	// can take minutes to answer a long prompt.
	Timeout time.Duration

	// MaxRetries applies while the server answers 503 during model load.
	MaxRetries int
}

// LLMService answers prompts through Ollama's /api/generate.
type LLMService struct {
	http  *client.Client
	model string
}

type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Format  string   `json:"format,omitempty"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
// Temperature is a pointer so an explicit 0 is sent.
type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		http: client.New(client.Config{
			Provider:     "ollama",
			BaseURL:      cfg.BaseURL,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
			ErrorMessage: errorMessage,
		}),
		model: cfg.Model,
	}
}

// errorMessage reads Ollama's {"error": "..."} body.
func errorMessage(body []byte) string {
	var r generateResponse
	if json.Unmarshal(body, &r) != nil {
		return ""
	}
	return r.Error
}

// Generate produces a completion for prompt. JSON mode sets format "json".
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	temperature := opts.Temperature
	req := generateRequest{
		Model:  s.model,
		Prompt: prompt,
		Options: &options{
			NumPredict:  opts.MaxTokens,
			Temperature: &temperature,
			Stop:        opts.StopWords,
		},
	}
	if opts.JSON {
		req.Format = "json"
	}

	var resp generateResponse
	if err := s.http.PostJSON(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", resp.Error)
	}
	return resp.Response, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists local models, which runs no inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.http.Get(ctx, "/api/tags"); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
