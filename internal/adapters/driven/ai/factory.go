// Package ai provides factory functions for creating AI service adapters
// from application settings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/policyqa/internal/adapters/driven/embedding"
	ollamaembed "github.com/custodia-labs/policyqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/policyqa/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/policyqa/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/policyqa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/policyqa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/policyqa/internal/adapters/driven/rerank/cohere"
	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Services holds the three model collaborators.
// A field is nil when its provider is not configured.
type Services struct {
	Embedding driven.EmbeddingService
	Reranker  driven.Reranker
	LLM       driven.LLMService
}

// Close releases all resources held by Services.
func (s *Services) Close() {
	if s == nil {
		return
	}
	if s.Embedding != nil {
		s.Embedding.Close()
	}
	if s.Reranker != nil {
		s.Reranker.Close()
	}
	if s.LLM != nil {
		s.LLM.Close()
	}
}

// NewServices creates every configured collaborator without contacting it.
// Unconfigured providers leave the field nil; misconfigured ones are errors.
func NewServices(settings *domain.AppSettings) (*Services, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no settings", domain.ErrInvalidInput)
	}

	embed, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	llm, err := CreateLLMService(&settings.LLM)
	if err != nil {
		if embed != nil {
			embed.Close()
		}
		return nil, err
	}

	return &Services{
		Embedding: embed,
		Reranker:  CreateReranker(&settings.Rerank),
		LLM:       llm,
	}, nil
}

// CreateEmbeddingService creates the embedding service for the configured
// provider, wrapped in a rate limiter. Returns nil if the provider is not
// configured; Anthropic offers no embeddings and counts as not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var svc driven.EmbeddingService
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOpenAI:
		openai, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		svc = openai

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s",
			domain.ErrEmbeddingUnavailable, settings.Provider)
	}

	return embedding.NewRateLimited(svc, embedding.RateLimitConfig{
		RequestsPerSecond: float64(settings.RequestsPerSecond),
		BurstSize:         1,
	}), nil
}

// CreateLLMService creates the LLM service for the configured provider.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
		}
		return svc, nil

	case domain.AIProviderAnthropic:
		svc, err := anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrLLMUnavailable, settings.Provider)
	}
}

// CreateReranker creates the /rerank client. Returns nil if no endpoint is set.
func CreateReranker(settings *domain.RerankSettings) driven.Reranker {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}
	return cohere.NewReranker(cohere.Config{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		APIKey:  settings.APIKey,
	})
}

// pinger is the part of every collaborator port that Check uses.
type pinger interface {
	Ping(ctx context.Context) error
	ModelName() string
}

// Check pings every collaborator and reports each outcome.
func Check(ctx context.Context, services *Services) []domain.ServiceStatus {
	if services == nil {
		services = &Services{}
	}

	var embed, rerank, llm pinger
	if services.Embedding != nil {
		embed = services.Embedding
	}
	if services.Reranker != nil {
		rerank = services.Reranker
	}
	if services.LLM != nil {
		llm = services.LLM
	}

	return []domain.ServiceStatus{
		check(ctx, "embedding", embed, domain.ErrEmbeddingUnavailable),
		check(ctx, "rerank", rerank, domain.ErrRerankerUnavailable),
		check(ctx, "llm", llm, domain.ErrLLMUnavailable),
	}
}

func check(ctx context.Context, role string, svc pinger, unavailable error) domain.ServiceStatus {
	status := domain.ServiceStatus{Role: role}
	if svc == nil {
		status.Err = fmt.Errorf("%w: not configured", unavailable)
		return status
	}
	status.Configured = true
	status.Model = svc.ModelName()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		if !errors.Is(err, unavailable) {
			err = fmt.Errorf("%w: %w", unavailable, err)
		}
		status.Err = err
	}
	return status
}
