package services

import (
	"errors"
	"fmt"
	"os"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyChunkSize           = "chunk.size"
	KeyChunkOverlap        = "chunk.overlap"
	KeyInitialK            = "retrieval.initial_k"
	KeyFinalK              = "retrieval.final_k"
	KeyHeaderLines         = "normaliser.header_lines"
	KeyFooterLines         = "normaliser.footer_lines"
	KeyThresholdPercent    = "normaliser.threshold_percent"
	KeyExtractorBackend    = "extractor.backend"
	KeyEmbedProvider       = "embedding.provider"
	KeyEmbedModel          = "embedding.model"
	KeyEmbedBaseURL        = "embedding.base_url"
	KeyEmbedAPIKey         = "embedding.api_key"
	KeyEmbedRequestsPerSec = "embedding.requests_per_second"
	KeyRerankModel         = "rerank.model"
	KeyRerankBaseURL       = "rerank.base_url"
	KeyRerankAPIKey        = "rerank.api_key"
	KeyLLMProvider         = "llm.provider"
	KeyLLMModel            = "llm.model"
	KeyLLMBaseURL          = "llm.base_url"
	KeyLLMAPIKey           = "llm.api_key"
	KeyCacheDir            = "cache.dir"
)

// Environment variables that override stored API keys.
//
//nolint:gosec // G101: variable names, not credentials.
const (
	EnvEmbeddingAPIKey = "POLICYQA_EMBEDDING_API_KEY"
	EnvRerankAPIKey    = "POLICYQA_RERANK_API_KEY"
	EnvLLMAPIKey       = "POLICYQA_LLM_API_KEY"
)

const maxThresholdPercent = 100

// SettingsService reads and writes domain.AppSettings through a ConfigStore.
// API keys in POLICYQA_*_API_KEY environment variables take precedence over
// stored keys and are never written back.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// WithEnv replaces the environment lookup, for tests.
func (s *SettingsService) WithEnv(getenv func(string) string) *SettingsService {
	s.getenv = getenv
	return s
}

// Get retrieves current application settings. Absent or invalid values
// fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(KeyEmbedProvider, defaults.Embedding.Provider),
			BaseURL:           s.configStore.GetString(KeyEmbedBaseURL),
			APIKey:            s.secret(KeyEmbedAPIKey, EnvEmbeddingAPIKey),
			RequestsPerSecond: s.getInt(KeyEmbedRequestsPerSec, 0, 0),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(KeyLLMProvider, defaults.LLM.Provider),
			BaseURL:  s.configStore.GetString(KeyLLMBaseURL),
			APIKey:   s.secret(KeyLLMAPIKey, EnvLLMAPIKey),
		},
		Rerank: domain.RerankSettings{
			Model:   s.getString(KeyRerankModel, defaults.Rerank.Model),
			BaseURL: s.getString(KeyRerankBaseURL, defaults.Rerank.BaseURL),
			APIKey:  s.secret(KeyRerankAPIKey, EnvRerankAPIKey),
		},
		Chunk: domain.ChunkSettings{
			Size:    s.getInt(KeyChunkSize, defaults.Chunk.Size, 1),
			Overlap: s.getInt(KeyChunkOverlap, defaults.Chunk.Overlap, 0),
		},
		Retrieval: domain.RetrievalSettings{
			InitialK: s.getInt(KeyInitialK, defaults.Retrieval.InitialK, 1),
			FinalK:   s.getInt(KeyFinalK, defaults.Retrieval.FinalK, 1),
		},
		Normaliser: domain.NormaliserSettings{
			HeaderLines:      s.getInt(KeyHeaderLines, defaults.Normaliser.HeaderLines, 1),
			FooterLines:      s.getInt(KeyFooterLines, defaults.Normaliser.FooterLines, 1),
			ThresholdPercent: s.getInt(KeyThresholdPercent, defaults.Normaliser.ThresholdPercent, 1),
		},
		Extractor: s.getExtractor(defaults.Extractor),
		CacheDir:  s.configStore.GetString(KeyCacheDir),
	}

	// The model default depends on the provider actually chosen.
	settings.Embedding.Model = s.getString(KeyEmbedModel,
		domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.LLM.Model = s.getString(KeyLLMModel,
		domain.DefaultLLMModels()[settings.LLM.Provider])

	return settings, nil
}

// Save persists application settings. API keys are only written when set and
// not supplied by the environment.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: no settings", domain.ErrInvalidInput)
	}

	values := map[string]any{
		KeyChunkSize:           settings.Chunk.Size,
		KeyChunkOverlap:        settings.Chunk.Overlap,
		KeyInitialK:            settings.Retrieval.InitialK,
		KeyFinalK:              settings.Retrieval.FinalK,
		KeyHeaderLines:         settings.Normaliser.HeaderLines,
		KeyFooterLines:         settings.Normaliser.FooterLines,
		KeyThresholdPercent:    settings.Normaliser.ThresholdPercent,
		KeyExtractorBackend:    string(settings.Extractor),
		KeyEmbedProvider:       settings.Embedding.Provider.String(),
		KeyEmbedModel:          settings.Embedding.Model,
		KeyEmbedBaseURL:        settings.Embedding.BaseURL,
		KeyEmbedRequestsPerSec: settings.Embedding.RequestsPerSecond,
		KeyRerankModel:         settings.Rerank.Model,
		KeyRerankBaseURL:       settings.Rerank.BaseURL,
		KeyLLMProvider:         settings.LLM.Provider.String(),
		KeyLLMModel:            settings.LLM.Model,
		KeyLLMBaseURL:          settings.LLM.BaseURL,
		KeyCacheDir:            settings.CacheDir,
	}
	s.putSecret(values, KeyEmbedAPIKey, EnvEmbeddingAPIKey, settings.Embedding.APIKey)
	s.putSecret(values, KeyRerankAPIKey, EnvRerankAPIKey, settings.Rerank.APIKey)
	s.putSecret(values, KeyLLMAPIKey, EnvLLMAPIKey, settings.LLM.APIKey)

	if err := s.configStore.SetAll(values); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Path returns where settings are stored.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// Validate reports every setting that cannot work. Values that are merely
// unusual, such as FinalK above InitialK, are clamped elsewhere and not
// reported.
func (s *SettingsService) Validate(settings *domain.AppSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: no settings", domain.ErrInvalidInput)
	}

	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidInput}, args...)...))
	}

	if settings.Chunk.Size <= 0 {
		invalid("%s must be positive, got %d", KeyChunkSize, settings.Chunk.Size)
	}
	if settings.Chunk.Overlap < 0 {
		invalid("%s must not be negative, got %d", KeyChunkOverlap, settings.Chunk.Overlap)
	}
	if p := settings.Normaliser.ThresholdPercent; p <= 0 || p > maxThresholdPercent {
		invalid("%s must be between 1 and %d, got %d", KeyThresholdPercent, maxThresholdPercent, p)
	}
	if !settings.Extractor.IsValid() {
		invalid("%s must be auto, pdftotext or native, got %q", KeyExtractorBackend, settings.Extractor)
	}
	if !settings.Embedding.IsConfigured() {
		invalid("embedding provider %q is not usable (needs ollama, or openai with an API key)",
			settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		invalid("llm provider %q is not usable (cloud providers need an API key)", settings.LLM.Provider)
	}
	if !settings.Rerank.IsConfigured() {
		invalid("%s is required for reranking", KeyRerankBaseURL)
	}

	return errors.Join(errs...)
}

func (s *SettingsService) getString(key, fallback string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return fallback
}

// getInt returns the stored integer, or fallback when it is absent or below minimum.
func (s *SettingsService) getInt(key string, fallback, minimum int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return fallback
	}
	if v := s.configStore.GetInt(key); v >= minimum {
		return v
	}
	return fallback
}

func (s *SettingsService) getProvider(key string, fallback domain.AIProvider) domain.AIProvider {
	p := domain.AIProvider(s.configStore.GetString(key))
	if p.IsValid() {
		return p
	}
	return fallback
}

func (s *SettingsService) getExtractor(fallback domain.ExtractorBackend) domain.ExtractorBackend {
	b := domain.ExtractorBackend(s.configStore.GetString(KeyExtractorBackend))
	if b.IsValid() {
		return b
	}
	return fallback
}

// secret prefers the environment over the stored value.
func (s *SettingsService) secret(key, env string) string {
	if v := s.getenv(env); v != "" {
		return v
	}
	return s.configStore.GetString(key)
}

func (s *SettingsService) putSecret(values map[string]any, key, env, value string) {
	if value == "" || value == s.getenv(env) {
		return
	}
	values[key] = value
}
