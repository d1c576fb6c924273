package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAIProvider_IsValid(t *testing.T) {
	assert.True(t, AIProviderOllama.IsValid())
	assert.True(t, AIProviderOpenAI.IsValid())
	assert.True(t, AIProviderAnthropic.IsValid())
	assert.False(t, AIProvider("").IsValid())
	assert.False(t, AIProvider("cohere").IsValid())
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}, true},
		{"anthropic has no embeddings", EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}, false},
		{"empty", EmbeddingSettings{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderAnthropic}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
}

func TestRetrievalSettings_Normalise(t *testing.T) {
	tests := []struct {
		name     string
		in       RetrievalSettings
		expected RetrievalSettings
	}{
		{"defaults", RetrievalSettings{}, RetrievalSettings{InitialK: 15, FinalK: 3}},
		{"unchanged", RetrievalSettings{InitialK: 20, FinalK: 5}, RetrievalSettings{InitialK: 20, FinalK: 5}},
		{"final clamped", RetrievalSettings{InitialK: 4, FinalK: 10}, RetrievalSettings{InitialK: 4, FinalK: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalise()
			assert.Equal(t, tt.expected, got)
			assert.LessOrEqual(t, got.FinalK, got.InitialK)
		})
	}
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()
	assert.Equal(t, 512, s.Chunk.Size)
	assert.Equal(t, 50, s.Chunk.Overlap)
	assert.Equal(t, 15, s.Retrieval.InitialK)
	assert.Equal(t, 3, s.Retrieval.FinalK)
	assert.Equal(t, 6, s.Normaliser.HeaderLines)
	assert.Equal(t, 40, s.Normaliser.ThresholdPercent)
	assert.Equal(t, ExtractorAuto, s.Extractor)
	assert.True(t, s.Embedding.IsConfigured())
	assert.True(t, s.LLM.IsConfigured())
	assert.True(t, s.Rerank.IsConfigured())
}

func TestExtractorBackend_IsValid(t *testing.T) {
	assert.True(t, ExtractorAuto.IsValid())
	assert.True(t, ExtractorPDFToText.IsValid())
	assert.True(t, ExtractorNative.IsValid())
	assert.False(t, ExtractorBackend("tika").IsValid())
}

func TestCacheStatus(t *testing.T) {
	assert.Equal(t, "found", CacheFound.String())
	assert.NoError(t, CacheFound.Err())
	assert.ErrorIs(t, CacheMissing.Err(), ErrCacheMiss)
	assert.ErrorIs(t, CacheCorrupted.Err(), ErrCacheCorrupted)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "awaiting query", PhaseAwaitingQuery.String())
	assert.Equal(t, "awaiting clarification", PhaseAwaitingClarification.String())
	assert.Equal(t, "Unknown", Phase(9).String())
}
