package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// ExtractorBackend selects how PDF text is pulled out of a file.
type ExtractorBackend string

// Available extractor backends.
const (
	// ExtractorAuto uses pdftotext when it is installed, the native reader otherwise.
	ExtractorAuto ExtractorBackend = "auto"

	// ExtractorPDFToText shells out to poppler's pdftotext.
	ExtractorPDFToText ExtractorBackend = "pdftotext"

	// ExtractorNative uses the pure Go PDF reader.
	ExtractorNative ExtractorBackend = "native"
)

// IsValid returns true if the backend is recognised.
func (b ExtractorBackend) IsValid() bool {
	switch b {
	case ExtractorAuto, ExtractorPDFToText, ExtractorNative:
		return true
	default:
		return false
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RequestsPerSecond caps embedding calls. Zero disables limiting.
	RequestsPerSecond int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RerankSettings holds cross-encoder reranker configuration.
// Any service speaking the Cohere-style /rerank API works (Cohere, Jina,
// Infinity, text-embeddings-inference behind a shim, llama.cpp server).
type RerankSettings struct {
	// Model is the reranking model name.
	Model string

	// BaseURL is the API root; "/rerank" is appended.
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string
}

// IsConfigured returns true if a reranker endpoint is set.
func (r RerankSettings) IsConfigured() bool {
	return r.BaseURL != ""
}

// ChunkSettings controls passage splitting.
type ChunkSettings struct {
	// Size is the maximum passage length in runes.
	Size int

	// Overlap is the number of runes shared by consecutive passages.
	Overlap int
}

// RetrievalSettings controls two-stage search.
type RetrievalSettings struct {
	// InitialK is the number of vector-search candidates (recall stage).
	InitialK int

	// FinalK is the number of reranked passages passed to the model (precision stage).
	FinalK int
}

// Normalise clamps the settings so that 0 < FinalK <= InitialK.
func (r RetrievalSettings) Normalise() RetrievalSettings {
	if r.InitialK <= 0 {
		r.InitialK = DefaultInitialK
	}
	if r.FinalK <= 0 {
		r.FinalK = DefaultFinalK
	}
	if r.FinalK > r.InitialK {
		r.FinalK = r.InitialK
	}
	return r
}

// NormaliserSettings controls header and footer detection.
type NormaliserSettings struct {
	// HeaderLines is how many non-blank lines at the top of a page are candidates.
	HeaderLines int

	// FooterLines is how many non-blank lines at the bottom of a page are candidates.
	FooterLines int

	// ThresholdPercent is the share of pages a line must repeat on at full weight.
	ThresholdPercent int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding  EmbeddingSettings
	LLM        LLMSettings
	Rerank     RerankSettings
	Chunk      ChunkSettings
	Retrieval  RetrievalSettings
	Normaliser NormaliserSettings

	// Extractor selects the PDF text backend.
	Extractor ExtractorBackend

	// CacheDir is the root directory holding one sub-directory per document.
	// Empty means ~/.policyqa/cached_files.
	CacheDir string
}

// Defaults used when a setting is absent.
const (
	DefaultChunkSize        = 512
	DefaultChunkOverlap     = 50
	DefaultInitialK         = 15
	DefaultFinalK           = 3
	DefaultHeaderLines      = 6
	DefaultFooterLines      = 6
	DefaultThresholdPercent = 40
)

// DefaultAppSettings returns settings with sensible defaults.
// Both model services default to a local Ollama; the reranker defaults to a
// local Infinity server hosting a BGE cross-encoder.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		LLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    DefaultLLMModels()[AIProviderOllama],
		},
		Rerank: RerankSettings{
			Model:   "BAAI/bge-reranker-large",
			BaseURL: "http://localhost:7997",
		},
		Chunk: ChunkSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Retrieval: RetrievalSettings{
			InitialK: DefaultInitialK,
			FinalK:   DefaultFinalK,
		},
		Normaliser: NormaliserSettings{
			HeaderLines:      DefaultHeaderLines,
			FooterLines:      DefaultFooterLines,
			ThresholdPercent: DefaultThresholdPercent,
		},
		Extractor: ExtractorAuto,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "mxbai-embed-large",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.1",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"bge-large":         1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
