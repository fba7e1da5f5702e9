package domain

import "time"

// AIProvider names a backend for embeddings, answers, or both.
type AIProvider string

const (
	AIProviderLocal     AIProvider = "local" // offline hashing embedder
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
	AIProviderGemini    AIProvider = "gemini"
)

// providerTraits records what a provider offers. Hosted providers need an
// API key.
type providerTraits struct {
	name       AIProvider
	label      string
	hosted     bool
	embedModel string // empty when the provider has no embeddings
	llmModel   string // empty when the provider cannot answer
}

// providerTable is ordered the way providers are offered to users.
var providerTable = []providerTraits{
	{name: AIProviderLocal, label: "Local hashing embedder (offline)", embedModel: "hashing-v1"},
	{name: AIProviderOllama, label: "Ollama (local)", embedModel: "nomic-embed-text", llmModel: "llama3.2"},
	{name: AIProviderOpenAI, label: "OpenAI (cloud)", hosted: true, embedModel: "text-embedding-3-small", llmModel: "gpt-4o-mini"},
	{name: AIProviderAnthropic, label: "Anthropic (cloud)", hosted: true, llmModel: "claude-3-5-sonnet-latest"},
	{name: AIProviderGemini, label: "Gemini (cloud)", hosted: true, embedModel: "text-embedding-004"},
}

func (p AIProvider) traits() (providerTraits, bool) {
	for _, t := range providerTable {
		if t.name == p {
			return t, true
		}
	}
	return providerTraits{}, false
}

func (p AIProvider) IsValid() bool {
	_, ok := p.traits()
	return ok
}

// RequiresAPIKey is true for hosted providers.
func (p AIProvider) RequiresAPIKey() bool {
	t, _ := p.traits()
	return t.hosted
}

// IsLocal is true for providers that run on this machine.
func (p AIProvider) IsLocal() bool {
	t, ok := p.traits()
	return ok && !t.hosted
}

// CanEmbed reports whether the provider produces embeddings.
func (p AIProvider) CanEmbed() bool {
	t, _ := p.traits()
	return t.embedModel != ""
}

// CanGenerate reports whether the provider can write answers.
func (p AIProvider) CanGenerate() bool {
	t, _ := p.traits()
	return t.llmModel != ""
}

func (p AIProvider) String() string {
	return string(p)
}

// Description is the label shown in menus, or "Unknown".
func (p AIProvider) Description() string {
	if t, ok := p.traits(); ok {
		return t.label
	}
	return "Unknown"
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string

	// Dimensions overrides the model's default vector size when non-zero.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
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

	// Temperature controls randomness of answers.
	Temperature float64

	// MaxTokens bounds the answer length.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.CanGenerate() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// PipelineSettings tunes the retrieval, ranking and answer steps.
type PipelineSettings struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters repeated between chunks.
	ChunkOverlap int

	// MinSimilarity is the floor a chunk score must clear to count as a hit.
	MinSimilarity float64

	// SimilarityWeight and PriorityWeight combine into the ranking score.
	SimilarityWeight float64
	PriorityWeight   float64

	// MaxCandidates bounds how many ranked candidates reach the answer step.
	MaxCandidates int

	// AnswerCacheTTL is how long generated answers are memoised.
	AnswerCacheTTL time.Duration

	// EmbedTimeout bounds each embedding call.
	EmbedTimeout time.Duration

	// LLMTimeout bounds each language-model call.
	LLMTimeout time.Duration

	// CacheTimeout bounds each best-effort cache call.
	CacheTimeout time.Duration

	// MaxAnswerRetries is the number of retries after a failed LLM call.
	MaxAnswerRetries int

	// EmbedConcurrency is the number of parallel embedding batches during a build.
	EmbedConcurrency int

	// EmbedBatchSize is the number of chunks per embedding call.
	EmbedBatchSize int

	// EmbedRatePerSecond limits embedding calls; zero disables limiting.
	EmbedRatePerSecond float64

	// ExecutionCapacity is the number of executions retained in the store.
	ExecutionCapacity int

	// DefaultTopK is used when a caller omits top_k.
	DefaultTopK int
}

// StorageBackend selects the execution store implementation.
type StorageBackend string

// Available storage backends.
const (
	StorageMemory StorageBackend = "memory"
	StorageSQLite StorageBackend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageMemory || b == StorageSQLite
}

// StorageSettings holds execution store configuration.
type StorageSettings struct {
	// Backend selects memory or sqlite.
	Backend StorageBackend

	// DataDir is where the sqlite database is kept.
	DataDir string
}

// SourceKind selects the message source implementation.
type SourceKind string

// Available message sources.
const (
	SourceJSON SourceKind = "json"
	SourceEML  SourceKind = "eml"
)

// IsValid returns true if the source kind is recognised.
func (k SourceKind) IsValid() bool {
	return k == SourceJSON || k == SourceEML
}

// SourceSettings holds message source configuration.
type SourceSettings struct {
	// Kind is json (a single corpus file) or eml (a directory of .eml files).
	Kind SourceKind

	// Path is the corpus file or directory.
	Path string

	// Watch rebuilds the index when the source changes on disk.
	Watch bool
}

// IsConfigured returns true if a source path is set.
func (s SourceSettings) IsConfigured() bool {
	return s.Kind.IsValid() && s.Path != ""
}

// ServerSettings holds HTTP API configuration.
type ServerSettings struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Pipeline  PipelineSettings
	Storage   StorageSettings
	Source    SourceSettings
	Server    ServerSettings
	Scheduler SchedulerConfig

	// RulesPath is an optional YAML file overriding classification rules.
	RulesPath string
}

// DefaultPipelineSettings returns the pipeline tuning defaults.
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		ChunkSize:          500,
		ChunkOverlap:       50,
		MinSimilarity:      0.1,
		SimilarityWeight:   0.8,
		PriorityWeight:     0.2,
		MaxCandidates:      5,
		AnswerCacheTTL:     5 * time.Minute,
		EmbedTimeout:       30 * time.Second,
		LLMTimeout:         60 * time.Second,
		CacheTimeout:       250 * time.Millisecond,
		MaxAnswerRetries:   1,
		EmbedConcurrency:   4,
		EmbedBatchSize:     32,
		EmbedRatePerSecond: 0,
		ExecutionCapacity:  500,
		DefaultTopK:        DefaultTopK,
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// Embeddings default to the offline local embedder so the index works
// without any provider; the LLM is left unconfigured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:   AIProviderLocal,
			Model:      "hashing-v1",
			Dimensions: 256,
		},
		LLM: LLMSettings{
			Temperature: 0.1,
			MaxTokens:   500,
		},
		Pipeline: DefaultPipelineSettings(),
		Storage: StorageSettings{
			Backend: StorageMemory,
		},
		Source: SourceSettings{
			Kind: SourceJSON,
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}

// AllEmbeddingProviders lists the providers that can embed, in menu order.
func AllEmbeddingProviders() []AIProvider {
	var out []AIProvider
	for _, t := range providerTable {
		if t.embedModel != "" {
			out = append(out, t.name)
		}
	}
	return out
}

// AllLLMProviders lists the providers that can answer, in menu order.
func AllLLMProviders() []AIProvider {
	var out []AIProvider
	for _, t := range providerTable {
		if t.llmModel != "" {
			out = append(out, t.name)
		}
	}
	return out
}

// DefaultEmbeddingModels maps each embedding provider to its default model.
func DefaultEmbeddingModels() map[AIProvider]string {
	out := make(map[AIProvider]string)
	for _, t := range providerTable {
		if t.embedModel != "" {
			out[t.name] = t.embedModel
		}
	}
	return out
}

// DefaultLLMModels maps each answering provider to its default model.
func DefaultLLMModels() map[AIProvider]string {
	out := make(map[AIProvider]string)
	for _, t := range providerTable {
		if t.llmModel != "" {
			out[t.name] = t.llmModel
		}
	}
	return out
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004": 768,
		// Local
		"hashing-v1": 256,
	}
}
