package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMTemperature  = "llm.temperature"
	keyLLMMaxTokens    = "llm.max_tokens"

	keyChunkSize         = "pipeline.chunk_size"
	keyChunkOverlap      = "pipeline.chunk_overlap"
	keyMinSimilarity     = "pipeline.min_similarity"
	keySimilarityWeight  = "pipeline.similarity_weight"
	keyPriorityWeight    = "pipeline.priority_weight"
	keyMaxCandidates     = "pipeline.max_candidates"
	keyAnswerCacheTTL    = "pipeline.answer_cache_ttl_seconds"
	keyEmbedTimeout      = "pipeline.embed_timeout_seconds"
	keyLLMTimeout        = "pipeline.llm_timeout_seconds"
	keyCacheTimeout      = "pipeline.cache_timeout_ms"
	keyMaxAnswerRetries  = "pipeline.max_answer_retries"
	keyEmbedConcurrency  = "pipeline.embed_concurrency"
	keyEmbedBatchSize    = "pipeline.embed_batch_size"
	keyEmbedRate         = "pipeline.embed_rate_per_second"
	keyExecutionCapacity = "pipeline.execution_capacity"
	keyDefaultTopK       = "pipeline.default_top_k"

	keyStorageBackend = "storage.backend"
	keyStorageDataDir = "storage.data_dir"
	keySourceKind     = "source.kind"
	keySourcePath     = "source.path"
	keySourceWatch    = "source.watch"
	keyServerAddr     = "server.addr"
	keyRulesPath      = "rules.path"
	keySchedEnabled   = "scheduler.enabled"
)

// Environment variables that supply API keys when the config has none.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
)

// settableKeys lists the keys accepted by SetValue and their value types.
var settableKeys = map[string]valueKind{
	keyEmbedProvider: kindString, keyEmbedModel: kindString, keyEmbedBaseURL: kindString,
	keyEmbedAPIKey: kindString, keyEmbedDimensions: kindInt,
	keyLLMProvider: kindString, keyLLMModel: kindString, keyLLMBaseURL: kindString,
	keyLLMAPIKey: kindString, keyLLMTemperature: kindFloat, keyLLMMaxTokens: kindInt,
	keyChunkSize: kindInt, keyChunkOverlap: kindInt, keyMinSimilarity: kindFloat,
	keySimilarityWeight: kindFloat, keyPriorityWeight: kindFloat, keyMaxCandidates: kindInt,
	keyAnswerCacheTTL: kindInt, keyEmbedTimeout: kindInt, keyLLMTimeout: kindInt,
	keyCacheTimeout: kindInt, keyMaxAnswerRetries: kindInt, keyEmbedConcurrency: kindInt,
	keyEmbedBatchSize: kindInt, keyEmbedRate: kindFloat, keyExecutionCapacity: kindInt,
	keyDefaultTopK: kindInt,
	keyStorageBackend: kindString, keyStorageDataDir: kindString,
	keySourceKind: kindString, keySourcePath: kindString, keySourceWatch: kindBool,
	keyServerAddr: kindString, keyRulesPath: kindString, keySchedEnabled: kindBool,
	schedulerKey(domain.TaskIDIndexRefresh, "enabled"):   kindBool,
	schedulerKey(domain.TaskIDIndexRefresh, "interval"):  kindDuration,
	schedulerKey(domain.TaskIDExecutionPrune, "enabled"):  kindBool,
	schedulerKey(domain.TaskIDExecutionPrune, "interval"): kindDuration,
	schedulerKey(domain.TaskIDCacheSweep, "enabled"):      kindBool,
	schedulerKey(domain.TaskIDCacheSweep, "interval"):     kindDuration,
}

// schedulerKey maps a task ID to its TOML key, e.g. scheduler.index_refresh.interval.
func schedulerKey(taskID, field string) string {
	return "scheduler." + strings.ReplaceAll(taskID, "-", "_") + "." + field
}

// SettingsService maps AppSettings onto the flat keys of a ConfigStore.
// Keys absent from the store read as the defaults.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService wraps configStore. aiValidator may be nil.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get assembles AppSettings from the store. Empty models take the
// provider default and API keys fall back to the provider's environment
// variable.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDimensions, 0),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:       s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
		},
		Pipeline: s.getPipeline(defaults.Pipeline),
		Storage: domain.StorageSettings{
			Backend: domain.StorageBackend(s.getString(keyStorageBackend, string(defaults.Storage.Backend))),
			DataDir: s.configStore.GetString(keyStorageDataDir),
		},
		Source: domain.SourceSettings{
			Kind:  domain.SourceKind(s.getString(keySourceKind, string(defaults.Source.Kind))),
			Path:  s.configStore.GetString(keySourcePath),
			Watch: s.getBool(keySourceWatch, defaults.Source.Watch),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, defaults.Server.Addr),
		},
		Scheduler: s.GetSchedulerConfig(),
		RulesPath: s.configStore.GetString(keyRulesPath),
	}

	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.Embedding.Provider == domain.AIProviderLocal && settings.Embedding.Dimensions == 0 {
		settings.Embedding.Dimensions = defaults.Embedding.Dimensions
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = envAPIKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = envAPIKey(settings.LLM.Provider)
	}

	return settings, nil
}

func (s *SettingsService) getPipeline(d domain.PipelineSettings) domain.PipelineSettings {
	return domain.PipelineSettings{
		ChunkSize:          s.getInt(keyChunkSize, d.ChunkSize),
		ChunkOverlap:       s.getInt(keyChunkOverlap, d.ChunkOverlap),
		MinSimilarity:      s.getFloat(keyMinSimilarity, d.MinSimilarity),
		SimilarityWeight:   s.getFloat(keySimilarityWeight, d.SimilarityWeight),
		PriorityWeight:     s.getFloat(keyPriorityWeight, d.PriorityWeight),
		MaxCandidates:      s.getInt(keyMaxCandidates, d.MaxCandidates),
		AnswerCacheTTL:     s.getDuration(keyAnswerCacheTTL, time.Second, d.AnswerCacheTTL),
		EmbedTimeout:       s.getDuration(keyEmbedTimeout, time.Second, d.EmbedTimeout),
		LLMTimeout:         s.getDuration(keyLLMTimeout, time.Second, d.LLMTimeout),
		CacheTimeout:       s.getDuration(keyCacheTimeout, time.Millisecond, d.CacheTimeout),
		MaxAnswerRetries:   s.getInt(keyMaxAnswerRetries, d.MaxAnswerRetries),
		EmbedConcurrency:   s.getInt(keyEmbedConcurrency, d.EmbedConcurrency),
		EmbedBatchSize:     s.getInt(keyEmbedBatchSize, d.EmbedBatchSize),
		EmbedRatePerSecond: s.getFloat(keyEmbedRate, d.EmbedRatePerSecond),
		ExecutionCapacity:  s.getInt(keyExecutionCapacity, d.ExecutionCapacity),
		DefaultTopK:        s.getInt(keyDefaultTopK, d.DefaultTopK),
	}
}

func envAPIKey(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return os.Getenv(EnvOpenAIAPIKey)
	case domain.AIProviderAnthropic:
		return os.Getenv(EnvAnthropicAPIKey)
	case domain.AIProviderGemini:
		return os.Getenv(EnvGeminiAPIKey)
	default:
		return ""
	}
}

// Save persists the provider, storage, source and server settings.
// API keys are only written when set; pipeline tuning is left to SetValue.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	type entry struct {
		key   string
		value any
	}
	values := []entry{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyStorageBackend, string(settings.Storage.Backend)},
		{keyStorageDataDir, settings.Storage.DataDir},
		{keySourceKind, string(settings.Source.Kind)},
		{keySourcePath, settings.Source.Path},
		{keySourceWatch, settings.Source.Watch},
		{keyServerAddr, settings.Server.Addr},
		{keyRulesPath, settings.RulesPath},
	}
	if settings.Embedding.Dimensions > 0 {
		values = append(values, entry{keyEmbedDimensions, settings.Embedding.Dimensions})
	}
	if settings.Embedding.APIKey != "" {
		values = append(values, entry{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" {
		values = append(values, entry{keyLLMAPIKey, settings.LLM.APIKey})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	return nil
}

// SetValue parses raw according to the key's type and stores it.
// Unknown keys and unparsable values return domain.ErrInvalidInput.
func (s *SettingsService) SetValue(key, raw string) error {
	kind, ok := settableKeys[key]
	if !ok {
		return &domain.ValidationError{Field: key, Reason: "unknown setting"}
	}

	var value any
	var err error
	switch kind {
	case kindInt:
		value, err = strconv.Atoi(raw)
	case kindFloat:
		value, err = strconv.ParseFloat(raw, 64)
	case kindBool:
		value, err = strconv.ParseBool(raw)
	case kindDuration:
		_, err = time.ParseDuration(raw)
		value = raw
	default:
		value = raw
	}
	if err != nil {
		return &domain.ValidationError{Field: key, Reason: fmt.Sprintf("cannot parse %q", raw)}
	}

	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SettableKeys returns the keys accepted by SetValue, sorted.
func (s *SettingsService) SettableKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

const localBaseURL = "http://localhost:11434"

// checkProvider confirms provider offers capability and resolves its API
// key, falling back to the provider's environment variable.
func checkProvider(provider domain.AIProvider, supported []domain.AIProvider, role, capability, apiKey string) (string, error) {
	if !provider.IsValid() {
		return "", fmt.Errorf("invalid %s provider: %s", role, provider)
	}
	if !slices.Contains(supported, provider) {
		return "", fmt.Errorf("provider %s does not support %s", provider, capability)
	}
	if apiKey == "" {
		apiKey = envAPIKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return "", fmt.Errorf("API key required for %s", provider)
	}
	return apiKey, nil
}

// localURL keeps a configured Ollama base URL and clears it for every
// other provider.
func localURL(provider domain.AIProvider, current string) string {
	switch {
	case provider != domain.AIProviderOllama:
		return ""
	case current == "":
		return localBaseURL
	default:
		return current
	}
}

// SetEmbeddingProvider switches the embedding provider. An empty model
// selects the provider default, and dimensions follow the model.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	key, err := checkProvider(provider, domain.AllEmbeddingProviders(), "embedding", "embeddings", apiKey)
	if err != nil {
		return err
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}
	settings.Embedding = domain.EmbeddingSettings{
		Provider:   provider,
		Model:      model,
		APIKey:     key,
		BaseURL:    localURL(provider, settings.Embedding.BaseURL),
		Dimensions: domain.EmbeddingDimensions()[model],
	}
	return s.Save(settings)
}

// SetLLMProvider switches the answer model. An empty model selects the
// provider default.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	key, err := checkProvider(provider, domain.AllLLMProviders(), "LLM", "text generation", apiKey)
	if err != nil {
		return err
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}
	settings.LLM.Provider = provider
	settings.LLM.Model = model
	settings.LLM.APIKey = key
	settings.LLM.BaseURL = localURL(provider, settings.LLM.BaseURL)
	return s.Save(settings)
}

// Validate checks that the stored settings can drive the workflow.
// An unconfigured LLM is allowed; answers are then extractive.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider)
	}
	if settings.LLM.Provider != "" && !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider %q is not configured", settings.LLM.Provider)
	}
	if !settings.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: storage backend %q", domain.ErrUnsupportedType, settings.Storage.Backend)
	}
	if !settings.Source.Kind.IsValid() {
		return fmt.Errorf("%w: source kind %q", domain.ErrUnsupportedType, settings.Source.Kind)
	}

	p := settings.Pipeline
	if p.ChunkSize <= 0 || p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return &domain.ValidationError{Field: "pipeline.chunk_overlap", Reason: "must be below chunk_size"}
	}
	if p.SimilarityWeight < 0 || p.PriorityWeight < 0 {
		return &domain.ValidationError{Field: "pipeline.similarity_weight", Reason: "weights must be non-negative"}
	}
	if p.DefaultTopK <= 0 || p.DefaultTopK > domain.MaxTopK {
		return &domain.ValidationError{Field: "pipeline.default_top_k", Reason: "must be between 1 and 100"}
	}

	return nil
}

// GetDefaults returns the settings used when nothing is stored.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig pings the stored embedding provider. Without a
// validator every configuration passes.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	return s.validate(func(v driven.AIConfigValidator, st *domain.AppSettings) error {
		return v.ValidateEmbedding(&st.Embedding)
	})
}

// ValidateLLMConfig pings the stored LLM provider.
func (s *SettingsService) ValidateLLMConfig() error {
	return s.validate(func(v driven.AIConfigValidator, st *domain.AppSettings) error {
		return v.ValidateLLM(&st.LLM)
	})
}

func (s *SettingsService) validate(check func(driven.AIConfigValidator, *domain.AppSettings) error) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return check(s.aiValidator, settings)
}

// Typed reads with fallbacks. Strings and ints treat the zero value as
// unset; floats and bools check presence so that 0 and false can be stored.

func (s *SettingsService) getString(key, fallback string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return fallback
}

func (s *SettingsService) getInt(key string, fallback int) int {
	if v := s.configStore.GetInt(key); v != 0 {
		return v
	}
	return fallback
}

func (s *SettingsService) has(key string) bool {
	_, ok := s.configStore.Get(key)
	return ok
}

func (s *SettingsService) getFloat(key string, fallback float64) float64 {
	if !s.has(key) {
		return fallback
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, fallback bool) bool {
	if !s.has(key) {
		return fallback
	}
	return s.configStore.GetBool(key)
}

// getDuration reads a positive integer count of unit.
func (s *SettingsService) getDuration(key string, unit, fallback time.Duration) time.Duration {
	if v := s.configStore.GetInt(key); v > 0 {
		return time.Duration(v) * unit
	}
	return fallback
}

func (s *SettingsService) getProvider(key string, fallback domain.AIProvider) domain.AIProvider {
	if p := domain.AIProvider(s.configStore.GetString(key)); p.IsValid() {
		return p
	}
	return fallback
}

// GetSchedulerConfig overlays the stored scheduler keys on the defaults.
// Intervals are Go duration strings; unparsable or non-positive ones are
// ignored.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()
	cfg.Enabled = s.getBool(keySchedEnabled, cfg.Enabled)

	for _, def := range domain.BuiltinTasks() {
		tc := cfg.TaskConfigs[def.ID]
		tc.Enabled = s.getBool(schedulerKey(def.ID, "enabled"), tc.Enabled)
		if d, err := time.ParseDuration(s.configStore.GetString(schedulerKey(def.ID, "interval"))); err == nil && d > 0 {
			tc.Interval = d
		}
		cfg.TaskConfigs[def.ID] = tc
	}
	return cfg
}
