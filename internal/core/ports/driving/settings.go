package driving

import "github.com/custodia-labs/mailbrain/internal/core/domain"

// SettingsService reads and edits the persisted AppSettings used to build
// the runtime. It backs the `config` commands.
type SettingsService interface {
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error
	GetDefaults() domain.AppSettings

	// SetEmbeddingProvider and SetLLMProvider replace the provider block,
	// filling the provider's default model when model is empty.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate reports the first field that would stop the workflow from
	// running with the stored settings.
	Validate() error

	// ValidateEmbeddingConfig and ValidateLLMConfig ping the configured
	// providers.
	ValidateEmbeddingConfig() error
	ValidateLLMConfig() error
}
