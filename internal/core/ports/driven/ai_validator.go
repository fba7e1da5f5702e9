package driven

import "github.com/custodia-labs/mailbrain/internal/core/domain"

// AIConfigValidator checks provider settings against the live provider
// before they are saved. Unconfigured settings pass.
type AIConfigValidator interface {
	ValidateEmbedding(config *domain.EmbeddingSettings) error
	ValidateLLM(config *domain.LLMSettings) error
}
