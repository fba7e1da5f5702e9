// Package ai builds the embedding and LLM adapters selected in settings.
package ai

import (
	"context"
	"fmt"
	"time"

	geminiembed "github.com/custodia-labs/mailbrain/internal/adapters/driven/embedding/gemini"
	localembed "github.com/custodia-labs/mailbrain/internal/adapters/driven/embedding/local"
	ollamaembed "github.com/custodia-labs/mailbrain/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/mailbrain/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/mailbrain/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/mailbrain/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/mailbrain/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
)

// fixHint is appended to provider errors.
const fixHint = "Run 'mailbrain config set' to fix"

// InitResult holds the services built from settings.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService

	// Warnings lists provider problems that were worked around.
	Warnings []string

	// FellBack reports that a configured embedding provider was unreachable
	// and the local embedder is used instead.
	FellBack bool
}

// Close releases both services.
func (r *InitResult) Close() {
	for _, c := range []interface{ Close() error }{r.EmbeddingService, r.LLMService} {
		if c == nil {
			continue
		}
		_ = c.Close()
	}
}

// Initialise builds the embedding and LLM services and pings them.
// An unreachable embedding provider is replaced by the local embedder so the
// index stays usable. An unreachable LLM leaves LLMService nil and answers
// fall back to extractive summaries.
func Initialise(settings *domain.AppSettings) *InitResult {
	result := &InitResult{}

	embedder, err := openEmbedder(&settings.Embedding, defaultPingTimeout)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	if embedder == nil {
		result.FellBack = settings.Embedding.Provider != domain.AIProviderLocal
		embedder = localembed.NewEmbeddingService(settings.Embedding.Dimensions)
	}
	result.EmbeddingService = embedder

	llm, err := openLLM(&settings.LLM, defaultPingTimeout)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	result.LLMService = llm

	return result
}

// openEmbedder builds and pings the configured embedder. It returns nil
// without error when no provider is configured.
func openEmbedder(settings *domain.EmbeddingSettings, timeout time.Duration) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}
	if err := pingWithTimeout(svc, timeout); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	return svc, nil
}

// openLLM is openEmbedder for language models.
func openLLM(settings *domain.LLMSettings, timeout time.Duration) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}
	if err := pingWithTimeout(svc, timeout); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderLocal:
		return localembed.NewEmbeddingService(settings.Dimensions), nil

	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderGemini:
		return createGeminiEmbedding(settings)

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not support embeddings, use local, ollama, openai or gemini")

	default:
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// embeddingDimensions resolves the configured or known vector size for a model.
func embeddingDimensions(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	return domain.EmbeddingDimensions()[settings.Model]
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := embeddingDimensions(settings)
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: embeddingDimensions(settings),
	})
}

// createGeminiEmbedding creates a Gemini embedding service.
func createGeminiEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return geminiembed.NewEmbeddingService(context.Background(), geminiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: embeddingDimensions(settings),
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
