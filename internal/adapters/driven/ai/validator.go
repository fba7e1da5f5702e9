package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
)

// defaultPingTimeout bounds a single connectivity check.
const defaultPingTimeout = 5 * time.Second

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings by building a client and
// pinging it. Unconfigured providers pass.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator returns a validator using the default ping timeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: defaultPingTimeout}
}

// ValidateEmbedding pings the embedding provider described by config.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(config)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close() //nolint:errcheck // ping client
	return pingWithTimeout(svc, v.timeout)
}

// ValidateLLM pings the LLM provider described by config.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	svc, err := CreateLLMService(config)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close() //nolint:errcheck // ping client
	return pingWithTimeout(svc, v.timeout)
}

func pingWithTimeout(svc interface{ Ping(context.Context) error }, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return svc.Ping(ctx)
}
