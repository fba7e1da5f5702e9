package driven

import "context"

// LLMService completes a prompt. The answer generator treats the model as
// opaque text in, text out.
type LLMService interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	ModelName() string
	Ping(ctx context.Context) error
	Close() error
}

// GenerateOptions are passed through to the provider where it supports
// them. Zero values leave the provider default in place, except
// Temperature which is always sent.
type GenerateOptions struct {
	System      string
	MaxTokens   int
	Temperature float64
	StopWords   []string
}
