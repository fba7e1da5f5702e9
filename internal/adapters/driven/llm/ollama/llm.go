// Package ollama answers prompts with a local Ollama chat model.
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/mailbrain/internal/adapters/driven/ollama"
	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = ollama.DefaultBaseURL
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig configures the Ollama chat client.
type LLMConfig struct {
	BaseURL string
	Model   string

	// Timeout bounds one HTTP round trip. The answer generator applies its
	// own, usually shorter, per-call deadline on top.
	Timeout time.Duration
}

// LLMService calls /api/chat with a system and a user message.
type LLMService struct {
	client *ollama.Client
	model  string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatResponse struct {
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason,omitempty"`
}

// NewLLMService returns a chat client, filling in defaults.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	return &LLMService{
		client: ollama.NewClient(cfg.BaseURL, cfg.Timeout),
		model:  cfg.Model,
	}
}

// Generate sends prompt as the user turn and returns the reply text.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := chatRequest{
		Model:    s.model,
		Messages: buildMessages(opts.System, prompt),
		Options:  buildOptions(opts),
	}

	var resp chatResponse
	if err := s.client.Post(ctx, "/api/chat", req, &resp); err != nil {
		if ollama.IsModelMissing(err) {
			return "", fmt.Errorf("%w: model %s is not pulled (ollama pull %s)", domain.ErrLLMUnavailable, s.model, s.model)
		}
		return "", err
	}
	if !resp.Done {
		return "", fmt.Errorf("%w: ollama returned an unfinished reply", domain.ErrMalformedResponse)
	}
	return resp.Message.Content, nil
}

func buildMessages(system, prompt string) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	return append(msgs, chatMessage{Role: "user", Content: prompt})
}

// buildOptions keeps an explicit zero temperature, which matters for
// reproducible answers.
func buildOptions(opts driven.GenerateOptions) *chatOptions {
	o := &chatOptions{NumPredict: opts.MaxTokens, Stop: opts.StopWords}
	t := opts.Temperature
	o.Temperature = &t
	return o
}

// ModelName returns the chat model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the server answers without loading the model.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (s *LLMService) Close() error {
	return nil
}
