package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrSourceUnavailable", ErrSourceUnavailable},
		{"ErrCacheMiss", ErrCacheMiss},
		{"ErrMalformedResponse", ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestValidationError(t *testing.T) {
	err := error(&ValidationError{Field: "top_k", Reason: "must be a positive integer"})

	assert.Equal(t, "invalid top_k: must be a positive integer", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var ve *ValidationError
	wrapped := fmt.Errorf("invoke: %w", err)
	assert.True(t, errors.As(wrapped, &ve))
	assert.Equal(t, "top_k", ve.Field)
}

func TestStepFailure(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &StepFailure{Step: StepAnswerGeneration, Err: cause}

	assert.Equal(t, "step answer_generation failed: dial tcp: connection refused", err.Error())
	assert.Equal(t, "dial tcp: connection refused", err.Detail())
	assert.True(t, errors.Is(err, cause))

	empty := &StepFailure{Step: StepSemanticSearch}
	assert.Equal(t, "step semantic_search failed", empty.Error())
	assert.Empty(t, empty.Detail())
}

func TestNotFoundError(t *testing.T) {
	err := error(&NotFoundError{Kind: "execution", ID: "abc"})

	assert.Equal(t, `execution "abc" not found`, err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(fmt.Errorf("get: %w", err), ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidInput))
}
