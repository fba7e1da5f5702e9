package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider, backend or source kind.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answer generation fails as a step without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// The semantic index cannot be built or queried without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSourceUnavailable indicates no message source is configured.
	ErrSourceUnavailable = errors.New("message source unavailable")

	// ErrCacheMiss is returned by caches when a key is absent or expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrMalformedResponse indicates a collaborator returned an unusable response.
	ErrMalformedResponse = errors.New("malformed collaborator response")
)

// ValidationError reports malformed invocation input.
// It is raised before any execution record is created.
type ValidationError struct {
	// Field is the offending input field.
	Field string

	// Reason describes what is wrong with the field.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// StepFailure records that a workflow step's external dependency failed.
// The original error text is preserved as the step's error detail.
type StepFailure struct {
	// Step is the step that failed.
	Step StepName

	// Err is the underlying collaborator error.
	Err error
}

func (e *StepFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("step %s failed", e.Step)
	}
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

// Unwrap returns the underlying collaborator error.
func (e *StepFailure) Unwrap() error {
	return e.Err
}

// Detail returns the original error text for storage on the step record.
func (e *StepFailure) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// NotFoundError reports a lookup of an unknown entity.
type NotFoundError struct {
	// Kind is the entity kind, e.g. "execution".
	Kind string

	// ID is the identifier that was looked up.
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
