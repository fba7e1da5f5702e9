// Package driven holds the outbound ports: everything the core services
// need from storage, providers and message sources.
//
// The workflow cannot run without a MessageSource, an EmbeddingService and
// an ExecutionStore. An LLMService, Cache, PromptStore or SchedulerStore
// may be nil:
//
//   - no LLMService: answers are extractive summaries of the evidence
//   - no Cache: every answer is generated live
//   - no PromptStore: built-in prompts are used
//   - no SchedulerStore: only `mailbrain serve` needs one
//
// Adapters implement these interfaces; this package imports only domain.
package driven
