package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
)

// RuntimeConfig lists the collaborators a Runtime is assembled from.
// Embedder is required. LLM, Cache, Prompts and Source are optional.
type RuntimeConfig struct {
	Settings       domain.AppSettings
	Rules          domain.ClassificationRules
	Embedder       driven.EmbeddingService
	LLM            driven.LLMService
	Cache          driven.Cache
	Prompts        driven.PromptStore
	Source         driven.MessageSource
	Store          driven.ExecutionStore
	SchedulerStore driven.SchedulerStore
}

// Runtime holds every service and collaborator of one process.
// It is built once at startup and passed to the driving adapters; the core
// has no global state.
type Runtime struct {
	Settings domain.AppSettings
	Store    driven.ExecutionStore

	Index      *IndexService
	Intents    *IntentClassifier
	Classifier *Classifier
	Answers    *AnswerGenerator
	Workflow   *WorkflowService
	Insights   *InsightService

	schedulerStore driven.SchedulerStore
	cache          driven.Cache
	closers        []func() error
}

// NewRuntime wires the services together.
func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	if cfg.Embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if cfg.Store == nil {
		return nil, errors.New("runtime: execution store is required")
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}

	pipeline := cfg.Settings.Pipeline
	index := NewIndexService(cfg.Embedder, cfg.Source, pipeline)
	intents := NewIntentClassifier()
	classifier := NewClassifier(cfg.Rules, pipeline)
	answers := NewAnswerGenerator(cfg.LLM, cfg.Cache, cfg.Prompts, index.Message, pipeline, cfg.Settings.LLM)
	detector, err := NewThreatDetector(domain.DefaultThreatRules())
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Settings:       cfg.Settings,
		Store:          cfg.Store,
		Index:          index,
		Intents:        intents,
		Classifier:     classifier,
		Answers:        answers,
		Workflow:       NewWorkflowService(intents, index, classifier, answers, cfg.Store, pipeline),
		Insights:       NewInsightService(index, classifier, detector),
		schedulerStore: cfg.SchedulerStore,
		cache:          cfg.Cache,
	}, nil
}

// Scheduler returns a scheduler for the runtime's background tasks, or nil
// when no scheduler store was configured. The answer cache is swept when it
// supports it.
func (r *Runtime) Scheduler() *Scheduler {
	if r.schedulerStore == nil {
		return nil
	}
	s := NewScheduler(r.Settings.Scheduler, r.schedulerStore, r.Index, r.Store, r.Settings.Pipeline.ExecutionCapacity)
	if sweeper, ok := r.cache.(Sweeper); ok {
		s.WithCache(sweeper)
	}
	return s
}

// EnsureIndex builds the index from the source if it is empty.
// A missing source leaves the index empty.
func (r *Runtime) EnsureIndex(ctx context.Context) (domain.IndexStats, error) {
	if stats := r.Index.Stats(); !stats.BuiltAt.IsZero() {
		return stats, nil
	}
	stats, err := r.Index.Refresh(ctx)
	if errors.Is(err, domain.ErrSourceUnavailable) && r.Index.source == nil {
		return stats, nil
	}
	return stats, err
}

// OnClose registers a cleanup function run by Close in reverse order.
func (r *Runtime) OnClose(fn func() error) {
	r.closers = append(r.closers, fn)
}

// Close releases the runtime's collaborators.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
