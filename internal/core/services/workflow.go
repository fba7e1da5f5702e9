package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driving"
	"github.com/custodia-labs/mailbrain/internal/logger"
)

// Ensure WorkflowService implements the interface.
var _ driving.WorkflowService = (*WorkflowService)(nil)

// DefaultListLimit is used when ListRecent is called without a limit.
const DefaultListLimit = 20

// CorpusSearcher is the part of the semantic index the workflow needs.
type CorpusSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
	Lookup(ids ...string) []domain.Message
}

// Answerer produces a cited answer from ranked candidates.
type Answerer interface {
	Generate(ctx context.Context, question string, candidates []domain.RankedCandidate) (*domain.Answer, error)
}

// WorkflowService runs the four workflow steps in a fixed order and records
// every transition in the execution store.
type WorkflowService struct {
	intents    *IntentClassifier
	index      CorpusSearcher
	classifier *Classifier
	answers    Answerer
	store      driven.ExecutionStore
	settings   domain.PipelineSettings

	newID func() string
	now   func() time.Time
}

// NewWorkflowService creates a workflow service.
func NewWorkflowService(
	intents *IntentClassifier,
	index CorpusSearcher,
	classifier *Classifier,
	answers Answerer,
	store driven.ExecutionStore,
	settings domain.PipelineSettings,
) *WorkflowService {
	return &WorkflowService{
		intents:    intents,
		index:      index,
		classifier: classifier,
		answers:    answers,
		store:      store,
		settings:   settings,
		newID:      uuid.NewString,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// run carries values between steps of one execution.
type run struct {
	req     domain.InvokeRequest
	intent  domain.IntentResult
	results []domain.SearchResult
	ranked  []domain.RankedCandidate
	answer  *domain.Answer
}

type stepFunc func(ctx context.Context, r *run) (any, error)

// Outputs recorded on the step records.
type searchOutput struct {
	Query   string                `json:"query"`
	Results []domain.SearchResult `json:"results"`
}

type rankingOutput struct {
	Candidates []domain.RankedCandidate `json:"candidates"`
}

type answerOutput struct {
	Answer    string `json:"answer"`
	Citations int    `json:"citations"`
	Cached    bool   `json:"cached"`
	Attempts  int    `json:"attempts"`
}

// Invoke validates req, then runs every step and returns the final record.
// A failing step marks the remaining steps skipped and the execution
// partial; the record is still returned without an error.
//
// Cancelling ctx does not abort a started execution. Steps are bounded only
// by their per-call timeouts, so the stored record always reaches a final
// status.
func (s *WorkflowService) Invoke(ctx context.Context, req domain.InvokeRequest) (*domain.WorkflowExecution, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	exec := domain.NewWorkflowExecution(s.newID(), req.Question, req.TopK, s.now())
	logger.Section("Workflow " + exec.ID)
	logger.Debug("Question: %q, top_k=%d", req.Question, req.TopK)

	if err := s.store.Save(ctx, exec); err != nil {
		return nil, fmt.Errorf("persist execution: %w", err)
	}

	steps := map[domain.StepName]stepFunc{
		domain.StepIntentDetection:       s.detectIntent,
		domain.StepSemanticSearch:        s.search,
		domain.StepClassificationRanking: s.rank,
		domain.StepAnswerGeneration:      s.answer,
	}

	r := &run{req: req}
	failed := false
	for i := range exec.Steps {
		step := &exec.Steps[i]
		if failed {
			step.Status = domain.StepSkipped
			continue
		}

		started := s.now()
		step.Status = domain.StepRunning
		step.StartedAt = &started
		s.persist(ctx, exec)

		out, err := steps[step.Name](ctx, r)
		completed := s.now()
		step.CompletedAt = &completed

		if err != nil {
			step.Status = domain.StepError
			step.Error = errorDetail(err)
			failed = true
			logger.Warn("Step %s failed: %v", step.Name, err)
		} else {
			step.Status = domain.StepCompleted
			step.Output = encodeOutput(out)
			logger.Debug("Step %s completed in %s", step.Name, completed.Sub(started))
		}
		s.persist(ctx, exec)
	}

	s.finalize(exec, r, failed)
	s.persist(ctx, exec)

	logger.Info("Workflow %s finished: %s", exec.ID, exec.Status)
	return exec.Clone(), nil
}

func (s *WorkflowService) finalize(exec *domain.WorkflowExecution, r *run, failed bool) {
	exec.Intent = r.intent.Intent
	if r.answer != nil {
		exec.Answer = r.answer.Text
		exec.Citations = append([]domain.Citation{}, r.answer.Citations...)
	} else {
		exec.Answer = domain.AnswerUnavailable
		exec.Citations = []domain.Citation{}
	}

	if failed {
		exec.Status = domain.ExecutionPartial
	} else {
		exec.Status = domain.ExecutionCompleted
	}
	done := s.now()
	exec.CompletedAt = &done
}

// persist saves a snapshot of exec. Failures are logged and the run
// continues; the caller still receives the record.
func (s *WorkflowService) persist(ctx context.Context, exec *domain.WorkflowExecution) {
	exec.UpdatedAt = s.now()
	if err := s.store.Save(ctx, exec); err != nil {
		logger.Warn("Persist execution %s failed: %v", exec.ID, err)
	}
}

func (s *WorkflowService) detectIntent(_ context.Context, r *run) (any, error) {
	r.intent = s.intents.ClassifyIntent(r.req.Question)
	logger.Debug("Intent %s (%.2f), query %q", r.intent.Intent, r.intent.Confidence, r.intent.Query)
	return r.intent, nil
}

func (s *WorkflowService) search(ctx context.Context, r *run) (any, error) {
	results, err := s.index.Search(ctx, r.intent.Query, r.req.TopK)
	if err != nil {
		return nil, &domain.StepFailure{Step: domain.StepSemanticSearch, Err: err}
	}
	r.results = results
	return searchOutput{Query: r.intent.Query, Results: results}, nil
}

func (s *WorkflowService) rank(_ context.Context, r *run) (any, error) {
	ids := make([]string, len(r.results))
	for i := range r.results {
		ids[i] = r.results[i].MessageID
	}
	classifications := s.classifier.Classify(s.index.Lookup(ids...))

	limit := r.req.TopK
	if s.settings.MaxCandidates > 0 && s.settings.MaxCandidates < limit {
		limit = s.settings.MaxCandidates
	}
	r.ranked = s.classifier.Rank(r.results, classifications, limit)
	return rankingOutput{Candidates: r.ranked}, nil
}

func (s *WorkflowService) answer(ctx context.Context, r *run) (any, error) {
	answer, err := s.answers.Generate(ctx, r.req.Question, r.ranked)
	if err != nil {
		var sf *domain.StepFailure
		if !errors.As(err, &sf) {
			err = &domain.StepFailure{Step: domain.StepAnswerGeneration, Err: err}
		}
		return nil, err
	}
	r.answer = answer
	return answerOutput{
		Answer:    answer.Text,
		Citations: len(answer.Citations),
		Cached:    answer.Cached,
		Attempts:  answer.Attempts,
	}, nil
}

// Get returns a stored execution.
func (s *WorkflowService) Get(ctx context.Context, id string) (*domain.WorkflowExecution, error) {
	return s.store.Get(ctx, id)
}

// ListRecent returns execution summaries, newest first.
func (s *WorkflowService) ListRecent(ctx context.Context, limit int) ([]domain.ExecutionSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	execs, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	out := make([]domain.ExecutionSummary, len(execs))
	for i := range execs {
		out[i] = execs[i].Summary()
	}
	return out, nil
}

// errorDetail keeps the collaborator's original error text.
func errorDetail(err error) string {
	var sf *domain.StepFailure
	if errors.As(err, &sf) && sf.Err != nil {
		return sf.Detail()
	}
	return err.Error()
}

func encodeOutput(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warn("Encode step output: %v", err)
		return nil
	}
	return data
}
