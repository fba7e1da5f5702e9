package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
	"github.com/custodia-labs/mailbrain/internal/logger"
)

// maxAnswerRetries caps configured retries; a model call is never tried
// more than twice.
const maxAnswerRetries = 1

// contentLength bounds the message text placed in each evidence block.
const contentLength = 1000

var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// MessageLookup resolves a message id to the indexed message.
type MessageLookup func(id string) (domain.Message, bool)

// AnswerGenerator produces grounded, cited answers from ranked candidates.
type AnswerGenerator struct {
	llm      driven.LLMService
	cache    driven.Cache
	prompts  driven.PromptStore
	lookup   MessageLookup
	settings domain.PipelineSettings
	genOpts  driven.GenerateOptions
}

// NewAnswerGenerator creates an answer generator.
// The llm, cache, prompts and lookup parameters are optional (can be nil).
// Without an LLM, answers are extractive summaries of the candidates.
func NewAnswerGenerator(
	llm driven.LLMService,
	cache driven.Cache,
	prompts driven.PromptStore,
	lookup MessageLookup,
	settings domain.PipelineSettings,
	llmSettings domain.LLMSettings,
) *AnswerGenerator {
	return &AnswerGenerator{
		llm:      llm,
		cache:    cache,
		prompts:  prompts,
		lookup:   lookup,
		settings: settings,
		genOpts: driven.GenerateOptions{
			MaxTokens:   llmSettings.MaxTokens,
			Temperature: llmSettings.Temperature,
		},
	}
}

// Generate answers question from candidates.
//
// With no candidates it returns domain.NoEvidenceAnswer without calling the
// model. Answers are memoised by Fingerprint of the question and candidate
// ids. A failing model call is retried pipeline.max_answer_retries times,
// never more than once, then reported as a *domain.StepFailure.
func (g *AnswerGenerator) Generate(
	ctx context.Context, question string, candidates []domain.RankedCandidate,
) (*domain.Answer, error) {
	if len(candidates) == 0 {
		return &domain.Answer{Text: domain.NoEvidenceAnswer, Citations: []domain.Citation{}}, nil
	}
	if g.llm == nil {
		logger.Debug("No LLM configured, using extractive answer")
		return g.extractive(candidates), nil
	}

	ids := make([]string, len(candidates))
	for i := range candidates {
		ids[i] = candidates[i].Result.MessageID
	}
	fingerprint := Fingerprint(question, ids)
	key := "answer:" + fingerprint

	answer, cached, err := Memoize(ctx, g.cache, key, g.settings.AnswerCacheTTL, g.settings.CacheTimeout,
		func(ctx context.Context) (domain.Answer, error) {
			return g.generateLive(ctx, question, candidates)
		})
	if err != nil {
		return nil, err
	}
	answer.Cached = cached
	answer.Fingerprint = fingerprint
	if answer.Citations == nil {
		answer.Citations = []domain.Citation{}
	}
	return &answer, nil
}

func (g *AnswerGenerator) generateLive(
	ctx context.Context, question string, candidates []domain.RankedCandidate,
) (domain.Answer, error) {
	system, user := g.buildPrompt(question, candidates)
	opts := g.genOpts
	opts.System = system

	attempts := min(max(g.settings.MaxAnswerRetries, 0), maxAnswerRetries) + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := g.call(ctx, user, opts)
		if err == nil {
			text = strings.TrimSpace(text)
			if text != "" {
				return domain.Answer{
					Text:      text,
					Citations: extractCitations(text, candidates),
					Attempts:  attempt,
				}, nil
			}
			err = fmt.Errorf("%w: empty completion", domain.ErrMalformedResponse)
		}
		lastErr = err
		logger.Warn("Answer attempt %d/%d failed: %v", attempt, attempts, err)
		if ctx.Err() != nil {
			break
		}
	}
	return domain.Answer{}, &domain.StepFailure{Step: domain.StepAnswerGeneration, Err: lastErr}
}

func (g *AnswerGenerator) call(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	cctx, cancel := withOptionalTimeout(ctx, g.settings.LLMTimeout)
	defer cancel()
	return g.llm.Generate(cctx, prompt, opts)
}

// buildPrompt renders the system prompt and the numbered evidence blocks.
func (g *AnswerGenerator) buildPrompt(question string, candidates []domain.RankedCandidate) (string, string) {
	system := g.loadPrompt(driven.PromptAnswerSystem, domain.DefaultAnswerSystemPrompt)
	userTemplate := g.loadPrompt(driven.PromptAnswerUser, domain.DefaultAnswerUserPrompt)
	return system, fmt.Sprintf(userTemplate, g.evidenceBlocks(candidates), question)
}

func (g *AnswerGenerator) loadPrompt(name, fallback string) string {
	if g.prompts == nil {
		return fallback
	}
	p, err := g.prompts.Load(name)
	if err != nil || strings.TrimSpace(p) == "" {
		logger.Debug("Using built-in %s prompt: %v", name, err)
		return fallback
	}
	return p
}

func (g *AnswerGenerator) evidenceBlocks(candidates []domain.RankedCandidate) string {
	var b strings.Builder
	for i := range candidates {
		r := candidates[i].Result
		content := r.Snippet
		if g.lookup != nil {
			if msg, ok := g.lookup(r.MessageID); ok {
				content = truncateRunes(msg.Body, contentLength)
			}
		}
		date := ""
		if !r.Timestamp.IsZero() {
			date = r.Timestamp.Format("2006-01-02 15:04")
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%d]\nSubject: %s\nFrom: %s\nDate: %s\nContent: %s\n",
			i+1, r.Subject, r.Sender, date, content)
	}
	return b.String()
}

// extractCitations maps [n] markers to candidates. Unknown markers are
// dropped and repeats are cited once. An answer that cites nothing cites
// the top candidate.
func extractCitations(text string, candidates []domain.RankedCandidate) []domain.Citation {
	seen := make(map[int]struct{})
	var citations []domain.Citation
	for _, m := range citationMarker.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(candidates) {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		citations = append(citations, citationFor(&candidates[n-1]))
	}
	if len(citations) == 0 {
		citations = append(citations, citationFor(&candidates[0]))
	}
	return citations
}

func citationFor(c *domain.RankedCandidate) domain.Citation {
	return domain.Citation{
		MessageID: c.Result.MessageID,
		Subject:   c.Result.Subject,
		Snippet:   c.Result.Snippet,
	}
}

// extractive lists the candidates when no language model is configured.
func (g *AnswerGenerator) extractive(candidates []domain.RankedCandidate) *domain.Answer {
	var b strings.Builder
	b.WriteString("Based on the retrieved emails, here is the relevant information:\n")
	citations := make([]domain.Citation, len(candidates))
	for i := range candidates {
		r := candidates[i].Result
		fmt.Fprintf(&b, "\n[%d] %s (from %s)\n%s\n", i+1, r.Subject, r.Sender, r.Snippet)
		citations[i] = citationFor(&candidates[i])
	}
	b.WriteString("\nNo language model is configured; this is the retrieved context only.")
	return &domain.Answer{Text: b.String(), Citations: citations, Attempts: 0}
}
