package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driving"
	"github.com/custodia-labs/mailbrain/internal/logger"
	"github.com/custodia-labs/mailbrain/internal/postprocessors/chunker"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// snippetLength is the number of body characters shown in search results.
const snippetLength = 200

// indexSnapshot is an immutable, fully built index. It is published whole
// and never modified afterwards.
type indexSnapshot struct {
	chunks   []domain.Chunk
	norms    []float64
	messages []domain.Message
	byID     map[string]int
	stats    domain.IndexStats
}

func emptySnapshot() *indexSnapshot {
	return &indexSnapshot{byID: map[string]int{}}
}

// IndexService is the in-memory semantic index over the message corpus.
// Searches read the published snapshot without locking; Build prepares a
// new snapshot off to the side and swaps it in atomically.
type IndexService struct {
	embedder driven.EmbeddingService
	source   driven.MessageSource
	chunker  *chunker.Processor
	settings domain.PipelineSettings
	limiter  *rate.Limiter

	current atomic.Pointer[indexSnapshot]
	buildMu sync.Mutex
	now     func() time.Time
}

// NewIndexService creates an empty index. The source is optional and only
// needed for Refresh.
func NewIndexService(
	embedder driven.EmbeddingService,
	source driven.MessageSource,
	settings domain.PipelineSettings,
) *IndexService {
	s := &IndexService{
		embedder: embedder,
		source:   source,
		chunker:  chunker.New(chunker.WithChunkSize(settings.ChunkSize), chunker.WithOverlap(settings.ChunkOverlap)),
		settings: settings,
		now:      time.Now,
	}
	if settings.EmbedRatePerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(settings.EmbedRatePerSecond), 1)
	}
	s.current.Store(emptySnapshot())
	return s
}

// Build chunks and embeds messages and replaces the index.
// Invalid and duplicate messages are skipped with a warning.
// On error the previous index stays published.
func (s *IndexService) Build(ctx context.Context, messages []domain.Message) (domain.IndexStats, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	logger.Section("Index Build")
	start := s.now()

	kept, skipped := s.acceptMessages(messages)
	logger.Debug("Accepted %d messages, skipped %d", len(kept), skipped)

	var chunks []domain.Chunk
	for i := range kept {
		chunks = append(chunks, s.chunker.ChunkMessage(&kept[i])...)
	}
	logger.Debug("Produced %d chunks", len(chunks))

	snap := &indexSnapshot{
		chunks:   chunks,
		messages: kept,
		byID:     make(map[string]int, len(kept)),
	}
	for i := range kept {
		snap.byID[kept[i].ID] = i
	}

	if len(chunks) > 0 {
		if s.embedder == nil {
			return domain.IndexStats{}, domain.ErrEmbeddingUnavailable
		}
		if err := s.embedChunks(ctx, chunks); err != nil {
			logger.Warn("Index build failed: %v", err)
			return domain.IndexStats{}, fmt.Errorf("embed chunks: %w", err)
		}
		norms, dims, err := vectorNorms(chunks)
		if err != nil {
			return domain.IndexStats{}, err
		}
		snap.norms = norms
		snap.stats.Dimensions = dims
	}

	snap.stats.Messages = len(kept)
	snap.stats.Chunks = len(chunks)
	snap.stats.Skipped = skipped
	snap.stats.BuiltAt = s.now()
	snap.stats.Corpus = domain.ComputeCorpusStats(kept)
	if s.embedder != nil {
		snap.stats.Model = s.embedder.ModelName()
	}

	s.current.Store(snap)
	logger.Info("Index published: %d messages, %d chunks in %s",
		snap.stats.Messages, snap.stats.Chunks, s.now().Sub(start).Round(time.Millisecond))
	return snap.stats, nil
}

// acceptMessages drops invalid messages and later duplicates of an id.
func (s *IndexService) acceptMessages(messages []domain.Message) ([]domain.Message, int) {
	kept := make([]domain.Message, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	skipped := 0
	for i := range messages {
		msg := messages[i]
		if err := msg.Validate(); err != nil {
			logger.Warn("Skipping message %q: %v", msg.ID, err)
			skipped++
			continue
		}
		if _, dup := seen[msg.ID]; dup {
			logger.Warn("Skipping duplicate message %q", msg.ID)
			skipped++
			continue
		}
		seen[msg.ID] = struct{}{}
		msg.Recipients = append([]string(nil), msg.Recipients...)
		kept = append(kept, msg)
	}
	return kept, skipped
}

// embedChunks fills in chunk embeddings using bounded parallel batches.
// Each batch writes a disjoint range of chunks.
func (s *IndexService) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	batchSize := s.settings.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	concurrency := s.settings.EmbedConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		batch := chunks[start:end]
		g.Go(func() error {
			return s.embedBatch(gctx, batch)
		})
	}
	return g.Wait()
}

func (s *IndexService) embedBatch(ctx context.Context, batch []domain.Chunk) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Content
	}

	ectx, cancel := withOptionalTimeout(ctx, s.settings.EmbedTimeout)
	defer cancel()

	vectors, err := s.embedder.EmbedBatch(ectx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("%w: got %d embeddings for %d texts",
			domain.ErrMalformedResponse, len(vectors), len(batch))
	}
	for i := range batch {
		batch[i].Embedding = vectors[i]
	}
	return nil
}

// vectorNorms checks that every chunk shares one dimensionality and
// precomputes the vector norms.
func vectorNorms(chunks []domain.Chunk) ([]float64, int, error) {
	dims := len(chunks[0].Embedding)
	if dims == 0 {
		return nil, 0, fmt.Errorf("%w: empty embedding", domain.ErrMalformedResponse)
	}
	norms := make([]float64, len(chunks))
	for i := range chunks {
		if len(chunks[i].Embedding) != dims {
			return nil, 0, fmt.Errorf("%w: chunk %s has %d dimensions, want %d",
				domain.ErrMalformedResponse, chunks[i].ID, len(chunks[i].Embedding), dims)
		}
		norms[i] = norm(chunks[i].Embedding)
	}
	return norms, dims, nil
}

// Refresh reloads the configured message source and rebuilds the index.
func (s *IndexService) Refresh(ctx context.Context) (domain.IndexStats, error) {
	if s.source == nil {
		return domain.IndexStats{}, domain.ErrSourceUnavailable
	}
	logger.Debug("Loading messages from %s", s.source.Name())
	messages, err := s.source.Load(ctx)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("load %s: %w", s.source.Name(), err)
	}
	return s.Build(ctx, messages)
}

// Search returns up to topK messages ordered by descending similarity,
// then newer timestamp, then lower message id. A non-positive topK uses
// the default. An empty index or a blank query yields no results.
func (s *IndexService) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	snap := s.current.Load()
	query = strings.TrimSpace(query)
	if len(snap.chunks) == 0 || query == "" {
		logger.Debug("Search skipped: chunks=%d, query=%q", len(snap.chunks), query)
		return []domain.SearchResult{}, nil
	}
	if topK <= 0 {
		topK = s.settings.DefaultTopK
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	ectx, cancel := withOptionalTimeout(ctx, s.settings.EmbedTimeout)
	defer cancel()

	vec, err := s.embedder.Embed(ectx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) != snap.stats.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrMalformedResponse, len(vec), snap.stats.Dimensions)
	}

	results := snap.search(vec, s.settings.MinSimilarity)
	if len(results) > topK {
		results = results[:topK]
	}
	logger.Debug("Search %q: %d results", query, len(results))
	return results, nil
}

func (snap *indexSnapshot) search(vec []float32, floor float64) []domain.SearchResult {
	qnorm := norm(vec)
	hits := make(map[string]*domain.SearchResult)
	order := make([]*domain.SearchResult, 0)

	for i := range snap.chunks {
		c := &snap.chunks[i]
		score := cosine(vec, c.Embedding, qnorm, snap.norms[i])
		if score < floor || score <= 0 {
			continue
		}
		hit, ok := hits[c.MessageID]
		if !ok {
			msg := &snap.messages[snap.byID[c.MessageID]]
			hit = &domain.SearchResult{
				MessageID: msg.ID,
				Subject:   msg.Subject,
				Sender:    msg.Sender,
				Timestamp: msg.Timestamp,
				Snippet:   truncateRunes(msg.Body, snippetLength),
			}
			hits[c.MessageID] = hit
			order = append(order, hit)
		}
		hit.ChunkIDs = append(hit.ChunkIDs, c.ID)
		if score > hit.Score {
			hit.Score = score
		}
	}

	results := make([]domain.SearchResult, len(order))
	for i, hit := range order {
		results[i] = *hit
	}
	SortSearchResults(results)
	return results
}

// SortSearchResults orders results by descending score, then newer
// timestamp, then lower message id.
func SortSearchResults(results []domain.SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.MessageID < b.MessageID
	})
}

// Stats describes the currently published index.
func (s *IndexService) Stats() domain.IndexStats {
	return s.current.Load().stats
}

// Messages returns a copy of the indexed messages.
func (s *IndexService) Messages() []domain.Message {
	snap := s.current.Load()
	return append([]domain.Message(nil), snap.messages...)
}

// Lookup returns the indexed messages with the given ids, in argument order.
// Unknown ids are skipped.
func (s *IndexService) Lookup(ids ...string) []domain.Message {
	snap := s.current.Load()
	out := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		if i, ok := snap.byID[id]; ok {
			out = append(out, snap.messages[i])
		}
	}
	return out
}

// Message returns the indexed message with the given id.
func (s *IndexService) Message(id string) (domain.Message, bool) {
	snap := s.current.Load()
	i, ok := snap.byID[id]
	if !ok {
		return domain.Message{}, false
	}
	return snap.messages[i], true
}

// WatchSource rebuilds the index whenever a watchable source changes.
// It blocks until ctx is cancelled and returns nil for sources that
// cannot be watched.
func (s *IndexService) WatchSource(ctx context.Context) error {
	ws, ok := s.source.(driven.WatchableSource)
	if !ok {
		return nil
	}
	logger.Info("Watching %s for changes", ws.Name())
	err := ws.Watch(ctx, func() {
		stats, err := s.Refresh(ctx)
		if err != nil {
			logger.Warn("Rebuild after change failed: %v", err)
			return
		}
		logger.Info("Rebuilt index after change: %d messages", stats.Messages)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns the cosine similarity of a and b given their norms.
// Zero vectors have similarity 0.
func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return clamp01(dot / (na * nb))
}
