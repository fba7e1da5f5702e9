package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

func TestIndexService_Build(t *testing.T) {
	idx, _ := newTestIndex(t, sampleCorpus())

	stats := idx.Stats()
	assert.Equal(t, 5, stats.Messages)
	assert.GreaterOrEqual(t, stats.Chunks, 5)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 256, stats.Dimensions)
	assert.Equal(t, "hashing-v1", stats.Model)
	assert.False(t, stats.BuiltAt.IsZero())
	assert.Equal(t, 5, stats.Corpus.Count)
	assert.Equal(t, date(6), stats.Corpus.EarliestDate)
	assert.Equal(t, date(10), stats.Corpus.LatestDate)
}

func TestIndexService_BuildSkipsInvalidMessages(t *testing.T) {
	messages := append(sampleCorpus(),
		domain.Message{ID: "", Body: "no id"},
		domain.Message{ID: "blank", Body: "   "},
		domain.Message{ID: "email_001", Body: "duplicate id"},
	)
	idx := NewIndexService(newFakeEmbedder(), nil, testPipeline())

	stats, err := idx.Build(context.Background(), messages)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Messages)
	assert.Equal(t, 3, stats.Skipped)

	msg, ok := idx.Message("email_001")
	require.True(t, ok)
	assert.Equal(t, "URGENT: deadline tomorrow", msg.Subject)
}

func TestIndexService_BuildEmptyCorpus(t *testing.T) {
	emb := newFakeEmbedder()
	idx := NewIndexService(emb, nil, testPipeline())

	stats, err := idx.Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Messages)
	assert.Equal(t, 0, emb.batches)

	results, err := idx.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestIndexService_BuildBatchesEmbeddings(t *testing.T) {
	p := testPipeline()
	p.EmbedBatchSize = 2
	p.EmbedConcurrency = 3
	p.EmbedRatePerSecond = 1000
	emb := newFakeEmbedder()
	idx := NewIndexService(emb, nil, p)

	stats, err := idx.Build(context.Background(), sampleCorpus())
	require.NoError(t, err)
	assert.Equal(t, (stats.Chunks+1)/2, emb.batches)
}

func TestIndexService_BuildFailureKeepsPreviousIndex(t *testing.T) {
	idx, emb := newTestIndex(t, sampleCorpus())
	before := idx.Stats()

	emb.setErr(errors.New("provider down"))
	_, err := idx.Build(context.Background(), []domain.Message{{ID: "x", Body: "new corpus"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")

	emb.setErr(nil)
	assert.Equal(t, before, idx.Stats())
	results, err := idx.Search(context.Background(), "invoice payment", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "email_002", results[0].MessageID)
}

func TestIndexService_BuildWithoutEmbedder(t *testing.T) {
	idx := NewIndexService(nil, nil, testPipeline())

	_, err := idx.Build(context.Background(), sampleCorpus())
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	_, err = idx.Build(context.Background(), nil)
	assert.NoError(t, err)
}

func TestIndexService_Search(t *testing.T) {
	idx, _ := newTestIndex(t, sampleCorpus())
	ctx := context.Background()

	results, err := idx.Search(ctx, "urgent deadline", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 3)

	top := results[0]
	assert.Equal(t, "email_001", top.MessageID)
	assert.Equal(t, "URGENT: deadline tomorrow", top.Subject)
	assert.Equal(t, "boss@company.com", top.Sender)
	assert.NotEmpty(t, top.ChunkIDs)
	assert.True(t, strings.HasPrefix(top.ChunkIDs[0], "email_001#"))

	for i, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Score, r.Score, "scores must be non-increasing")
		}
	}
}

func TestIndexService_SearchTopKAndBlankQuery(t *testing.T) {
	p := testPipeline()
	p.MinSimilarity = 0
	p.DefaultTopK = 2
	idx := NewIndexService(newFakeEmbedder(), nil, p)
	_, err := idx.Build(context.Background(), sampleCorpus())
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), "please", 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 1)

	results, err = idx.Search(context.Background(), "please urgent invoice party digest security", 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = idx.Search(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndexService_SearchSimilarityFloor(t *testing.T) {
	p := testPipeline()
	p.MinSimilarity = 0.99
	idx := NewIndexService(newFakeEmbedder(), nil, p)
	_, err := idx.Build(context.Background(), sampleCorpus())
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), "zebra giraffe", 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestIndexService_SearchTieBreaks(t *testing.T) {
	body := "Quarterly planning notes for the budget committee."
	messages := []domain.Message{
		{ID: "b_old", Subject: "Plan", Body: body, Timestamp: date(1)},
		{ID: "c_new", Subject: "Plan", Body: body, Timestamp: date(5)},
		{ID: "a_new", Subject: "Plan", Body: body, Timestamp: date(5)},
	}
	idx, _ := newTestIndex(t, messages)

	results, err := idx.Search(context.Background(), "quarterly budget planning", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	ids := []string{results[0].MessageID, results[1].MessageID, results[2].MessageID}
	assert.Equal(t, []string{"a_new", "c_new", "b_old"}, ids)
}

func TestIndexService_SearchErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("embedding failure", func(t *testing.T) {
		idx, emb := newTestIndex(t, sampleCorpus())
		emb.setErr(errors.New("connection refused"))

		_, err := idx.Search(ctx, "invoice", 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		idx, emb := newTestIndex(t, sampleCorpus())
		emb.mu.Lock()
		emb.dims = 10
		emb.mu.Unlock()

		_, err := idx.Search(ctx, "invoice", 5)
		assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	})
}

func TestIndexService_Snippet(t *testing.T) {
	long := strings.Repeat("invoice ", 60)
	idx, _ := newTestIndex(t, []domain.Message{{ID: "long", Subject: "Invoice", Body: long}})

	results, err := idx.Search(context.Background(), "invoice", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	snippet := results[0].Snippet
	assert.True(t, strings.HasSuffix(snippet, "..."))
	assert.LessOrEqual(t, utf8.RuneCountInString(snippet), snippetLength+3)
}

func TestIndexService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("loads source", func(t *testing.T) {
		src := &staticSource{messages: sampleCorpus()}
		idx := NewIndexService(newFakeEmbedder(), src, testPipeline())

		stats, err := idx.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, stats.Messages)
		assert.Equal(t, 1, src.loads)
	})

	t.Run("no source", func(t *testing.T) {
		idx := NewIndexService(newFakeEmbedder(), nil, testPipeline())
		_, err := idx.Refresh(ctx)
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	})

	t.Run("source error", func(t *testing.T) {
		src := &staticSource{err: domain.ErrSourceUnavailable}
		idx := NewIndexService(newFakeEmbedder(), src, testPipeline())
		_, err := idx.Refresh(ctx)
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
		assert.Contains(t, err.Error(), "static")
	})
}

func TestIndexService_LookupAndMessages(t *testing.T) {
	idx, _ := newTestIndex(t, sampleCorpus())

	got := idx.Lookup("email_003", "missing", "email_001")
	require.Len(t, got, 2)
	assert.Equal(t, "email_003", got[0].ID)
	assert.Equal(t, "email_001", got[1].ID)

	all := idx.Messages()
	require.Len(t, all, 5)
	all[0].Subject = "mutated"
	msg, _ := idx.Message(all[0].ID)
	assert.NotEqual(t, "mutated", msg.Subject)

	_, ok := idx.Message("missing")
	assert.False(t, ok)
}

func TestIndexService_WatchSourceWithoutWatchableSource(t *testing.T) {
	idx := NewIndexService(newFakeEmbedder(), &staticSource{}, testPipeline())
	assert.NoError(t, idx.WatchSource(context.Background()))
}

// Searches during rebuilds see either the old corpus or the new one.
func TestIndexService_AtomicSwap(t *testing.T) {
	corpus := func(prefix string) []domain.Message {
		var out []domain.Message
		for i := 0; i < 20; i++ {
			out = append(out, domain.Message{
				ID:        prefix + string(rune('a'+i)),
				Subject:   "status report",
				Body:      "weekly status report for the platform team",
				Timestamp: date(1 + i%20),
			})
		}
		return out
	}
	oldCorpus, newCorpus := corpus("old_"), corpus("new_")

	idx, _ := newTestIndex(t, oldCorpus)
	ctx := context.Background()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 8)

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				results, err := idx.Search(ctx, "weekly status report", 20)
				if err != nil {
					errs <- err
					return
				}
				prefix := ""
				for _, r := range results {
					p := r.MessageID[:4]
					if prefix == "" {
						prefix = p
					}
					if p != prefix {
						errs <- errors.New("mixed index generations in one result set")
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 10; i++ {
		next := newCorpus
		if i%2 == 1 {
			next = oldCorpus
		}
		_, err := idx.Build(ctx, next)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
