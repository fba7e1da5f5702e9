package services

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

const (
	topSenders     = 10
	topKeywords    = 20
	minKeywordRune = 4
)

// Analyze summarises messages and their classifications. classifications
// must be in the order of messages, as Classifier.Classify returns them.
func Analyze(messages []domain.Message, classifications []domain.Classification) domain.CorpusAnalytics {
	out := domain.CorpusAnalytics{
		Senders:    []domain.SenderCount{},
		Categories: map[domain.Category]int{},
		Priorities: map[domain.Priority]int{
			domain.PriorityHigh: 0, domain.PriorityMedium: 0, domain.PriorityLow: 0,
		},
		Sentiments: map[domain.Sentiment]int{
			domain.SentimentPositive: 0, domain.SentimentNeutral: 0, domain.SentimentNegative: 0,
		},
		Timeline: domain.Timeline{Daily: map[string]int{}},
		Keywords: []domain.KeywordCount{},
		Threads:  domain.ThreadStats{Total: len(messages)},
	}
	out.Overview.Messages = len(messages)
	if len(messages) == 0 {
		return out
	}

	stats := domain.ComputeCorpusStats(messages)
	out.Overview.EarliestDate = stats.EarliestDate
	out.Overview.LatestDate = stats.LatestDate

	senders := map[string]int{}
	keywords := map[string]int{}
	threads := map[string]struct{}{}
	var runes int

	for i := range messages {
		m := &messages[i]
		runes += utf8.RuneCountInString(m.Body)

		if s := strings.TrimSpace(m.Sender); s != "" {
			senders[s]++
		}
		if !m.Timestamp.IsZero() {
			out.Timeline.Daily[m.Timestamp.UTC().Format("2006-01-02")]++
		}

		key := m.ThreadID
		if key == "" {
			key = strings.ToLower(domain.NormalizeSubject(m.Subject))
		}
		threads[key] = struct{}{}

		for _, w := range words(m.Subject + " " + m.Body) {
			if isKeyword(w) {
				keywords[w]++
			}
		}
	}

	for i := range classifications {
		c := &classifications[i]
		out.Categories[c.Category]++
		out.Priorities[c.Priority]++
		out.Sentiments[c.Sentiment]++
		switch {
		case c.IsReply:
			out.Threads.Replies++
		case c.IsForward:
			out.Threads.Forwards++
		default:
			out.Threads.Originals++
		}
	}

	out.Overview.AverageLength = round2(float64(runes) / float64(len(messages)))
	out.Senders = rankSenders(senders, len(messages))
	out.Keywords = rankKeywords(keywords)
	out.Threads.Threads = len(threads)
	out.Timeline.Days = len(out.Timeline.Daily)
	if out.Timeline.Days > 0 {
		var dated int
		for _, n := range out.Timeline.Daily {
			dated += n
		}
		out.Timeline.AveragePerDay = round2(float64(dated) / float64(out.Timeline.Days))
	}
	return out
}

// keywordStopWords extends stopWords with common function words long
// enough to pass minKeywordRune.
var keywordStopWords = map[string]struct{}{
	"been": {}, "being": {}, "could": {}, "have": {}, "might": {}, "should": {},
	"that": {}, "their": {}, "them": {}, "these": {}, "they": {}, "those": {},
	"were": {}, "will": {}, "would": {}, "your": {},
}

func isKeyword(w string) bool {
	if utf8.RuneCountInString(w) < minKeywordRune {
		return false
	}
	if _, stop := stopWords[w]; stop {
		return false
	}
	if _, stop := keywordStopWords[w]; stop {
		return false
	}
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func rankSenders(counts map[string]int, total int) []domain.SenderCount {
	out := make([]domain.SenderCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, domain.SenderCount{
			Sender:  s,
			Count:   n,
			Percent: round2(float64(n) * 100 / float64(total)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Sender < out[j].Sender
	})
	return out[:min(len(out), topSenders)]
}

func rankKeywords(counts map[string]int) []domain.KeywordCount {
	out := make([]domain.KeywordCount, 0, len(counts))
	for w, n := range counts {
		out = append(out, domain.KeywordCount{Word: w, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	return out[:min(len(out), topKeywords)]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
