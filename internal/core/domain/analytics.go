package domain

import "time"

// CorpusAnalytics describes the indexed corpus beyond CorpusStats: who
// writes, what about, when, and how the classifier sees it.
type CorpusAnalytics struct {
	Overview   AnalyticsOverview `json:"overview"`
	Senders    []SenderCount     `json:"senders"`
	Categories map[Category]int  `json:"categories"`
	Priorities map[Priority]int  `json:"priorities"`
	Sentiments map[Sentiment]int `json:"sentiments"`
	Timeline   Timeline          `json:"timeline"`
	Keywords   []KeywordCount    `json:"keywords"`
	Threads    ThreadStats       `json:"threads"`
}

// AnalyticsOverview holds corpus-wide totals.
type AnalyticsOverview struct {
	Messages      int       `json:"messages"`
	EarliestDate  time.Time `json:"earliest_date,omitempty"`
	LatestDate    time.Time `json:"latest_date,omitempty"`
	AverageLength float64   `json:"average_length"`
}

// SenderCount is one sender and their share of the corpus.
type SenderCount struct {
	Sender  string  `json:"sender"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Timeline counts messages per calendar day (UTC, YYYY-MM-DD).
type Timeline struct {
	Daily         map[string]int `json:"daily"`
	Days          int            `json:"days"`
	AveragePerDay float64        `json:"average_per_day"`
}

// KeywordCount is a frequent word and how often it occurs.
type KeywordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// ThreadStats splits the corpus into replies, forwards and originals.
type ThreadStats struct {
	Total     int `json:"total"`
	Threads   int `json:"threads"`
	Replies   int `json:"replies"`
	Forwards  int `json:"forwards"`
	Originals int `json:"originals"`
}
