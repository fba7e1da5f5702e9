package domain

import (
	"strings"
	"time"
)

// Message is a normalised mail message.
// Messages are produced by a MessageSource and are read-only to the core.
type Message struct {
	// ID is the unique identifier for the message.
	ID string `json:"id"`

	// Sender is the From address.
	Sender string `json:"from"`

	// Recipients are the To addresses.
	Recipients []string `json:"to"`

	// Subject is the decoded subject line.
	Subject string `json:"subject"`

	// Body is the plain-text body.
	Body string `json:"body"`

	// Timestamp is when the message was sent.
	Timestamp time.Time `json:"date"`

	// ThreadID groups messages of one conversation.
	ThreadID string `json:"thread_id,omitempty"`
}

// Validate reports why a message cannot be indexed, or nil if it can.
func (m *Message) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(m.Body) == "" && strings.TrimSpace(m.Subject) == "" {
		return &ValidationError{Field: "body", Reason: "message has no text"}
	}
	return nil
}

// Text returns the subject and body joined for keyword matching.
func (m *Message) Text() string {
	return m.Subject + "\n" + m.Body
}

// Chunk is an independently embedded span of a message body.
// Chunks are created when the semantic index is built and discarded on rebuild.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// MessageID links back to the source Message.
	MessageID string

	// Content is the text span.
	Content string

	// Position is the ordinal position within the message.
	Position int

	// Embedding is the vector representation. All chunks of one index
	// share the same dimensionality.
	Embedding []float32
}

// CorpusStats summarises a set of messages.
type CorpusStats struct {
	Count          int       `json:"count"`
	EarliestDate   time.Time `json:"earliest_date,omitempty"`
	LatestDate     time.Time `json:"latest_date,omitempty"`
	UniqueSenders  int       `json:"unique_senders"`
	UniqueThreads  int       `json:"unique_threads"`
	TotalBodyChars int       `json:"total_body_chars"`
}

// ComputeCorpusStats derives CorpusStats from messages.
func ComputeCorpusStats(messages []Message) CorpusStats {
	stats := CorpusStats{Count: len(messages)}
	senders := make(map[string]struct{})
	threads := make(map[string]struct{})

	for i := range messages {
		m := &messages[i]
		if !m.Timestamp.IsZero() {
			if stats.EarliestDate.IsZero() || m.Timestamp.Before(stats.EarliestDate) {
				stats.EarliestDate = m.Timestamp
			}
			if m.Timestamp.After(stats.LatestDate) {
				stats.LatestDate = m.Timestamp
			}
		}
		if m.Sender != "" {
			senders[strings.ToLower(m.Sender)] = struct{}{}
		}
		if m.ThreadID != "" {
			threads[m.ThreadID] = struct{}{}
		}
		stats.TotalBodyChars += len(m.Body)
	}

	stats.UniqueSenders = len(senders)
	stats.UniqueThreads = len(threads)
	return stats
}

// NormalizeSubject strips reply and forward prefixes so that messages of
// one conversation share a subject key.
func NormalizeSubject(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		lower := strings.ToLower(s)
		trimmed := false
		for _, prefix := range []string{"re:", "fwd:", "fw:"} {
			if strings.HasPrefix(lower, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				trimmed = true
				break
			}
		}
		if !trimmed {
			return s
		}
	}
}
