package domain

import "time"

// SearchResult is a single message hit from the semantic index.
// Scores are aggregated per message as the maximum chunk similarity.
type SearchResult struct {
	// MessageID identifies the matched message.
	MessageID string `json:"message_id"`

	// Subject is the matched message's subject.
	Subject string `json:"subject"`

	// Sender is the matched message's sender.
	Sender string `json:"from"`

	// Timestamp is the matched message's send time, used for tie-breaking.
	Timestamp time.Time `json:"date"`

	// Score is the aggregated similarity in [0,1].
	Score float64 `json:"score"`

	// Snippet is a short excerpt of the message body.
	Snippet string `json:"snippet"`

	// ChunkIDs are the chunks of the message that cleared the similarity floor.
	ChunkIDs []string `json:"chunk_ids"`
}

// IndexStats describes the currently published semantic index.
type IndexStats struct {
	Messages   int         `json:"messages"`
	Chunks     int         `json:"chunks"`
	Skipped    int         `json:"skipped"`
	Dimensions int         `json:"dimensions"`
	Model      string      `json:"model"`
	BuiltAt    time.Time   `json:"built_at"`
	Corpus     CorpusStats `json:"corpus"`
}
