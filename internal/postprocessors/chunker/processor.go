// Package chunker splits messages into bounded, overlapping text spans
// for embedding.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of characters repeated between chunks.
const DefaultChunkOverlap = 50

// Processor splits message text into chunks, preferring to cut at
// paragraph breaks, then sentence ends, then whitespace.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkMessage chunks the message's subject, sender and body. Chunk IDs are
// "<message id>#<position>" so they are stable across rebuilds.
// Embeddings are left empty.
func (p *Processor) ChunkMessage(msg *domain.Message) []domain.Chunk {
	spans := p.Split(messageText(msg))
	chunks := make([]domain.Chunk, len(spans))
	for i, span := range spans {
		chunks[i] = domain.Chunk{
			ID:        fmt.Sprintf("%s#%d", msg.ID, i),
			MessageID: msg.ID,
			Content:   span,
			Position:  i,
		}
	}
	return chunks
}

// Split cuts text into trimmed spans of at most chunkSize characters.
func (p *Processor) Split(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= p.chunkSize {
		return []string{string(runes)}
	}

	var spans []string
	start := 0
	for start < len(runes) {
		end := start + p.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}

		if span := strings.TrimSpace(string(runes[start:end])); span != "" {
			spans = append(spans, span)
		}
		if end == len(runes) {
			break
		}

		next := end - p.overlap
		if next <= start {
			next = end
		}
		start = alignToWord(runes, next, end)
	}
	return spans
}

// breakPoint returns the best cut in (start, end], looking no further back
// than halfway through the window.
func breakPoint(runes []rune, start, end int) int {
	floor := start + (end-start)/2

	// Paragraph break.
	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	// Sentence end or line break.
	for i := end - 1; i > floor; i-- {
		switch runes[i] {
		case '\n':
			return i + 1
		case '.', '!', '?':
			if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				return i + 1
			}
		}
	}
	// Word boundary.
	for i := end - 1; i > floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}

// alignToWord moves pos forward to the start of a word, never past limit.
func alignToWord(runes []rune, pos, limit int) int {
	if pos == 0 || unicode.IsSpace(runes[pos-1]) {
		return pos
	}
	for i := pos; i < limit; i++ {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return pos
}

func messageText(msg *domain.Message) string {
	var b strings.Builder
	if msg.Subject != "" {
		b.WriteString("Subject: ")
		b.WriteString(msg.Subject)
		b.WriteString("\n")
	}
	if msg.Sender != "" {
		b.WriteString("From: ")
		b.WriteString(msg.Sender)
		b.WriteString("\n")
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(msg.Body)
	return b.String()
}
