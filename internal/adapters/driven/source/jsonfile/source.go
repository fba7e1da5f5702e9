// Package jsonfile loads messages from a single JSON corpus file of the form
// [{"id", "from", "to", "subject", "date", "body", "thread_id"}].
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/mailbrain/internal/adapters/driven/source"
	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
	"github.com/custodia-labs/mailbrain/internal/normalisers"
)

// Ensure Source implements the interfaces.
var _ driven.WatchableSource = (*Source)(nil)

// dateLayouts are tried in order when parsing the "date" field.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// record is the on-disk shape. "to" may be a string or a list.
type record struct {
	ID       string     `json:"id"`
	From     string     `json:"from"`
	To       recipients `json:"to"`
	Subject  string     `json:"subject"`
	Date     string     `json:"date"`
	Body     string     `json:"body"`
	ThreadID string     `json:"thread_id"`
}

type recipients []string

func (r *recipients) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*r = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("to: expected string or list of strings")
	}
	*r = splitAddresses(single)
	return nil
}

// Source reads a JSON corpus file on every Load.
type Source struct {
	path string
}

// New creates a source for the given file.
func New(path string) *Source {
	return &Source{path: path}
}

// Name identifies the source in logs and stats.
func (s *Source) Name() string {
	return "json:" + s.path
}

// Load parses the whole corpus. A missing or malformed file is an error;
// individual records with unparsable dates keep a zero timestamp.
func (s *Source) Load(ctx context.Context) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: corpus file %s not found", domain.ErrSourceUnavailable, s.path)
		}
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	return Parse(data)
}

// Watch calls onChange whenever the corpus file is rewritten.
func (s *Source) Watch(ctx context.Context, onChange func()) error {
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("resolving corpus path: %w", err)
	}
	return source.Watch(ctx, source.WatchOptions{
		Paths: []string{filepath.Dir(abs)},
		Match: func(p string) bool { return filepath.Clean(p) == abs },
	}, onChange)
}

// Parse decodes a JSON corpus. Bodies are cleaned and HTML bodies are
// reduced to text.
func Parse(data []byte) ([]domain.Message, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON in corpus: %v", domain.ErrInvalidInput, err)
	}

	bodies := normalisers.Default()
	messages := make([]domain.Message, 0, len(records))
	for _, r := range records {
		messages = append(messages, domain.Message{
			ID:         strings.TrimSpace(r.ID),
			Sender:     strings.TrimSpace(r.From),
			Recipients: []string(r.To),
			Subject:    r.Subject,
			Body:       bodies.NormaliseDetected(r.Body),
			Timestamp:  ParseDate(r.Date),
			ThreadID:   r.ThreadID,
		})
	}
	return messages, nil
}

// ParseDate accepts the common mail and ISO layouts and returns the zero
// time when none match.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func splitAddresses(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
