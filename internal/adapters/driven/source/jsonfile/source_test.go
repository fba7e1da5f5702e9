package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

const corpus = `[
  {
    "id": "email_001",
    "from": "boss@company.com",
    "to": "me@company.com",
    "subject": "URGENT: deadline tomorrow",
    "date": "2024-03-01T09:00:00Z",
    "body": "The quarterly report is due tomorrow. Please send it ASAP."
  },
  {
    "id": "email_002",
    "from": "billing@vendor.com",
    "to": ["me@company.com", "finance@company.com"],
    "subject": "Invoice #4411",
    "date": "Fri, 01 Mar 2024 10:30:00 +0000",
    "body": "Your invoice is attached.",
    "thread_id": "t-9"
  }
]`

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emails.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestSource_Load(t *testing.T) {
	src := New(writeCorpus(t, corpus))

	messages, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 2)

	first := messages[0]
	assert.Equal(t, "email_001", first.ID)
	assert.Equal(t, "boss@company.com", first.Sender)
	assert.Equal(t, []string{"me@company.com"}, first.Recipients)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), first.Timestamp)

	second := messages[1]
	assert.Equal(t, []string{"me@company.com", "finance@company.com"}, second.Recipients)
	assert.Equal(t, "t-9", second.ThreadID)
	assert.True(t, second.Timestamp.Equal(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)))
}

func TestSource_Name(t *testing.T) {
	assert.Equal(t, "json:/data/emails.json", New("/data/emails.json").Name())
}

func TestSource_Load_MissingFile(t *testing.T) {
	src := New(filepath.Join(t.TempDir(), "absent.json"))

	_, err := src.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestSource_Load_Malformed(t *testing.T) {
	src := New(writeCorpus(t, `{"not": "a list"}`))

	_, err := src.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSource_Load_EmptyCorpus(t *testing.T) {
	src := New(writeCorpus(t, `[]`))

	messages, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestSource_Load_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(writeCorpus(t, corpus)).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_RecipientForms(t *testing.T) {
	messages, err := Parse([]byte(`[
		{"id": "a", "to": "x@a.com; y@b.com", "body": "b"},
		{"id": "b", "to": null, "body": "b"},
		{"id": "c", "body": "b"}
	]`))
	require.NoError(t, err)

	assert.Equal(t, []string{"x@a.com", "y@b.com"}, messages[0].Recipients)
	assert.Nil(t, messages[1].Recipients)
	assert.Nil(t, messages[2].Recipients)
}

func TestParse_NormalisesBodies(t *testing.T) {
	data := []byte(`[
		{"id": "h", "subject": "Newsletter", "body": "<div>Weekly <b>digest</b></div><p>Read&nbsp;more</p>"},
		{"id": "p", "subject": "Plain", "body": "line one\r\n\r\n\r\n\r\nline two   "}
	]`)

	messages, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Weekly digest\nRead more", messages[0].Body)
	assert.Equal(t, "line one\n\nline two", messages[1].Body)
}

func TestParse_BadRecipientType(t *testing.T) {
	_, err := Parse([]byte(`[{"id": "a", "to": 42}]`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01T09:00:00Z", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		{"2024-03-01 09:00:00", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"next tuesday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, tt.want.Equal(ParseDate(tt.in)), "got %v", ParseDate(tt.in))
		})
	}
}
