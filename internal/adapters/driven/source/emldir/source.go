// Package emldir loads messages from a directory tree of RFC 822 .eml files.
package emldir

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/mailbrain/internal/adapters/driven/source"
	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
	"github.com/custodia-labs/mailbrain/internal/logger"
	"github.com/custodia-labs/mailbrain/internal/normalisers"
)

// Ensure Source implements the interfaces.
var _ driven.WatchableSource = (*Source)(nil)

const extension = ".eml"

// bodies converts decoded parts to plain text.
var bodies = normalisers.Default()

// Source reads every .eml file under a directory on each Load.
type Source struct {
	dir string
}

// New creates a source rooted at dir.
func New(dir string) *Source {
	return &Source{dir: dir}
}

// Name identifies the source in logs and stats.
func (s *Source) Name() string {
	return "eml:" + s.dir
}

// Load parses every .eml file in lexical path order. Files that cannot be
// parsed are skipped with a warning.
func (s *Source) Load(ctx context.Context) ([]domain.Message, error) {
	info, err := os.Stat(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: mail directory %s not found", domain.ErrSourceUnavailable, s.dir)
		}
		return nil, fmt.Errorf("reading mail directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrSourceUnavailable, s.dir)
	}

	var paths []string
	err = filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != s.dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), extension) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking mail directory: %w", err)
	}
	sort.Strings(paths)

	messages := make([]domain.Message, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping %s: %v", path, err)
			continue
		}
		rel, _ := filepath.Rel(s.dir, path)
		msg, err := Parse(data, rel)
		if err != nil {
			logger.Warn("skipping %s: %v", path, err)
			continue
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

// Watch calls onChange whenever an .eml file in the top-level directory changes.
func (s *Source) Watch(ctx context.Context, onChange func()) error {
	return source.Watch(ctx, source.WatchOptions{
		Paths: []string{s.dir},
		Match: func(p string) bool { return strings.EqualFold(filepath.Ext(p), extension) },
	}, onChange)
}

// Parse converts one RFC 822 message. fallbackID is used when the message
// has no Message-ID header.
func Parse(data []byte, fallbackID string) (*domain.Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	body, err := extractBody(msg.Header, msg.Body)
	if err != nil {
		return nil, err
	}

	id := trimAngle(msg.Header.Get("Message-Id"))
	if id == "" {
		id = strings.TrimSuffix(filepath.ToSlash(fallbackID), filepath.Ext(fallbackID))
	}

	out := &domain.Message{
		ID:         id,
		Sender:     decodeHeader(msg.Header.Get("From")),
		Recipients: parseRecipients(msg.Header),
		Subject:    decodeHeader(msg.Header.Get("Subject")),
		Body:       strings.TrimSpace(body),
		ThreadID:   threadID(msg.Header, id),
	}
	if date, err := msg.Header.Date(); err == nil {
		out.Timestamp = date
	}
	return out, nil
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

func parseRecipients(h mail.Header) []string {
	var out []string
	for _, key := range []string{"To", "Cc"} {
		raw := h.Get(key)
		if raw == "" {
			continue
		}
		addrs, err := h.AddressList(key)
		if err != nil {
			out = append(out, decodeHeader(raw))
			continue
		}
		for _, a := range addrs {
			out = append(out, a.Address)
		}
	}
	return out
}

// threadID is the root of References, then In-Reply-To, then the message itself.
func threadID(h mail.Header, id string) string {
	if refs := strings.Fields(h.Get("References")); len(refs) > 0 {
		return trimAngle(refs[0])
	}
	if parent := trimAngle(h.Get("In-Reply-To")); parent != "" {
		return parent
	}
	return id
}

func trimAngle(s string) string {
	return strings.Trim(strings.TrimSpace(s), "<>")
}

// partHeader is the subset of headers a body part needs.
type partHeader interface {
	Get(key string) string
}

// extractBody returns the text of a message or part, preferring text/plain
// over text/html.
func extractBody(h partHeader, r io.Reader) (string, error) {
	contentType := h.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipartBody(r, params["boundary"])
	}

	data, err := io.ReadAll(decodeTransfer(h.Get("Content-Transfer-Encoding"), r))
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %v", domain.ErrInvalidInput, err)
	}

	// Unsupported media types such as inline images yield no text.
	return bodies.Normalise(mediaType, string(data)), nil
}

func extractMultipartBody(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		mediaType, _, parseErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if parseErr != nil {
			mediaType = "text/plain"
		}
		if part.FileName() != "" {
			part.Close()
			continue
		}

		text, err := extractBody(part.Header, part)
		part.Close()
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}

		if mediaType == "text/html" {
			htmlParts = append(htmlParts, text)
		} else {
			textParts = append(textParts, text)
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), nil
	}
	return strings.Join(htmlParts, "\n"), nil
}

// decodeTransfer undoes base64 and quoted-printable. multipart.Reader already
// strips quoted-printable from parts, in which case the header is gone.
func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, newlineStripper{r})
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// newlineStripper drops CR and LF so wrapped base64 decodes.
type newlineStripper struct {
	r io.Reader
}

func (n newlineStripper) Read(p []byte) (int, error) {
	for {
		count, err := n.r.Read(p)
		kept := 0
		for _, b := range p[:count] {
			if b != '\r' && b != '\n' {
				p[kept] = b
				kept++
			}
		}
		if kept > 0 || err != nil {
			return kept, err
		}
	}
}
