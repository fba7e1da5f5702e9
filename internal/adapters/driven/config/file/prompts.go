package file

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed prompts_readme.md
var promptsReadme []byte

// builtinPrompt is a shipped template and the number of %s verbs an
// override has to keep.
type builtinPrompt struct {
	text  string
	verbs int
}

var builtinPrompts = map[string]builtinPrompt{
	driven.PromptAnswerSystem: {text: domain.DefaultAnswerSystemPrompt, verbs: 0},
	driven.PromptAnswerUser:   {text: domain.DefaultAnswerUserPrompt, verbs: 2},
}

// PromptStore serves answer prompts from <dir>/<name>.txt so users can
// tune them. The first Load seeds the directory with the built-in prompts
// and a README; existing files are never overwritten.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
	loads singleflight.Group
}

// NewPromptStore does no I/O. An empty dir means ~/.mailbrain/prompts.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".mailbrain", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Dir is the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the user's override for name. A missing, unreadable or
// malformed override falls back to the built-in prompt; only names with
// no built-in can fail.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, known := builtinPrompts[name]

	s.seedOnce.Do(s.seed)
	if s.seedErr != nil {
		if known {
			return builtin.text, nil
		}
		return "", fmt.Errorf("prompt %q: %w", name, s.seedErr)
	}

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := s.loads.Do(name, func() (any, error) {
		return s.read(name)
	})
	if err == nil && known {
		err = checkVerbs(name, v.(string), builtin.verbs)
	}
	if err != nil {
		if known {
			return builtin.text, nil
		}
		return "", fmt.Errorf("prompt %q: %w", name, err)
	}

	prompt := v.(string)
	s.mu.Lock()
	s.cache[name] = prompt
	s.mu.Unlock()
	return prompt, nil
}

// Reload forgets cached overrides so the next Load rereads the files.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

func (s *PromptStore) read(name string) (string, error) {
	raw, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// seed creates the directory and writes any missing built-in files.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.seedErr = fmt.Errorf("creating prompt directory: %w", err)
		return
	}

	files := map[string][]byte{filepath.Join(s.dir, "README.md"): promptsReadme}
	for name, p := range builtinPrompts {
		files[s.path(name)] = []byte(p.text)
	}
	for path, body := range files {
		if err := writeIfMissing(path, body); err != nil {
			s.seedErr = err
			return
		}
	}
}

func writeIfMissing(path string, body []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seeding %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Write(body); err != nil {
		_ = f.Close()
		return fmt.Errorf("seeding %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func checkVerbs(name, prompt string, want int) error {
	if got := strings.Count(prompt, "%s"); got != want {
		return fmt.Errorf("prompt %q has %d %%s verbs, want %d", name, got, want)
	}
	return nil
}
