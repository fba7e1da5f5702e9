package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// LoadRules reads classification rules from a YAML file.
// Sections present in the file replace the built-in defaults; omitted
// sections keep them. An empty path returns the defaults.
func LoadRules(path string) (domain.ClassificationRules, error) {
	rules := domain.DefaultClassificationRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ClassificationRules{}, fmt.Errorf("reading rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes YAML rule overrides on top of the defaults.
// Unknown keys are rejected so that typos surface instead of being ignored.
func ParseRules(data []byte) (domain.ClassificationRules, error) {
	rules := domain.DefaultClassificationRules()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rules); err != nil && !errors.Is(err, io.EOF) {
		return domain.ClassificationRules{}, fmt.Errorf("parsing rules: %w", err)
	}

	if err := rules.Validate(); err != nil {
		return domain.ClassificationRules{}, err
	}
	return rules, nil
}

// WriteRules writes rules as YAML, e.g. to export the defaults for editing.
func WriteRules(w io.Writer, rules domain.ClassificationRules) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rules); err != nil {
		return fmt.Errorf("encoding rules: %w", err)
	}
	return enc.Close()
}
