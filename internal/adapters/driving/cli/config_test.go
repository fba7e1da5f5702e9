package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

func TestConfigCmd_Subcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range configCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"show", "set", "keys", "embedding", "llm"}, names)
}

func TestConfigShowCmd_DefaultSettings(t *testing.T) {
	setupTestServices(t, false)

	out, err := executeCommand(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "Local hashing embedder (offline)")
	assert.Contains(t, out, "Provider: (none, answers are extractive)")
	assert.Contains(t, out, "Path: (not set)")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestConfigCmd_DefaultsToShow(t *testing.T) {
	setupTestServices(t, false)

	out, err := executeCommand(t, "config")

	require.NoError(t, err)
	assert.Contains(t, out, "Current Configuration")
}

func TestConfigSetCmd(t *testing.T) {
	setupTestServices(t, false)

	out, err := executeCommand(t, "config", "set", "pipeline.default_top_k", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Set pipeline.default_top_k = 7")

	settings, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, settings.Pipeline.DefaultTopK)
}

func TestConfigSetCmd_MasksAPIKey(t *testing.T) {
	setupTestServices(t, false)

	out, err := executeCommand(t, "config", "set", "llm.api_key", "sk-1234567890abcdef")

	require.NoError(t, err)
	assert.Contains(t, out, "sk-1...cdef")
	assert.NotContains(t, out, "567890")
}

func TestConfigSetCmd_UnknownKey(t *testing.T) {
	setupTestServices(t, false)

	_, err := executeCommand(t, "config", "set", "no.such.key", "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown key "no.such.key"`)
}

func TestConfigSetCmd_BadValue(t *testing.T) {
	setupTestServices(t, false)

	_, err := executeCommand(t, "config", "set", "pipeline.default_top_k", "many")

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "pipeline.default_top_k", ve.Field)
}

func TestConfigKeysCmd(t *testing.T) {
	setupTestServices(t, false)

	out, err := executeCommand(t, "config", "keys")

	require.NoError(t, err)
	keys := strings.Fields(out)
	assert.Contains(t, keys, "source.path")
	assert.Contains(t, keys, "storage.backend")
	assert.IsIncreasing(t, keys)
}

func TestConfigLLMCmd_Interactive(t *testing.T) {
	setupTestServices(t, false)
	rootCmd.SetIn(strings.NewReader("1\n\n"))

	out, err := executeCommand(t, "config", "llm")

	require.NoError(t, err)
	assert.Contains(t, out, "Select LLM Provider")
	assert.Contains(t, out, "LLM provider configured: Ollama (local) (llama3.2)")

	settings, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.LLM.Provider)
	assert.Equal(t, "llama3.2", settings.LLM.Model)
}

func TestConfigEmbeddingCmd_Interactive(t *testing.T) {
	setupTestServices(t, false)
	rootCmd.SetIn(strings.NewReader("2\nmxbai-embed-large\n"))

	out, err := executeCommand(t, "config", "embedding")

	require.NoError(t, err)
	assert.Contains(t, out, "Embedding provider configured: Ollama (local) (mxbai-embed-large)")

	settings, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
}

func TestConfigLLMCmd_MissingAPIKey(t *testing.T) {
	setupTestServices(t, false)
	// OpenAI is the second LLM provider and needs a key.
	rootCmd.SetIn(strings.NewReader("2\n\n\n"))

	_, err := executeCommand(t, "config", "llm")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{name: "empty key", key: "", expected: "****"},
		{name: "short key", key: "abc", expected: "****"},
		{name: "exactly 8 chars", key: "12345678", expected: "****"},
		{name: "9 chars", key: "123456789", expected: "1234...6789"},
		{name: "long key", key: "sk-1234567890abcdef", expected: "sk-1...cdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskAPIKey(tt.key))
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{name: "empty returns default", input: "", maxVal: 5, defaultVal: 1, expected: 1},
		{name: "valid choice", input: "3", maxVal: 5, defaultVal: 1, expected: 3},
		{name: "max value", input: "5", maxVal: 5, defaultVal: 1, expected: 5},
		{name: "zero returns default", input: "0", maxVal: 5, defaultVal: 1, expected: 1},
		{name: "above max returns default", input: "6", maxVal: 5, defaultVal: 2, expected: 2},
		{name: "non-numeric returns default", input: "abc", maxVal: 5, defaultVal: 1, expected: 1},
		{name: "negative returns default", input: "-1", maxVal: 5, defaultVal: 1, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseChoice(tt.input, tt.maxVal, tt.defaultVal))
		})
	}
}
