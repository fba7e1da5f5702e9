package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailbrain/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/mailbrain/internal/adapters/driven/source/jsonfile"
	"github.com/custodia-labs/mailbrain/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/services"
)

const testCorpus = `[
  {
    "id": "email_001",
    "from": "boss@company.com",
    "to": "me@company.com",
    "subject": "URGENT: deadline tomorrow",
    "date": "2024-03-10T09:00:00Z",
    "body": "The quarterly report deadline is tomorrow. Please finish it ASAP, this is urgent."
  },
  {
    "id": "email_002",
    "from": "billing@vendor.com",
    "to": "me@company.com",
    "subject": "Invoice #4521",
    "date": "2024-03-09T09:00:00Z",
    "body": "Please find attached the invoice for March. Payment is due in 30 days.",
    "thread_id": "t-1"
  },
  {
    "id": "email_003",
    "from": "friend@mail.com",
    "to": "me@company.com",
    "subject": "Weekend party",
    "date": "2024-03-08T09:00:00Z",
    "body": "Great news, the party invitation for Saturday is out. Thank you for coming!"
  }
]`

func writeTestCorpus(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emails.json")
	require.NoError(t, os.WriteFile(path, []byte(testCorpus), 0600))
	return path
}

// newTestRuntime builds an offline runtime over memory stores and the local
// embedder. The corpus is used as source when withSource is set.
func newTestRuntime(t *testing.T, withSource bool) *services.Runtime {
	t.Helper()

	settings := domain.DefaultAppSettings()
	cfg := services.RuntimeConfig{
		Rules:          domain.DefaultClassificationRules(),
		Embedder:       local.NewEmbeddingService(256),
		Cache:          memory.NewCache(),
		Store:          memory.NewExecutionStore(50),
		SchedulerStore: memory.NewSchedulerStore(),
	}
	if withSource {
		path := writeTestCorpus(t)
		settings.Source = domain.SourceSettings{Kind: domain.SourceJSON, Path: path}
		cfg.Source = jsonfile.New(path)
	}
	cfg.Settings = settings

	rt, err := services.NewRuntime(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

// setupTestServices injects a runtime and an in-memory settings service.
func setupTestServices(t *testing.T, withSource bool) *services.Runtime {
	t.Helper()

	oldApp, oldSettings := app, settingsService
	rt := newTestRuntime(t, withSource)
	app = rt
	settingsService = services.NewSettingsService(memory.NewConfigStore(), nil)

	t.Cleanup(func() {
		app = oldApp
		settingsService = oldSettings
	})
	return rt
}

func resetFlags() {
	askTopK = domain.DefaultTopK
	askJSON = false
	executionsLimit = services.DefaultListLimit
	executionsJSON = false
	searchLimit = 10
	threatLimit = domain.DefaultThreatScanLimit
	indexJSON = false
	versionJSON = false
	verbose = false
	logJSON = false
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
