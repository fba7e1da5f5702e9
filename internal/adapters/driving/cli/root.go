// Package cli implements the mailbrain command line on cobra.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailbrain/internal/core/services"
	"github.com/custodia-labs/mailbrain/internal/logger"
)

var (
	// version is set at build time through SetVersion.
	version = "dev"

	verbose   bool
	logJSON   bool
	configDir string

	// settingsService and app are built lazily on first use, or injected by tests.
	settingsService *services.SettingsService
	app             *services.Runtime
)

var rootCmd = &cobra.Command{
	Use:   "mailbrain",
	Short: "Ask questions about your email",
	Long: `mailbrain answers natural-language questions about an exported mail corpus.

Each question runs a four-step workflow: intent detection, semantic search,
classification and ranking, and answer generation. Every run is recorded and
can be inspected later with 'mailbrain executions'.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Configure(logger.Options{Verbose: verbose, JSON: logJSON})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "trace workflow steps on stderr")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write log lines as JSON")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.mailbrain)")
}

// SetVersion sets the version reported by 'mailbrain version'.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command and releases the runtime afterwards.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if app != nil {
		if closeErr := app.Close(); closeErr != nil {
			logger.Warn("Failed to release resources: %v", closeErr)
		}
		app = nil
	}
	return err
}

// requireSettings returns the settings service, creating it on first use.
func requireSettings() (*services.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	svc, err := newSettingsService(configDir)
	if err != nil {
		return nil, err
	}
	settingsService = svc
	return svc, nil
}

// requireRuntime returns the runtime, bootstrapping it on first use.
func requireRuntime(ctx context.Context) (*services.Runtime, error) {
	if app != nil {
		return app, nil
	}
	svc, err := requireSettings()
	if err != nil {
		return nil, err
	}
	rt, err := bootstrap(ctx, svc, configDir)
	if err != nil {
		return nil, err
	}
	app = rt
	return rt, nil
}

// errNoSource explains how to point mailbrain at a corpus.
var errNoSource = errors.New("no message source configured; run 'mailbrain config set source.path PATH'")
