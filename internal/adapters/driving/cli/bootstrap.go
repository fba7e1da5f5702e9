package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/mailbrain/internal/adapters/driven/ai"
	"github.com/custodia-labs/mailbrain/internal/adapters/driven/config/file"
	"github.com/custodia-labs/mailbrain/internal/adapters/driven/source/emldir"
	"github.com/custodia-labs/mailbrain/internal/adapters/driven/source/jsonfile"
	"github.com/custodia-labs/mailbrain/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/mailbrain/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/ports/driven"
	"github.com/custodia-labs/mailbrain/internal/core/services"
	"github.com/custodia-labs/mailbrain/internal/logger"
)

// newSettingsService opens the TOML config in dir (default ~/.mailbrain).
func newSettingsService(dir string) (*services.SettingsService, error) {
	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	return services.NewSettingsService(store, ai.NewConfigValidator()), nil
}

// bootstrap assembles the runtime from the stored settings.
func bootstrap(_ context.Context, settingsSvc *services.SettingsService, dir string) (*services.Runtime, error) {
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	rules := domain.DefaultClassificationRules()
	if settings.RulesPath != "" {
		rules, err = file.LoadRules(settings.RulesPath)
		if err != nil {
			return nil, err
		}
		logger.Debug("Loaded classification rules from %s", settings.RulesPath)
	}

	promptDir := ""
	if dir != "" {
		promptDir = filepath.Join(dir, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return nil, err
	}

	cfg := services.RuntimeConfig{
		Settings: *settings,
		Rules:    rules,
		Cache:    memory.NewCache(),
		Prompts:  prompts,
		Source:   newSource(settings.Source),
	}

	var closers []func() error
	capacity := settings.Pipeline.ExecutionCapacity
	switch settings.Storage.Backend {
	case domain.StorageSQLite:
		store, err := sqlite.NewStore(settings.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open execution store: %w", err)
		}
		logger.Debug("Execution store: %s", store.Path())
		cfg.Store = store.ExecutionStore(capacity)
		cfg.SchedulerStore = store.SchedulerStore()
		closers = append(closers, store.Close)
	default:
		cfg.Store = memory.NewExecutionStore(capacity)
		cfg.SchedulerStore = memory.NewSchedulerStore()
	}

	aiServices := ai.Initialise(settings)
	for _, w := range aiServices.Warnings {
		logger.Warn("%s", w)
	}
	if aiServices.FellBack {
		logger.Warn("Falling back to the local embedder")
	}
	cfg.Embedder = aiServices.EmbeddingService
	if aiServices.LLMService != nil {
		cfg.LLM = aiServices.LLMService
	}
	closers = append(closers, func() error {
		aiServices.Close()
		return nil
	})

	rt, err := services.NewRuntime(cfg)
	if err != nil {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]() //nolint:errcheck // already failing
		}
		return nil, err
	}
	for _, c := range closers {
		rt.OnClose(c)
	}
	return rt, nil
}

// newSource returns the configured message source, or nil if none is set.
func newSource(s domain.SourceSettings) driven.MessageSource {
	if !s.IsConfigured() {
		return nil
	}
	switch s.Kind {
	case domain.SourceEML:
		return emldir.New(s.Path)
	default:
		return jsonfile.New(s.Path)
	}
}
