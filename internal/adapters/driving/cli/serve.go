package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/mailbrain/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/mailbrain/internal/core/services"
	"github.com/custodia-labs/mailbrain/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API with the background scheduler.

Routes:
  POST /v1/workflow/execute   run the workflow for {"question", "top_k"}
  GET  /v1/executions         list recent executions (?limit=)
  GET  /v1/executions/:id     fetch one execution
  GET  /v1/search             semantic search (?q=&top_k=)
  POST /v1/index/refresh      reload the source and rebuild the index
  GET  /v1/analytics          corpus analytics
  GET  /v1/security/threats   phishing and spoofing scan (?q=&limit=)
  GET  /health                health check

The index is built at startup. With source.watch enabled it is rebuilt
whenever the source changes on disk.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := requireRuntime(ctx)
	if err != nil {
		return err
	}

	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}
	if addr == "" {
		addr = rt.Settings.Server.Addr
	}

	if stats, err := rt.EnsureIndex(ctx); err != nil {
		logger.Warn("Initial index build failed: %v", err)
	} else {
		logger.Info("Indexed %d messages", stats.Messages)
	}

	handler := httpapi.NewHandler(rt.Workflow, rt.Index, rt.Settings.Pipeline.DefaultTopK, version).
		WithInsights(rt.Insights)
	e := httpapi.NewEcho(handler)

	cmd.Printf("mailbrain API listening on %s\n", addr)
	return runBackground(ctx, rt, func(ctx context.Context) error {
		return httpapi.Serve(ctx, e, addr)
	})
}

// runBackground runs serve alongside the scheduler and the source watcher.
// Everything stops once serve returns or ctx ends.
func runBackground(ctx context.Context, rt *services.Runtime, serve func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if scheduler := rt.Scheduler(); scheduler != nil {
		g.Go(func() error {
			err := scheduler.Start(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-ctx.Done()
			return scheduler.Stop()
		})
	}

	if rt.Settings.Source.Watch {
		g.Go(func() error {
			return rt.Index.WatchSource(ctx)
		})
	}

	g.Go(func() error {
		defer cancel()
		return serve(ctx)
	})

	return g.Wait()
}
