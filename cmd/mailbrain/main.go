// Command mailbrain answers questions about an exported mail corpus.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/mailbrain/internal/adapters/driving/cli"
	"github.com/custodia-labs/mailbrain/internal/logger"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetVersion(version)
	err := cli.Execute(ctx)

	stop()
	_ = logger.Sync()
	if err != nil {
		// cobra has already printed the error.
		os.Exit(1)
	}
}
