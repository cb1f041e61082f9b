package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kuhlman-labs/actions-migrator/internal/cli"
)

func main() {
	// Interrupts cancel between entries; a partial run still reports and
	// persists its summary
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
