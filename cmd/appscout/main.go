package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newCLI(os.Stdout)
	err := newRootCmd(c).ExecuteContext(ctx)
	c.close()
	if err != nil {
		slog.Error("appscout failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}
