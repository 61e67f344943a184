package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/epicevents/crm/cli"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Replaced by the configured logger once the dependencies load.
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}

	code := cli.New(cli.DefaultLoader, logger).Execute(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Stdin)
	stop()
	_ = logger.Sync()
	os.Exit(code)
}
