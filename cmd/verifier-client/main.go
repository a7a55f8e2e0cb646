package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/vlei-verifier-client/cmd/verifier-client/cli"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "verifier-client failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return cli.New().ExecuteContext(ctx)
}
