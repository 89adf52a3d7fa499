package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	service "github.com/okian/teamsplit/internal/app"
)

// Exit codes.
const (
	exitFailure    = 1
	exitInputError = 2
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if service.IsInputError(err) {
			os.Exit(exitInputError)
		}
		os.Exit(exitFailure)
	}
}
