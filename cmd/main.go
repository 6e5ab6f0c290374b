package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/forestnode-io/ssdpd/pkg/commands/root"
	"github.com/forestnode-io/ssdpd/pkg/events"
)

func main() {
	ctx := events.WithEvents(context.Background())

	status := events.ExitCodeGenericFailure
	defer func() {
		// let panics through with their stack trace
		if r := recover(); r != nil {
			panic(r)
		}
		if ec := events.GetExitCode(ctx); -1 < ec {
			status = ec
		}
		os.Exit(status)
	}()

	// serve stops and sends its byebyes on any of these
	ctx, cancel := signal.NotifyContext(ctx, shutdownSignals...)
	defer cancel()

	if err := root.ExecuteContext(ctx); err == nil {
		status = events.ExitCodeSuccess
	}
}
