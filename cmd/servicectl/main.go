// Command servicectl installs, supervises, and removes the Axon
// Workstation daemon as a native OS service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Version information (injected via ldflags at build time)
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := execute(ctx)
	stop()
	os.Exit(code)
}
