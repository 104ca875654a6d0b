// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pulse/cmd"
	"pulse/internal/log"
	"pulse/pkg/build"
)

// main is the entry point for the analyzer.
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Open the frame source
//
// 2. Concurrent Phase (Hot Path):
//   - Analysis worker reads frames and emits events
//   - Render worker drains events at a fixed rate and publishes state
//
// 3. Shutdown Phase (Cold Path):
//   - SIGINT/SIGTERM or the end of a finite source cancels both workers
//   - Recordings are finalized and transports closed
func main() {
	// Development builds run without ldflags and keep the defaults.
	if err := build.Initialize(); err != nil {
		log.Debugf("build info: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		stop()
		log.Fatalf("%v", err)
	}
}
