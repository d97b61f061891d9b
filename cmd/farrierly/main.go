// Farrierly - offline-first records for a mobile farrier.
//
// Clients, horses, appointments and invoices are written locally first and
// pushed to the cloud backend through a durable sync queue.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/asteroid-belt/farrierly/internal/cli"
	"github.com/asteroid-belt/farrierly/internal/config"
	"github.com/asteroid-belt/farrierly/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Load config for the persistent tracking ID
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}

	telemetryClient := telemetry.New(telemetry.FileTrackingID{
		Path: filepath.Join(cfg.BaseDir, "tracking_id"),
	})
	defer telemetryClient.Close()

	if err := cli.Execute(ctx, telemetryClient); err != nil {
		telemetryClient.Close()
		os.Exit(1)
	}
}
