package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/asteroid-belt/farrierly/internal/config"
	"github.com/asteroid-belt/farrierly/internal/log"
	"github.com/asteroid-belt/farrierly/internal/prefs"
	"github.com/asteroid-belt/farrierly/internal/repository"
	"github.com/spf13/cobra"
)

var daemonInterval time.Duration

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Keep draining the sync queue in the background",
	Long: `Run the sync scheduler until interrupted.

The queue is drained on start, then every --interval, and soon after
another farrierly process queues a change. Completed entries
older than the retention window are removed after each periodic drain.
Activity is written to logs/farrierly.log in the data directory.

Examples:
  farrierly daemon
  farrierly daemon --interval 5m`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", 0, "Drain period (default: FARRIERLY_SYNC_INTERVAL or 15m)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	return trackCLIError("daemon", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		if daemonInterval > 0 {
			a.cfg.Sync.PeriodicInterval = daemonInterval
		}
		if err := log.Init(config.GetPaths(a.cfg).Logs); err != nil {
			return fmt.Errorf("initialize log: %w", err)
		}
		defer func() { _ = log.Close() }()

		scheduler, err := a.newScheduler()
		if err != nil {
			return err
		}
		if err := a.prefs.Watch(); err != nil {
			log.Errorf("prefs: %v", err)
		}

		pending, _ := a.queue.GetPendingCount(ctx)
		telemetryClient.TrackAppStarted("daemon", pending)

		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer scheduler.Stop()

		log.Printf("sync daemon started, draining every %s\n", a.cfg.Sync.PeriodicInterval)
		watchDaemon(ctx, a, scheduler)
		log.Println("sync daemon stopped")
		return nil
	}))
}

// watchDaemon logs pending-count and preference changes until ctx is done.
// Other processes write to the same database, so the pending count is also
// polled and a rise triggers a drain.
func watchDaemon(ctx context.Context, a *app, trigger repository.Trigger) {
	counts := a.queue.ObservePendingCount(ctx)
	cycles, err := a.prefs.Observe(ctx, prefs.KeyShoeingCycleWeeks)
	if err != nil {
		log.Errorf("prefs: %v", err)
	}

	var poll <-chan time.Time
	if a.cfg.Sync.WatchInterval > 0 {
		ticker := time.NewTicker(a.cfg.Sync.WatchInterval)
		defer ticker.Stop()
		poll = ticker.C
	}
	last, _ := a.queue.GetPendingCount(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-counts:
			if !ok {
				counts = nil
				continue
			}
			last = n
			log.Printf("sync queue: %d pending\n", n)
		case <-poll:
			last = pollPending(ctx, a, last, trigger)
		case v, ok := <-cycles:
			if !ok {
				cycles = nil
				continue
			}
			log.Printf("default shoeing cycle: %v weeks\n", v)
		}
	}
}

// pollPending triggers a drain when the pending count rose past last and
// returns the new count.
func pollPending(ctx context.Context, a *app, last int64, trigger repository.Trigger) int64 {
	n, err := a.queue.GetPendingCount(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Errorf("sync queue: %v", err)
		}
		return last
	}
	if n > last {
		log.Printf("sync queue: %d new change(s) from another process\n", n-last)
		trigger.TriggerImmediateSync()
	}
	return n
}
