package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/asteroid-belt/farrierly/internal/cli/prompts"
	"github.com/asteroid-belt/farrierly/internal/models"
	"github.com/asteroid-belt/farrierly/internal/syncer"
	"github.com/spf13/cobra"
)

var syncRetryAll bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push queued changes to the backend",
	Long: `Push queued changes to the backend and inspect the sync queue.

Every local change is queued first. 'farrierly sync now' drains the queue
once; 'farrierly daemon' keeps draining in the background.`,
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Drain the sync queue once",
	Args:  cobra.NoArgs,
	RunE:  runSyncNow,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync queue health",
	Args:  cobra.NoArgs,
	RunE:  runSyncStatus,
}

var syncRetryCmd = &cobra.Command{
	Use:   "retry [entry-id...]",
	Short: "Requeue quarantined entries",
	Long: `Requeue quarantined entries so the next drain tries them again.
Their retry count starts over.

If no entry id is given, an interactive selection dialog will be shown.

Examples:
  farrierly sync retry 42
  farrierly sync retry --all`,
	RunE: runSyncRetry,
}

var syncGCCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove completed entries past the retention window",
	Args:  cobra.NoArgs,
	RunE:  runSyncGC,
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List records the backend rejected or that lost to a newer remote edit",
	Args:  cobra.NoArgs,
	RunE:  runConflicts,
}

func init() {
	syncRetryCmd.Flags().BoolVar(&syncRetryAll, "all", false, "Requeue every quarantined entry")

	syncCmd.AddCommand(syncNowCmd, syncStatusCmd, syncRetryCmd, syncGCCmd)
}

func runSyncNow(cmd *cobra.Command, args []string) error {
	return trackCLIError("sync now", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		scheduler, err := a.newScheduler()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		total := 0
		var last syncer.Result
		// Drain full batches until a cycle makes no progress.
		for {
			res, err := scheduler.SyncNow(ctx)
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			total += res.Completed
			last = res
			if res.Fetched < a.cfg.Sync.BatchLimit || res.Completed+res.Conflicts == 0 {
				break
			}
		}

		if total == 0 && last.Fetched == 0 {
			_, _ = fmt.Fprintln(out, "Nothing to sync.")
		} else {
			_, _ = fmt.Fprintf(out, "Synced %d change(s)\n", total)
		}
		printCycleProblems(out, last)
		return printQueueSummary(ctx, out, a)
	}))
}

func printCycleProblems(w io.Writer, res syncer.Result) {
	if res.Failed > 0 {
		_, _ = fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("%d change(s) failed and will be retried", res.Failed)))
	}
	if res.Quarantined > 0 {
		_, _ = fmt.Fprintln(w, dangerStyle.Render(fmt.Sprintf("%d change(s) quarantined; see 'farrierly queue list --status QUARANTINED'", res.Quarantined)))
	}
	if res.Conflicts > 0 {
		_, _ = fmt.Fprintln(w, dangerStyle.Render(fmt.Sprintf("%d conflict(s); see 'farrierly conflicts'", res.Conflicts)))
	}
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	return trackCLIError("sync status", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, headerStyle.Render("SYNC STATUS"))
		_, _ = fmt.Fprintln(out, "──────────────────────────────────────────────────")
		if a.cfg.Remote.Configured() {
			_, _ = fmt.Fprintf(out, "  Backend:   %s\n", a.cfg.Remote.URL)
		} else {
			_, _ = fmt.Fprintf(out, "  Backend:   %s\n", warningStyle.Render("not configured (changes stay local)"))
		}
		_, _ = fmt.Fprintf(out, "  Account:   %s\n", a.session.UserID)
		return printQueueSummary(ctx, out, a)
	}))
}

func printQueueSummary(ctx context.Context, w io.Writer, a *app) error {
	stats, err := a.queue.Stats(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "  Pending:     %d\n", stats.Undrained())
	_, _ = fmt.Fprintf(w, "  In progress: %d\n", stats.InProgress)
	_, _ = fmt.Fprintf(w, "  Failed:      %d\n", stats.Failed)
	_, _ = fmt.Fprintf(w, "  Quarantined: %d\n", stats.Quarantined)
	_, _ = fmt.Fprintf(w, "  Completed:   %d\n", stats.Completed)

	total := stats.Pending + stats.InProgress + stats.Failed + stats.Quarantined + stats.Completed
	bar := NewProgressBar(int(total), 20)
	bar.Update(int(stats.Completed), "synced")
	if stats.Failed+stats.Quarantined > 0 {
		_, _ = fmt.Fprintln(w, bar.RenderWarning())
	} else if rendered := bar.Render(); rendered != "" {
		_, _ = fmt.Fprintln(w, rendered)
	}
	return nil
}

func runSyncRetry(cmd *cobra.Command, args []string) error {
	return trackCLIError("sync retry", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()

		if syncRetryAll {
			n, err := a.queue.RequeueAll(ctx)
			if err != nil {
				return err
			}
			telemetryClient.TrackSyncRequeued(n)
			_, _ = fmt.Fprintf(out, "Requeued %d entr%s\n", n, plural(n, "y", "ies"))
			return nil
		}

		var ids []int64
		for _, arg := range args {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry id %q", arg)
			}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			entries, err := a.queue.List(ctx, models.QueueStatusQuarantined, 0)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(out, "No quarantined entries.")
				return nil
			}
			ids, err = prompts.RunEntrySelector(entries)
			if err != nil {
				return err
			}
		}

		for _, id := range ids {
			if err := a.queue.Requeue(ctx, id); err != nil {
				return err
			}
		}
		if len(ids) > 0 {
			telemetryClient.TrackSyncRequeued(len(ids))
		}
		_, _ = fmt.Fprintf(out, "Requeued %d entr%s\n", len(ids), plural(len(ids), "y", "ies"))
		return nil
	}))
}

func runSyncGC(cmd *cobra.Command, args []string) error {
	return trackCLIError("sync gc", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		cutoff := time.Now().UTC().Add(-a.cfg.Sync.CompletedRetention)
		n, err := a.queue.DeleteCompletedBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed entr%s\n", n, plural(int(n), "y", "ies"))
		return nil
	}))
}

func runConflicts(cmd *cobra.Command, args []string) error {
	return trackCLIError("conflicts", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		refs, err := a.repos.Conflicts(ctx, a.session)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(refs) == 0 {
			_, _ = fmt.Fprintln(out, "No conflicts.")
			return nil
		}
		_, _ = fmt.Fprintf(out, "%s (%d)\n", headerStyle.Render("CONFLICTS"), len(refs))
		for _, ref := range refs {
			_, _ = fmt.Fprintf(out, "  %-14s %-36s %s  %s\n", ref.Type, ref.ID,
				syncBadge(ref.SyncStatus), mutedStyle.Render(formatTimeSince(ref.UpdatedAt)))
		}
		_, _ = fmt.Fprintln(out, "\nEdit the record to queue a fresh change, or requeue with 'farrierly sync retry'.")
		return nil
	}))
}
