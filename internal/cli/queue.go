package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/asteroid-belt/farrierly/internal/models"
	"github.com/spf13/cobra"
)

var (
	queueStatus string
	queueLimit  int
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the sync queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queue entries in drain order",
	Long: `List sync queue entries.

Without --status, lists entries the next drain would pick up
(PENDING and FAILED) in the order they would be sent.

Examples:
  farrierly queue list
  farrierly queue list --status QUARANTINED`,
	Args: cobra.NoArgs,
	RunE: runQueueList,
}

func init() {
	queueListCmd.Flags().StringVarP(&queueStatus, "status", "s", "", "PENDING, IN_PROGRESS, FAILED, COMPLETED or QUARANTINED")
	queueListCmd.Flags().IntVarP(&queueLimit, "limit", "n", 50, "Maximum entries to show")

	queueCmd.AddCommand(queueListCmd)
}

func runQueueList(cmd *cobra.Command, args []string) error {
	return trackCLIError("queue list", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		var entries []models.SyncQueueEntry
		var err error
		title := "DRAIN ORDER"
		if queueStatus == "" {
			entries, err = a.queue.GetPendingOperations(ctx, queueLimit)
		} else {
			var status models.QueueStatus
			status, err = models.ParseQueueStatus(strings.ToUpper(queueStatus))
			if err != nil {
				return err
			}
			title = string(status)
			entries, err = a.queue.List(ctx, status, queueLimit)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			_, _ = fmt.Fprintln(out, "Queue is empty.")
			return nil
		}
		_, _ = fmt.Fprintf(out, "%s (%d)\n", headerStyle.Render(title), len(entries))
		_, _ = fmt.Fprintln(out, "──────────────────────────────────────────────────")
		for _, e := range entries {
			_, _ = fmt.Fprintf(out, "  #%-5d %-6s %-13s %-36s %s\n",
				e.ID, e.Operation, e.EntityType, e.EntityID, queueBadge(e.Status))
			detail := fmt.Sprintf("queued %s", formatTimeSince(e.CreatedAt))
			if e.RetryCount > 0 {
				detail += fmt.Sprintf(", %d retr%s", e.RetryCount, plural(e.RetryCount, "y", "ies"))
			}
			if e.NextAttemptAt != nil && e.Status == models.QueueStatusFailed {
				detail += ", next attempt " + e.NextAttemptAt.Local().Format("15:04")
			}
			_, _ = fmt.Fprintf(out, "         %s\n", mutedStyle.Render(detail))
			if msg := e.ErrorMessage(); msg != "" {
				_, _ = fmt.Fprintf(out, "         %s\n", warningStyle.Render(msg))
			}
		}
		return nil
	}))
}
