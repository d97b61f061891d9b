// Package cli provides the command-line interface for Farrierly.
package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/asteroid-belt/farrierly/internal/prefs"
	"github.com/asteroid-belt/farrierly/internal/remote"
	"github.com/asteroid-belt/farrierly/internal/repository"
	"github.com/asteroid-belt/farrierly/internal/syncer"
	"github.com/asteroid-belt/farrierly/internal/syncqueue"
	"github.com/asteroid-belt/farrierly/internal/telemetry"
	"github.com/asteroid-belt/farrierly/pkg/version"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var telemetryClient telemetry.Client

var commandStartTime time.Time

var rootCmd = &cobra.Command{
	Use:   "farrierly",
	Short: "Offline-first records for a mobile farrier",
	Long: `Offline-first records for a mobile farrier

Clients, horses, appointments and invoices are written to a local
database first. A command that changes data pushes it to the cloud
backend before it exits; anything that cannot be pushed waits in the
sync queue until the backend accepts it.

Configuration:
  FARRIERLY_HOME          data directory (default $XDG_DATA_HOME/farrierly)
  FARRIERLY_USER_ID       account the records belong to
  FARRIERLY_REMOTE_URL    backend REST endpoint
  FARRIERLY_API_KEY       backend API key
  FARRIERLY_ACCESS_TOKEN  bearer token for the signed-in user
  FARRIERLY_SYNC_PUSH_ON_WRITE=false  leave changes queued for "sync now" or the daemon

Telemetry:
  Telemetry is enabled by default, always anonymous, and will never track
  client, horse or invoice data, or IP addresses.

  Opt-out with:
  	FARRIERLY_TELEMETRY_TRACKING_ENABLED=false`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		commandStartTime = time.Now()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		durationMs := time.Since(commandStartTime).Milliseconds()
		hasFlags := cmd.Flags().NFlag() > 0
		telemetryClient.TrackCLICommandExecuted(cmd.CommandPath(), hasFlags, durationMs)
	},
}

func init() {
	rootCmd.AddCommand(clientCmd)
	rootCmd.AddCommand(horseCmd)
	rootCmd.AddCommand(appointmentCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(conflictsCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(daemonCmd)
}

// Execute runs the CLI with fang enhancements.
func Execute(ctx context.Context, tc telemetry.Client) error {
	if tc == nil {
		tc = telemetry.New(nil)
	}
	telemetryClient = tc

	return fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(version.Info()),
	)
}

// trackCLIError wraps an error with telemetry tracking.
// Call this before returning errors from CLI commands.
func trackCLIError(cmdName string, err error) error {
	if err == nil {
		return nil
	}
	telemetryClient.TrackCLIError(cmdName, classifyError(err))
	return err
}

// classifyError determines the error type for telemetry.
func classifyError(err error) string {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, syncqueue.ErrEntryNotFound):
		return "not_found_error"
	case errors.Is(err, repository.ErrInvalid), errors.Is(err, prefs.ErrInvalidValue),
		errors.Is(err, prefs.ErrUnknownKey):
		return "validation_error"
	case errors.Is(err, repository.ErrClosed):
		return "state_error"
	case errors.Is(err, repository.ErrNoSession):
		return "session_error"
	case errors.Is(err, remote.ErrNoURL):
		return "config_error"
	case errors.Is(err, syncer.ErrDrainInProgress):
		return "busy_error"
	}

	errStr := err.Error()
	switch {
	case containsAny(errStr, "config", "configuration"):
		return "config_error"
	case containsAny(errStr, "database", "db"):
		return "database_error"
	case containsAny(errStr, "network", "timeout", "connection"):
		return "network_error"
	case containsAny(errStr, "permission", "access denied"):
		return "permission_error"
	case containsAny(errStr, "invalid", "parse", "format"):
		return "validation_error"
	default:
		return "unknown_error"
	}
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
