package cli

import (
	"context"
	"fmt"
	"reflect"

	"github.com/asteroid-belt/farrierly/internal/prefs"
	"github.com/spf13/cobra"
)

var prefsCmd = &cobra.Command{
	Use:     "prefs",
	Aliases: []string{"config"},
	Short:   "View and change device preferences",
	Long: `View and change device preferences.

Preferences live in prefs.yaml in the data directory. A running daemon
picks up edits to the file immediately.

Keys:
  appointments.default_duration_minutes   default visit length
  horses.shoeing_cycle_weeks              account default shoeing cycle
  reminders.days_before                   days before a visit to remind
  notifications.reminders                 true or false
  notifications.sync_failures             true or false
  display.theme                           system, light or dark`,
}

var prefsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every preference",
	Args:  cobra.NoArgs,
	RunE:  runPrefsList,
}

var prefsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one preference",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrefsGet,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a preference",
	Args:  cobra.ExactArgs(2),
	RunE:  runPrefsSet,
}

var prefsResetCmd = &cobra.Command{
	Use:   "reset <key>",
	Short: "Restore a preference to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrefsReset,
}

func init() {
	prefsCmd.AddCommand(prefsListCmd, prefsGetCmd, prefsSetCmd, prefsResetCmd)
}

func runPrefsList(cmd *cobra.Command, args []string) error {
	return trackCLIError("prefs list", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()
		values := a.prefs.All()
		for _, key := range prefs.Keys() {
			line := fmt.Sprintf("  %-40s %v", key, values[key])
			if def, _ := prefs.Default(key); !reflect.DeepEqual(def, values[key]) {
				line += " " + mutedStyle.Render(fmt.Sprintf("(default %v)", def))
			}
			_, _ = fmt.Fprintln(out, line)
		}
		_, _ = fmt.Fprintf(out, "\n%s\n", mutedStyle.Render(a.prefs.Path()))
		return nil
	}))
}

func runPrefsGet(cmd *cobra.Command, args []string) error {
	return trackCLIError("prefs get", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		v, err := a.prefs.Get(args[0])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	}))
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	return trackCLIError("prefs set", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		key := args[0]
		if err := a.prefs.Set(key, args[1]); err != nil {
			return err
		}
		v, _ := a.prefs.Get(key)
		def, _ := prefs.Default(key)
		telemetryClient.TrackPrefChanged(key, reflect.DeepEqual(def, v))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, v)
		return nil
	}))
}

func runPrefsReset(cmd *cobra.Command, args []string) error {
	return trackCLIError("prefs reset", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		key := args[0]
		if err := a.prefs.Reset(key); err != nil {
			return err
		}
		telemetryClient.TrackPrefChanged(key, true)
		v, _ := a.prefs.Get(key)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, v)
		return nil
	}))
}
