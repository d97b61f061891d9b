package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/asteroid-belt/farrierly/internal/models"
	"github.com/spf13/cobra"
)

var (
	horseAdd     models.Horse
	horseCycle   int
	horseClient  string
	horseListAll bool
	horseDueDays int
)

var horseCmd = &cobra.Command{
	Use:     "horse",
	Aliases: []string{"horses"},
	Short:   "Manage horses",
}

var horseAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a horse to a client",
	Long: `Add a horse to a client.

Without --cycle the horse follows the account default shoeing cycle
(preference horses.shoeing_cycle_weeks).

Examples:
  farrierly horse add --client <client-id> --name Biscuit --cycle 7`,
	Args: cobra.NoArgs,
	RunE: runHorseAdd,
}

var horseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a client's horses",
	Args:  cobra.NoArgs,
	RunE:  runHorseList,
}

var horseDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List horses due for service",
	Args:  cobra.NoArgs,
	RunE:  runHorseDue,
}

func init() {
	f := horseAddCmd.Flags()
	f.StringVar(&horseAdd.ClientID, "client", "", "Owner client id (required)")
	f.StringVar(&horseAdd.Name, "name", "", "Horse name (required)")
	f.StringVar(&horseAdd.Breed, "breed", "", "Breed")
	f.StringVar(&horseAdd.Color, "color", "", "Color")
	f.StringVar(&horseAdd.Notes, "notes", "", "Free-form notes")
	f.IntVar(&horseCycle, "cycle", 0, "Shoeing cycle in weeks (default: account setting)")
	_ = horseAddCmd.MarkFlagRequired("client")
	_ = horseAddCmd.MarkFlagRequired("name")

	horseListCmd.Flags().StringVar(&horseClient, "client", "", "Owner client id (required)")
	horseListCmd.Flags().BoolVarP(&horseListAll, "all", "a", false, "Include inactive horses")
	_ = horseListCmd.MarkFlagRequired("client")

	horseDueCmd.Flags().IntVarP(&horseDueDays, "days", "d", 14, "Include horses due within this many days")

	horseCmd.AddCommand(horseAddCmd, horseListCmd, horseDueCmd)
}

func runHorseAdd(cmd *cobra.Command, args []string) error {
	return trackCLIError("horse add", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		h := horseAdd
		if horseCycle != 0 {
			weeks := horseCycle
			h.ShoeingCycleWeeks = &weeks
		}
		if err := a.repos.Horses.Create(ctx, a.session, &h); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added horse %s (%s)\n", h.Name, h.ID)
		return nil
	}))
}

func runHorseList(cmd *cobra.Command, args []string) error {
	return trackCLIError("horse list", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		horses, err := a.repos.Horses.ListByClient(ctx, a.session, horseClient, horseListAll)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(horses) == 0 {
			_, _ = fmt.Fprintln(out, "No horses for this client.")
			return nil
		}
		_, _ = fmt.Fprintf(out, "%s (%d)\n", headerStyle.Render("HORSES"), len(horses))
		for _, h := range horses {
			printHorse(out, &h)
		}
		return nil
	}))
}

func runHorseDue(cmd *cobra.Command, args []string) error {
	return trackCLIError("horse due", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		if horseDueDays < 0 {
			return fmt.Errorf("invalid --days %d", horseDueDays)
		}
		cutoff := today().AddDate(0, 0, horseDueDays)
		horses, err := a.repos.Horses.ListDue(ctx, a.session, cutoff)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(horses) == 0 {
			_, _ = fmt.Fprintf(out, "No horses due in the next %d days.\n", horseDueDays)
			return nil
		}
		_, _ = fmt.Fprintf(out, "%s (%d, before %s)\n",
			headerStyle.Render("DUE FOR SERVICE"), len(horses), cutoff.Format("2006-01-02"))
		for _, h := range horses {
			printHorse(out, &h)
		}
		return nil
	}))
}

func printHorse(w io.Writer, h *models.Horse) {
	_, _ = fmt.Fprintf(w, "  • %-24s %s\n", h.Name, syncBadge(h.SyncStatus))
	_, _ = fmt.Fprintf(w, "    id %s\n", h.ID)
	if h.NextDueDate != nil {
		due := h.NextDueDate.Format("2006-01-02")
		if h.NextDueDate.Before(today()) {
			due = warningStyle.Render(due + " (overdue)")
		}
		_, _ = fmt.Fprintf(w, "    next due %s\n", due)
	}
	if h.ShoeingCycleWeeks != nil {
		_, _ = fmt.Fprintf(w, "    every %d weeks\n", *h.ShoeingCycleWeeks)
	}
	if !h.IsActive {
		_, _ = fmt.Fprintf(w, "    %s\n", mutedStyle.Render("inactive"))
	}
}
