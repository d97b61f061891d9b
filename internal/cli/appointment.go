package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asteroid-belt/farrierly/internal/cli/prompts"
	"github.com/asteroid-belt/farrierly/internal/models"
	"github.com/asteroid-belt/farrierly/internal/repository"
	"github.com/spf13/cobra"
)

var (
	apptClient   string
	apptHorses   []string
	apptService  string
	apptDate     string
	apptTime     string
	apptDuration int
	apptNotes    string
	apptFrom     string
	apptTo       string
	apptReason   string
)

var appointmentCmd = &cobra.Command{
	Use:     "appointment",
	Aliases: []string{"appt", "appointments"},
	Short:   "Schedule and close appointments",
}

var appointmentAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Schedule an appointment",
	Long: `Schedule a visit to a client for one or more of their horses.

Each horse is priced from the active service price for --service.
Without --horse an interactive selection dialog will be shown.
Without --duration the account default is used
(preference appointments.default_duration_minutes).

Examples:
  farrierly appointment add --client <id> --horse <id> --date 2026-03-02 --time 09:30
  farrierly appt add --client <id> --horse <id> --horse <id> --service TRIM --date 2026-03-02`,
	Args: cobra.NoArgs,
	RunE: runAppointmentAdd,
}

var appointmentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List appointments in a date range (default: the next 7 days)",
	Args:  cobra.NoArgs,
	RunE:  runAppointmentList,
}

var appointmentCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Complete an appointment and schedule each horse's next service",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppointmentComplete,
}

var appointmentCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel an appointment",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppointmentCancel,
}

var appointmentConfirmCmd = &cobra.Command{
	Use:   "confirm <id>",
	Short: "Mark an appointment as confirmed by the client",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppointmentConfirm,
}

var appointmentNoShowCmd = &cobra.Command{
	Use:   "no-show <id>",
	Short: "Mark an appointment the client missed",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppointmentNoShow,
}

func init() {
	f := appointmentAddCmd.Flags()
	f.StringVar(&apptClient, "client", "", "Client id (required)")
	f.StringArrayVar(&apptHorses, "horse", nil, "Horse id (repeatable)")
	f.StringVar(&apptService, "service", string(models.ServiceFullSet), "Service type for every horse")
	f.StringVar(&apptDate, "date", "", "Visit date YYYY-MM-DD (required)")
	f.StringVar(&apptTime, "time", "", "Start time HH:MM")
	f.IntVar(&apptDuration, "duration", 0, "Length in minutes (default: account setting)")
	f.StringVar(&apptNotes, "notes", "", "Free-form notes")
	_ = appointmentAddCmd.MarkFlagRequired("client")
	_ = appointmentAddCmd.MarkFlagRequired("date")

	appointmentListCmd.Flags().StringVar(&apptFrom, "from", "", "First day YYYY-MM-DD (default: today)")
	appointmentListCmd.Flags().StringVar(&apptTo, "to", "", "Last day YYYY-MM-DD (default: 6 days after --from)")

	appointmentCancelCmd.Flags().StringVarP(&apptReason, "reason", "r", "", "Why the visit was cancelled")

	appointmentCmd.AddCommand(appointmentAddCmd, appointmentListCmd, appointmentCompleteCmd,
		appointmentCancelCmd, appointmentConfirmCmd, appointmentNoShowCmd)
}

func runAppointmentAdd(cmd *cobra.Command, args []string) error {
	return trackCLIError("appointment add", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		date, err := parseDate(apptDate)
		if err != nil {
			return err
		}
		service, err := models.ParseServiceType(strings.ToUpper(apptService))
		if err != nil {
			return err
		}

		horseIDs := apptHorses
		if len(horseIDs) == 0 {
			horseIDs, err = selectHorses(ctx, a, apptClient)
			if err != nil {
				return err
			}
		}

		price, err := servicePrice(ctx, a, service)
		if err != nil {
			return err
		}
		appt := models.Appointment{
			ClientID:        apptClient,
			Date:            date,
			StartTime:       apptTime,
			DurationMinutes: apptDuration,
			Notes:           apptNotes,
		}
		for _, id := range horseIDs {
			appt.Horses = append(appt.Horses, models.AppointmentHorse{
				HorseID:     id,
				ServiceType: service,
				PriceCents:  price,
			})
		}

		if err := a.repos.Appointments.Create(ctx, a.session, &appt); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %s for %d horse(s), %d min, %s (%s)\n",
			appt.Date.Format("Mon Jan 2"), len(appt.Horses), appt.DurationMinutes,
			formatCents(appt.TotalPriceCents), appt.ID)
		return nil
	}))
}

func selectHorses(ctx context.Context, a *app, clientID string) ([]string, error) {
	horses, err := a.repos.Horses.ListByClient(ctx, a.session, clientID, false)
	if err != nil {
		return nil, err
	}
	selected, err := prompts.RunHorseSelector(horses)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(selected))
	for _, h := range selected {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// servicePrice returns the active price for service, or zero when the price
// list has none.
func servicePrice(ctx context.Context, a *app, service models.ServiceType) (int64, error) {
	prices, err := a.repos.ServicePrices.List(ctx, a.session)
	if err != nil {
		return 0, err
	}
	for _, p := range prices {
		if p.ServiceType == service {
			return p.PriceCents, nil
		}
	}
	return 0, nil
}

func runAppointmentList(cmd *cobra.Command, args []string) error {
	return trackCLIError("appointment list", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		from := today()
		if apptFrom != "" {
			d, err := parseDate(apptFrom)
			if err != nil {
				return err
			}
			from = d
		}
		to := from.AddDate(0, 0, 6)
		if apptTo != "" {
			d, err := parseDate(apptTo)
			if err != nil {
				return err
			}
			to = d
		}
		if to.Before(from) {
			return fmt.Errorf("invalid range: --to %s is before --from %s",
				to.Format("2006-01-02"), from.Format("2006-01-02"))
		}

		appts, err := a.repos.Appointments.ListBetween(ctx, a.session, from, to.AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(appts) == 0 {
			_, _ = fmt.Fprintln(out, "No appointments in this range.")
			return nil
		}
		_, _ = fmt.Fprintf(out, "%s %s - %s (%d)\n", headerStyle.Render("APPOINTMENTS"),
			from.Format("2006-01-02"), to.Format("2006-01-02"), len(appts))
		_, _ = fmt.Fprintln(out, "──────────────────────────────────────────────────")

		var day time.Time
		for _, appt := range appts {
			if !appt.Date.Equal(day) {
				day = appt.Date
				_, _ = fmt.Fprintf(out, "\n%s\n", day.Format("Monday, Jan 2"))
			}
			start := appt.StartTime
			if start == "" {
				start = "--:--"
			}
			_, _ = fmt.Fprintf(out, "  %s  %-10s %d horse(s)  %s  %s\n", start, appt.Status,
				len(appt.Horses), formatCents(appt.TotalPriceCents), syncBadge(appt.SyncStatus))
			_, _ = fmt.Fprintf(out, "         %s\n", mutedStyle.Render(appt.ID))
		}
		return nil
	}))
}

func runAppointmentComplete(cmd *cobra.Command, args []string) error {
	return trackCLIError("appointment complete", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		if err := a.repos.Appointments.Complete(ctx, a.session, args[0]); err != nil {
			return err
		}
		appt, err := a.repos.Appointments.Get(ctx, a.session, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, "Appointment completed.")
		for _, link := range appt.Horses {
			h, err := a.repos.Horses.Get(ctx, a.session, link.HorseID)
			if err != nil {
				return err
			}
			if h.NextDueDate != nil {
				_, _ = fmt.Fprintf(out, "  %s next due %s\n", h.Name, h.NextDueDate.Format("2006-01-02"))
			}
		}
		return nil
	}))
}

func runAppointmentCancel(cmd *cobra.Command, args []string) error {
	return appointmentTransition(cmd, "appointment cancel", "Appointment cancelled.",
		func(ctx context.Context, a *app, id string) error {
			return a.repos.Appointments.Cancel(ctx, a.session, id, apptReason)
		}, args[0])
}

func runAppointmentConfirm(cmd *cobra.Command, args []string) error {
	return appointmentTransition(cmd, "appointment confirm", "Appointment confirmed.",
		func(ctx context.Context, a *app, id string) error {
			return a.repos.Appointments.Confirm(ctx, a.session, id)
		}, args[0])
}

func runAppointmentNoShow(cmd *cobra.Command, args []string) error {
	return appointmentTransition(cmd, "appointment no-show", "Appointment marked as no-show.",
		func(ctx context.Context, a *app, id string) error {
			return a.repos.Appointments.MarkNoShow(ctx, a.session, id)
		}, args[0])
}

func appointmentTransition(cmd *cobra.Command, name, done string, fn func(context.Context, *app, string) error, id string) error {
	return trackCLIError(name, withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		if err := fn(ctx, a, id); err != nil {
			if errors.Is(err, repository.ErrClosed) {
				return fmt.Errorf("appointment %s is already closed: %w", id, err)
			}
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), done)
		return nil
	}))
}
