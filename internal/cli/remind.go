package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/asteroid-belt/farrierly/internal/models"
	"github.com/asteroid-belt/farrierly/internal/prefs"
	"github.com/spf13/cobra"
)

var (
	remindDays     int
	remindMarkSent bool
)

var appointmentRemindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Print reminder texts for upcoming appointments",
	Long: `Print one reminder text per upcoming appointment whose client has a
phone number on file.

Appointments from today through --days ahead are included (default:
preference reminders.days_before). Nothing is sent from here; pass
--mark-sent after texting them to count them in this month's usage.

Examples:
  farrierly appointment remind
  farrierly appt remind --days 1 --mark-sent`,
	Args: cobra.NoArgs,
	RunE: runAppointmentRemind,
}

func init() {
	appointmentRemindCmd.Flags().IntVar(&remindDays, "days", -1, "Days ahead to include (default: account setting)")
	appointmentRemindCmd.Flags().BoolVar(&remindMarkSent, "mark-sent", false, "Count the printed reminders as sent texts")
	appointmentCmd.AddCommand(appointmentRemindCmd)
}

func runAppointmentRemind(cmd *cobra.Command, args []string) error {
	return trackCLIError("appointment remind", withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()
		if !a.prefs.Bool(prefs.KeyNotifyReminders) {
			_, _ = fmt.Fprintf(out, "Reminders are turned off (farrierly prefs set %s true).\n", prefs.KeyNotifyReminders)
			return nil
		}
		days := remindDays
		if days < 0 {
			days = a.prefs.ReminderDays()
		}

		appts, err := a.repos.Appointments.Upcoming(ctx, a.session, today(), days)
		if err != nil {
			return err
		}

		sent := 0
		for _, appt := range appts {
			c, err := a.repos.Clients.Get(ctx, a.session, appt.ClientID)
			if err != nil {
				return err
			}
			if c.Phone == "" {
				continue
			}
			msg, err := reminderText(ctx, a, c, &appt)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "%s  %s\n", c.Phone, msg)
			sent++
		}
		if sent == 0 {
			_, _ = fmt.Fprintln(out, "No reminders to send.")
			return nil
		}

		if remindMarkSent {
			if err := a.repos.Usage.RecordSms(ctx, a.session, sent); err != nil {
				return err
			}
		}
		total, err := a.repos.Usage.SmsThisMonth(ctx, a.session)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "\n%s\n", mutedStyle.Render(fmt.Sprintf("%d reminder(s), %d text(s) sent this month", sent, total)))
		return nil
	}))
}

// reminderText builds the message for one visit.
func reminderText(ctx context.Context, a *app, c *models.Client, appt *models.Appointment) (string, error) {
	var names []string
	for _, link := range appt.Horses {
		h, err := a.repos.Horses.Get(ctx, a.session, link.HorseID)
		if err != nil {
			return "", err
		}
		names = append(names, h.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, reminder of your farrier visit", c.Name)
	if len(names) > 0 {
		fmt.Fprintf(&b, " for %s", strings.Join(names, " and "))
	}
	fmt.Fprintf(&b, " on %s", appt.Date.Format("Mon Jan 2"))
	if appt.StartTime != "" {
		fmt.Fprintf(&b, " at %s", appt.StartTime)
	}
	b.WriteString(".")
	return b.String(), nil
}
