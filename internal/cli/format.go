package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/asteroid-belt/farrierly/internal/models"
)

// syncBadge renders an entity's sync flag for listings.
func syncBadge(s models.SyncStatus) string {
	switch s {
	case models.SyncStatusSynced:
		return mutedStyle.Render("synced")
	case models.SyncStatusConflict:
		return dangerStyle.Render("conflict")
	case models.SyncStatusFailed:
		return dangerStyle.Render("failed")
	case "":
		return ""
	default:
		return warningStyle.Render("unsynced")
	}
}

// queueBadge renders a queue entry status.
func queueBadge(s models.QueueStatus) string {
	switch s {
	case models.QueueStatusCompleted:
		return mutedStyle.Render(string(s))
	case models.QueueStatusFailed:
		return warningStyle.Render(string(s))
	case models.QueueStatusQuarantined:
		return dangerStyle.Render(string(s))
	default:
		return string(s)
	}
}

// formatCents renders an amount in dollars.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// formatTimeSince formats a duration since a time in a human-readable way.
func formatTimeSince(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02")
	}
}
