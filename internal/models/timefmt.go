package models

import "time"

// TimestampLayout is the wire format for timestamps in sync payloads.
const TimestampLayout = time.RFC3339

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseTimestamp parses a payload timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// Truncate returns t at midnight in its own location.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
