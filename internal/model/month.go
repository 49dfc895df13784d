package model

import (
	"fmt"
	"strings"
	"time"
)

const monthLayout = "2006-01"

// MonthOf returns the first instant of t's month in UTC. Billing periods are
// always keyed by this value.
func MonthOf(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// MonthRange returns [start, end) of the month containing t.
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := MonthOf(t)
	return start, start.AddDate(0, 1, 0)
}

// ParseMonth accepts "2006-01" and full dates, normalizing to the month start.
func ParseMonth(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{monthLayout, "2006-01-02", time.RFC3339} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return MonthOf(parsed), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid month %q", raw)
}

func FormatMonth(t time.Time) string {
	return t.Format(monthLayout)
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
