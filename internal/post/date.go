package post

import (
	"fmt"
	"strings"
	"time"
)

// Date returns the calendar date y-m-d as UTC midnight.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Day truncates t to its calendar date in t's own location, returned as UTC
// midnight. The zero time stays zero.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return Date(t.Year(), t.Month(), t.Day())
}

// ParseDate parses YYYY-MM-DD. Blank input yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// InRange reports whether d lies in [start, end]. A zero bound is open; a
// zero d is never in range.
func InRange(d, start, end time.Time) bool {
	if d.IsZero() {
		return false
	}
	d = Day(d)
	if !start.IsZero() && d.Before(Day(start)) {
		return false
	}
	if !end.IsZero() && d.After(Day(end)) {
		return false
	}
	return true
}
