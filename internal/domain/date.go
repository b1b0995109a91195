package domain

import (
	"fmt"
	"time"
)

// DateFormat is the calendar-date layout the feed uses everywhere.
const DateFormat = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string as a UTC-midnight calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// MustDate is ParseDate for reference tables and fixtures; it panics on
// malformed input.
func MustDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// Day normalizes a timestamp to its UTC calendar date (midnight).
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextDay returns the calendar day after d.
func NextDay(d time.Time) time.Time {
	return d.AddDate(0, 0, 1)
}

// PrevDay returns the calendar day before d.
func PrevDay(d time.Time) time.Time {
	return d.AddDate(0, 0, -1)
}

// WeekEndingSaturday maps a date to the Saturday ending its epidemiological
// week: the next Saturday at or after the date. Saturdays map to themselves.
func WeekEndingSaturday(d time.Time) time.Time {
	days := (int(time.Saturday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, days)
}
