package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrNotAvailable reports an issue date no snapshot was published on.
	ErrNotAvailable = errors.New("issue date not available")

	// ErrNoBaseSnapshot reports daily snapshots with no time-series snapshot
	// at or before them to extend.
	ErrNoBaseSnapshot = errors.New("no time-series snapshot at or before issue date")
)

// Merge reconstructs the raw admissions table as it was observable on
// issueDate.
//
// A time-series snapshot published exactly on issueDate is returned verbatim.
// Otherwise issueDate must be a daily issue date: the latest time-series
// snapshot at or before it becomes the base, and each day past the base's
// last report date is filled from the daily snapshot that covers it (the
// latest issue wins when a day was republished). Days no daily covers are
// synthesized with missing counts for every state in the base, keeping the
// date range contiguous. Dailies never rewrite days the base already covers.
//
// The returned rows are freshly allocated and share nothing with the source.
func Merge(ctx context.Context, src Source, issueDate time.Time) ([]AdmissionRow, error) {
	issueDate = Day(issueDate)

	exact, ok, err := src.TimeSeries(ctx, issueDate)
	if err != nil {
		return nil, fmt.Errorf("load time-series snapshot: %w", err)
	}
	if ok {
		return cloneRows(exact.Rows), nil
	}

	dailyDates, err := src.DailyIssueDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list daily issue dates: %w", err)
	}
	if !containsDate(dailyDates, issueDate) {
		return nil, fmt.Errorf("%w: nothing issued %s", ErrNotAvailable, FormatDate(issueDate))
	}

	base, ok, err := src.LatestTimeSeries(ctx, issueDate)
	if err != nil {
		return nil, fmt.Errorf("load base snapshot: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: daily updates through %s have no base to extend", ErrNoBaseSnapshot, FormatDate(issueDate))
	}

	dailies, err := src.Dailies(ctx, issueDate)
	if err != nil {
		return nil, fmt.Errorf("load daily snapshots: %w", err)
	}

	merged := cloneRows(base.Rows)
	lastDate := maxReportDate(base.Rows)

	// Index dailies by report day; a later issue day supersedes an earlier
	// one for the same report day. Issue dates compare as calendar days so
	// a source that stamps them with clock times merges the same way.
	byReportDay := make(map[time.Time]DailySnapshot, len(dailies))
	maxDate := lastDate
	for _, daily := range dailies {
		day := Day(daily.ReportDate)
		if cur, ok := byReportDay[day]; !ok || Day(daily.IssueDate).After(Day(cur.IssueDate)) {
			byReportDay[day] = daily
		}
		if day.After(maxDate) {
			maxDate = day
		}
	}

	start := NextDay(lastDate)
	if lastDate.IsZero() {
		start = minReportDay(dailies)
	}
	states := baseStates(base.Rows)

	for day := start; !day.After(maxDate); day = NextDay(day) {
		daily, ok := byReportDay[day]
		if !ok {
			// Gap day: nothing was published for this date. Keep it with
			// missing counts so the range stays contiguous.
			for _, state := range states {
				merged = append(merged, AdmissionRow{ReportDate: day, State: state})
			}
			continue
		}
		for _, row := range daily.Rows {
			merged = append(merged, AdmissionRow{
				ReportDate:          day,
				State:               row.State,
				AdultAdmissions:     cloneCount(row.AdultAdmissions),
				PediatricAdmissions: cloneCount(row.PediatricAdmissions),
			})
		}
	}

	return merged, nil
}

func containsDate(dates []time.Time, want time.Time) bool {
	for _, d := range dates {
		if Day(d).Equal(want) {
			return true
		}
	}
	return false
}

func maxReportDate(rows []AdmissionRow) time.Time {
	var max time.Time
	for _, row := range rows {
		if day := Day(row.ReportDate); day.After(max) {
			max = day
		}
	}
	return max
}

func minReportDay(dailies []DailySnapshot) time.Time {
	var min time.Time
	for _, daily := range dailies {
		if day := Day(daily.ReportDate); min.IsZero() || day.Before(min) {
			min = day
		}
	}
	return min
}

// baseStates returns the distinct states of a snapshot, sorted so synthesized
// gap days come out in a stable order.
func baseStates(rows []AdmissionRow) []string {
	seen := make(map[string]struct{}, len(rows))
	states := make([]string, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.State]; ok {
			continue
		}
		seen[row.State] = struct{}{}
		states = append(states, row.State)
	}
	sort.Strings(states)
	return states
}
