package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Resolutions and measures accepted by Load.
const (
	SpatialState    = "state"
	SpatialNational = "national"

	TemporalDaily  = "daily"
	TemporalWeekly = "weekly"

	MeasureHospitalizations = "hospitalizations"
)

// Only-supported value of the pass-through adjustment options.
const adjustmentNone = "none"

var (
	// ErrConflictingSelector reports both an issue date and an as-of date.
	ErrConflictingSelector = errors.New("issue date and as-of date are mutually exclusive")

	// ErrUnknownIssueDate reports an issue date nothing was published on;
	// the message enumerates the valid issue dates.
	ErrUnknownIssueDate = errors.New("unknown issue date")

	// ErrNoIssueBeforeAsOf reports an as-of date earlier than every issue.
	ErrNoIssueBeforeAsOf = errors.New("no issue date at or before as-of date")

	// ErrUnsupportedOption reports an option value outside the supported set.
	ErrUnsupportedOption = errors.New("unsupported option")
)

// LoadOptions selects which published vintage to reconstruct and how to
// shape the output. The zero value asks for the latest issue, state rows
// only, weekly resolution.
type LoadOptions struct {
	// IssueDate pins the reconstruction to an exact publication date.
	// Mutually exclusive with AsOf.
	IssueDate *time.Time

	// AsOf resolves to the latest issue date at or before the given date.
	AsOf *time.Time

	// SpatialResolutions picks row kinds: "state", "national", or both.
	// Empty means state only.
	SpatialResolutions []string

	// TemporalResolution is "daily" or "weekly". Empty means weekly.
	TemporalResolution string

	// Measure names the quantity to load. Only "hospitalizations" exists
	// in this feed; empty means that.
	Measure string

	// ReplaceNegatives is accepted for call-site parity with other loaders;
	// only false is supported.
	ReplaceNegatives bool

	// AdjustmentCases and AdjustmentMethod are accepted for parity; only
	// "none" (the default for both) is supported.
	AdjustmentCases  string
	AdjustmentMethod string
}

// Load reconstructs hospital admission incidence as of a published issue
// date and shapes it per the options: merge the archived snapshots
// ([Merge]), preprocess to daily incidence ([Incidence]), filter to the
// requested spatial resolutions, optionally roll up to Saturday-ending
// weeks (trimming each location's trailing incomplete week), and attach
// per-location cumulative sums.
//
// Rows come back sorted by location, then date. Option validation runs
// before any data is touched.
func Load(ctx context.Context, src Source, locations LocationLookup, opts LoadOptions) ([]ResultRow, error) {
	opts, err := normalizeOptions(opts)
	if err != nil {
		return nil, err
	}

	issueDate, err := resolveIssueDate(ctx, src, opts)
	if err != nil {
		return nil, err
	}

	raw, err := Merge(ctx, src, issueDate)
	if err != nil {
		return nil, err
	}

	rows, err := Incidence(raw, locations)
	if err != nil {
		return nil, err
	}

	rows = filterSpatial(rows, opts.SpatialResolutions)
	if opts.TemporalResolution == TemporalWeekly {
		rows = rollupWeekly(rows)
	}

	return accumulate(rows), nil
}

// normalizeOptions applies defaults and rejects values outside the
// supported sets.
func normalizeOptions(opts LoadOptions) (LoadOptions, error) {
	if opts.IssueDate != nil && opts.AsOf != nil {
		return opts, fmt.Errorf("%w: pass one of them", ErrConflictingSelector)
	}

	if len(opts.SpatialResolutions) == 0 {
		opts.SpatialResolutions = []string{SpatialState}
	}
	for _, resolution := range opts.SpatialResolutions {
		if resolution != SpatialState && resolution != SpatialNational {
			return opts, fmt.Errorf("%w: spatial resolution %q", ErrUnsupportedOption, resolution)
		}
	}

	if opts.TemporalResolution == "" {
		opts.TemporalResolution = TemporalWeekly
	}
	if opts.TemporalResolution != TemporalDaily && opts.TemporalResolution != TemporalWeekly {
		return opts, fmt.Errorf("%w: temporal resolution %q", ErrUnsupportedOption, opts.TemporalResolution)
	}

	if opts.Measure == "" {
		opts.Measure = MeasureHospitalizations
	}
	if opts.Measure != MeasureHospitalizations {
		return opts, fmt.Errorf("%w: measure %q", ErrUnsupportedOption, opts.Measure)
	}

	if opts.ReplaceNegatives {
		return opts, fmt.Errorf("%w: replace_negatives", ErrUnsupportedOption)
	}

	if opts.AdjustmentCases == "" {
		opts.AdjustmentCases = adjustmentNone
	}
	if opts.AdjustmentCases != adjustmentNone {
		return opts, fmt.Errorf("%w: adjustment cases %q", ErrUnsupportedOption, opts.AdjustmentCases)
	}

	if opts.AdjustmentMethod == "" {
		opts.AdjustmentMethod = adjustmentNone
	}
	if opts.AdjustmentMethod != adjustmentNone {
		return opts, fmt.Errorf("%w: adjustment method %q", ErrUnsupportedOption, opts.AdjustmentMethod)
	}

	return opts, nil
}

// resolveIssueDate turns the selector options into a concrete issue date
// against the union of time-series and daily issue dates.
func resolveIssueDate(ctx context.Context, src Source, opts LoadOptions) (time.Time, error) {
	tsDates, err := src.TimeSeriesIssueDates(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("list time-series issue dates: %w", err)
	}
	dailyDates, err := src.DailyIssueDates(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("list daily issue dates: %w", err)
	}
	available := unionDates(tsDates, dailyDates)

	switch {
	case opts.IssueDate != nil:
		want := Day(*opts.IssueDate)
		if containsDate(available, want) {
			return want, nil
		}
		return time.Time{}, fmt.Errorf("%w %s: available issue dates: %s",
			ErrUnknownIssueDate, FormatDate(want), joinDates(available))

	case opts.AsOf != nil:
		want := Day(*opts.AsOf)
		for i := len(available) - 1; i >= 0; i-- {
			if !available[i].After(want) {
				return available[i], nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %s", ErrNoIssueBeforeAsOf, FormatDate(want))

	default:
		if len(available) == 0 {
			return time.Time{}, fmt.Errorf("%w: the source holds no snapshots", ErrNotAvailable)
		}
		return available[len(available)-1], nil
	}
}

// unionDates merges two ascending date lists into one sorted, deduplicated
// list of calendar days.
func unionDates(a, b []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(a)+len(b))
	out := make([]time.Time, 0, len(a)+len(b))
	for _, d := range append(append([]time.Time{}, a...), b...) {
		day := Day(d)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func joinDates(dates []time.Time) string {
	if len(dates) == 0 {
		return "(none)"
	}
	formatted := make([]string, len(dates))
	for i, d := range dates {
		formatted[i] = FormatDate(d)
	}
	return strings.Join(formatted, ", ")
}

func filterSpatial(rows []IncidenceRow, resolutions []string) []IncidenceRow {
	var keepState, keepNational bool
	for _, resolution := range resolutions {
		switch resolution {
		case SpatialState:
			keepState = true
		case SpatialNational:
			keepNational = true
		}
	}

	filtered := rows[:0]
	for _, row := range rows {
		national := row.Location == NationalLocation
		if (national && keepNational) || (!national && keepState) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// rollupWeekly groups daily rows into Saturday-ending weeks with a strict
// missing-propagating sum. A location whose data stops short of its last
// week's Saturday has that trailing week dropped; locations are trimmed
// independently of each other.
func rollupWeekly(rows []IncidenceRow) []IncidenceRow {
	lastDate := make(map[string]time.Time)
	lastWeek := make(map[string]time.Time)
	for _, row := range rows {
		if row.Date.After(lastDate[row.Location]) {
			lastDate[row.Location] = row.Date
		}
		if week := WeekEndingSaturday(row.Date); week.After(lastWeek[row.Location]) {
			lastWeek[row.Location] = week
		}
	}

	type weekKey struct {
		location string
		week     time.Time
	}
	type weekSum struct {
		total   int64
		missing bool
	}
	sums := make(map[weekKey]*weekSum)
	var order []weekKey

	for _, row := range rows {
		week := WeekEndingSaturday(row.Date)
		if week.Equal(lastWeek[row.Location]) && lastDate[row.Location].Before(week) {
			continue // incomplete trailing week
		}
		key := weekKey{location: row.Location, week: week}
		sum, ok := sums[key]
		if !ok {
			sum = &weekSum{}
			sums[key] = sum
			order = append(order, key)
		}
		if row.Inc == nil {
			sum.missing = true
		} else {
			sum.total += *row.Inc
		}
	}

	out := make([]IncidenceRow, 0, len(order))
	for _, key := range order {
		row := IncidenceRow{Location: key.location, Date: key.week}
		if sum := sums[key]; !sum.missing {
			row.Inc = Count(sum.total)
		}
		out = append(out, row)
	}
	return out
}

// accumulate sorts rows by location then date and attaches per-location
// running sums. A missing incidence poisons the cumulative sum for the rest
// of that location.
func accumulate(rows []IncidenceRow) []ResultRow {
	sorted := make([]IncidenceRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Location != sorted[j].Location {
			return sorted[i].Location < sorted[j].Location
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	out := make([]ResultRow, 0, len(sorted))
	var (
		location string
		running  int64
		poisoned bool
	)
	for i, row := range sorted {
		if i == 0 || row.Location != location {
			location, running, poisoned = row.Location, 0, false
		}
		result := ResultRow{Location: row.Location, Date: row.Date, Inc: cloneCount(row.Inc)}
		if row.Inc == nil {
			poisoned = true
		}
		if !poisoned {
			running += *row.Inc
			result.Cum = Count(running)
		}
		out = append(out, result)
	}
	return out
}
