package domain

import (
	"context"
	"time"
)

// AdmissionRow is one state/report-day row of the raw admissions table.
// Counts follow the feed's previous-day convention (see the package doc)
// and are nil when the value was not reported.
type AdmissionRow struct {
	ReportDate          time.Time
	State               string // two-letter USPS abbreviation, e.g. "CA"
	AdultAdmissions     *int64
	PediatricAdmissions *int64
}

// StateAdmissions is one state's counts inside a daily snapshot. The
// snapshot's report date applies to every row; the upstream daily file
// carries a single day.
type StateAdmissions struct {
	State               string
	AdultAdmissions     *int64
	PediatricAdmissions *int64
}

// TimeSeriesSnapshot is a full admissions history as published on IssueDate.
type TimeSeriesSnapshot struct {
	IssueDate time.Time
	Rows      []AdmissionRow
}

// DailySnapshot is a single report day as published on IssueDate.
type DailySnapshot struct {
	IssueDate  time.Time
	ReportDate time.Time
	Rows       []StateAdmissions
}

// IncidenceRow is a per-location daily admission count after preprocessing:
// adult and pediatric summed, the report date shifted to the admission date,
// and the location expressed as a canonical code ("06", "48", "US", ...).
type IncidenceRow struct {
	Location string
	Date     time.Time
	Inc      *int64
}

// ResultRow is one output row of a reconstruction: incidence plus the
// per-location cumulative sum. Cum is nil from the first missing Inc onward.
type ResultRow struct {
	Location string
	Date     time.Time
	Inc      *int64
	Cum      *int64
}

// ResultBatch is a reconstructed table stamped for publication.
type ResultBatch struct {
	IssueDate          time.Time
	TemporalResolution string
	GeneratedAt        time.Time
	Rows               []ResultRow
}

// NewResultBatch stamps a reconstructed table with the current time for the
// sink. Tests freeze the stamp via SetClock.
func NewResultBatch(issueDate time.Time, temporalResolution string, rows []ResultRow) ResultBatch {
	return ResultBatch{
		IssueDate:          issueDate,
		TemporalResolution: temporalResolution,
		GeneratedAt:        clock.Now().UTC(),
		Rows:               rows,
	}
}

// Source provides the archived snapshots a reconstruction reads from.
// Implementations must treat snapshots as immutable once saved and must
// return issue-date listings in ascending order.
type Source interface {
	// TimeSeriesIssueDates lists the issue dates of archived time-series
	// snapshots, ascending.
	TimeSeriesIssueDates(ctx context.Context) ([]time.Time, error)

	// DailyIssueDates lists the issue dates of archived daily snapshots,
	// ascending.
	DailyIssueDates(ctx context.Context) ([]time.Time, error)

	// TimeSeries returns the snapshot published exactly on issueDate.
	// The second return is false when no such snapshot exists.
	TimeSeries(ctx context.Context, issueDate time.Time) (TimeSeriesSnapshot, bool, error)

	// LatestTimeSeries returns the time-series snapshot with the greatest
	// issue date at or before notAfter. False when none qualifies.
	LatestTimeSeries(ctx context.Context, notAfter time.Time) (TimeSeriesSnapshot, bool, error)

	// Dailies returns every daily snapshot with an issue date at or before
	// notAfter, in ascending issue-date order.
	Dailies(ctx context.Context, notAfter time.Time) ([]DailySnapshot, error)
}

// Count returns a pointer to v. Shorthand for building nullable counts.
func Count(v int64) *int64 {
	return &v
}

// addCounts sums two nullable counts. Missing is contagious: a nil operand
// makes the result nil.
func addCounts(a, b *int64) *int64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a + *b
	return &v
}

// cloneCount copies a nullable count so output rows never alias source rows.
func cloneCount(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// cloneRows deep-copies admission rows, counts included.
func cloneRows(rows []AdmissionRow) []AdmissionRow {
	out := make([]AdmissionRow, len(rows))
	for i, row := range rows {
		out[i] = AdmissionRow{
			ReportDate:          row.ReportDate,
			State:               row.State,
			AdultAdmissions:     cloneCount(row.AdultAdmissions),
			PediatricAdmissions: cloneCount(row.PediatricAdmissions),
		}
	}
	return out
}
