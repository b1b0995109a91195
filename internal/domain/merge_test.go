package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource is an in-test Source backed by slices, kept in ascending issue
// order by the fixtures that build it.
type stubSource struct {
	timeseries []TimeSeriesSnapshot
	dailies    []DailySnapshot
}

func (s *stubSource) TimeSeriesIssueDates(context.Context) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(s.timeseries))
	for _, snap := range s.timeseries {
		dates = append(dates, snap.IssueDate)
	}
	return dates, nil
}

func (s *stubSource) DailyIssueDates(context.Context) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(s.dailies))
	for _, snap := range s.dailies {
		dates = append(dates, snap.IssueDate)
	}
	return dates, nil
}

func (s *stubSource) TimeSeries(_ context.Context, issueDate time.Time) (TimeSeriesSnapshot, bool, error) {
	for _, snap := range s.timeseries {
		if snap.IssueDate.Equal(issueDate) {
			return snap, true, nil
		}
	}
	return TimeSeriesSnapshot{}, false, nil
}

func (s *stubSource) LatestTimeSeries(_ context.Context, notAfter time.Time) (TimeSeriesSnapshot, bool, error) {
	for i := len(s.timeseries) - 1; i >= 0; i-- {
		if !s.timeseries[i].IssueDate.After(notAfter) {
			return s.timeseries[i], true, nil
		}
	}
	return TimeSeriesSnapshot{}, false, nil
}

func (s *stubSource) Dailies(_ context.Context, notAfter time.Time) ([]DailySnapshot, error) {
	var out []DailySnapshot
	for _, snap := range s.dailies {
		if !snap.IssueDate.After(notAfter) {
			out = append(out, snap)
		}
	}
	return out, nil
}

func admission(report, state string, adult, pediatric int64) AdmissionRow {
	return AdmissionRow{
		ReportDate:          MustDate(report),
		State:               state,
		AdultAdmissions:     Count(adult),
		PediatricAdmissions: Count(pediatric),
	}
}

func TestMerge(t *testing.T) {
	ctx := context.Background()

	baseSnapshot := TimeSeriesSnapshot{
		IssueDate: MustDate("2022-01-01"),
		Rows: []AdmissionRow{
			admission("2021-12-30", "CA", 10, 2),
			admission("2021-12-30", "TX", 20, 3),
			admission("2021-12-31", "CA", 11, 1),
			admission("2021-12-31", "TX", 21, 4),
		},
	}

	t.Run("exact time-series hit returns the snapshot verbatim", func(t *testing.T) {
		src := &stubSource{timeseries: []TimeSeriesSnapshot{baseSnapshot}}

		got, err := Merge(ctx, src, MustDate("2022-01-01"))

		require.NoError(t, err)
		assert.Equal(t, baseSnapshot.Rows, got)
	})

	t.Run("exact hit does not alias the source rows", func(t *testing.T) {
		src := &stubSource{timeseries: []TimeSeriesSnapshot{baseSnapshot}}

		got, err := Merge(ctx, src, MustDate("2022-01-01"))

		require.NoError(t, err)
		require.NotEmpty(t, got)
		assert.NotSame(t, baseSnapshot.Rows[0].AdultAdmissions, got[0].AdultAdmissions)
	})

	t.Run("daily issue extends the base and synthesizes gap days", func(t *testing.T) {
		src := &stubSource{
			timeseries: []TimeSeriesSnapshot{baseSnapshot},
			dailies: []DailySnapshot{
				{
					IssueDate:  MustDate("2022-01-03"),
					ReportDate: MustDate("2022-01-02"),
					Rows: []StateAdmissions{
						{State: "CA", AdultAdmissions: Count(5), PediatricAdmissions: Count(1)},
						{State: "TX", AdultAdmissions: Count(7), PediatricAdmissions: Count(0)},
					},
				},
			},
		}

		got, err := Merge(ctx, src, MustDate("2022-01-03"))

		require.NoError(t, err)
		expected := append(cloneRows(baseSnapshot.Rows),
			// 2022-01-01 had no publication: kept with missing counts.
			AdmissionRow{ReportDate: MustDate("2022-01-01"), State: "CA"},
			AdmissionRow{ReportDate: MustDate("2022-01-01"), State: "TX"},
			admission("2022-01-02", "CA", 5, 1),
			admission("2022-01-02", "TX", 7, 0),
		)
		assert.Equal(t, expected, got)
	})

	t.Run("later issue wins a republished report day", func(t *testing.T) {
		src := &stubSource{
			timeseries: []TimeSeriesSnapshot{baseSnapshot},
			dailies: []DailySnapshot{
				{
					IssueDate:  MustDate("2022-01-02"),
					ReportDate: MustDate("2022-01-01"),
					Rows: []StateAdmissions{
						{State: "CA", AdultAdmissions: Count(5), PediatricAdmissions: Count(0)},
						{State: "TX", AdultAdmissions: Count(6), PediatricAdmissions: Count(0)},
					},
				},
				{
					IssueDate:  MustDate("2022-01-03"),
					ReportDate: MustDate("2022-01-01"),
					Rows: []StateAdmissions{
						{State: "CA", AdultAdmissions: Count(8), PediatricAdmissions: Count(1)},
						{State: "TX", AdultAdmissions: Count(9), PediatricAdmissions: Count(2)},
					},
				},
			},
		}

		got, err := Merge(ctx, src, MustDate("2022-01-03"))

		require.NoError(t, err)
		expected := append(cloneRows(baseSnapshot.Rows),
			admission("2022-01-01", "CA", 8, 1),
			admission("2022-01-01", "TX", 9, 2),
		)
		assert.Equal(t, expected, got)
	})

	t.Run("issue clock times do not change which correction wins", func(t *testing.T) {
		// Same-day republications differ only in clock time; vintages are
		// calendar days, so the merge must match a source that stores plain
		// days.
		sourceAt := func(first, second time.Time) *stubSource {
			return &stubSource{
				timeseries: []TimeSeriesSnapshot{baseSnapshot},
				dailies: []DailySnapshot{
					{
						IssueDate:  first,
						ReportDate: MustDate("2022-01-01"),
						Rows: []StateAdmissions{
							{State: "CA", AdultAdmissions: Count(5), PediatricAdmissions: Count(0)},
							{State: "TX", AdultAdmissions: Count(6), PediatricAdmissions: Count(0)},
						},
					},
					{
						IssueDate:  second,
						ReportDate: MustDate("2022-01-01"),
						Rows: []StateAdmissions{
							{State: "CA", AdultAdmissions: Count(8), PediatricAdmissions: Count(1)},
							{State: "TX", AdultAdmissions: Count(9), PediatricAdmissions: Count(2)},
						},
					},
					{
						IssueDate:  MustDate("2022-01-03"),
						ReportDate: MustDate("2022-01-02"),
						Rows: []StateAdmissions{
							{State: "CA", AdultAdmissions: Count(4), PediatricAdmissions: Count(0)},
						},
					},
				},
			}
		}
		withTimes := sourceAt(
			MustDate("2022-01-02").Add(9*time.Hour),
			MustDate("2022-01-02").Add(15*time.Hour),
		)
		plainDays := sourceAt(MustDate("2022-01-02"), MustDate("2022-01-02"))

		got, err := Merge(ctx, withTimes, MustDate("2022-01-03"))
		require.NoError(t, err)
		want, err := Merge(ctx, plainDays, MustDate("2022-01-03"))
		require.NoError(t, err)

		assert.Equal(t, want, got)
	})

	t.Run("corrections issued after the target are invisible", func(t *testing.T) {
		src := &stubSource{
			timeseries: []TimeSeriesSnapshot{baseSnapshot},
			dailies: []DailySnapshot{
				{
					IssueDate:  MustDate("2022-01-02"),
					ReportDate: MustDate("2022-01-01"),
					Rows: []StateAdmissions{
						{State: "CA", AdultAdmissions: Count(5), PediatricAdmissions: Count(0)},
						{State: "TX", AdultAdmissions: Count(6), PediatricAdmissions: Count(0)},
					},
				},
				{
					IssueDate:  MustDate("2022-01-03"),
					ReportDate: MustDate("2022-01-01"),
					Rows: []StateAdmissions{
						{State: "CA", AdultAdmissions: Count(8), PediatricAdmissions: Count(1)},
						{State: "TX", AdultAdmissions: Count(9), PediatricAdmissions: Count(2)},
					},
				},
			},
		}

		got, err := Merge(ctx, src, MustDate("2022-01-02"))

		require.NoError(t, err)
		expected := append(cloneRows(baseSnapshot.Rows),
			admission("2022-01-01", "CA", 5, 0),
			admission("2022-01-01", "TX", 6, 0),
		)
		assert.Equal(t, expected, got)
	})

	t.Run("dailies never rewrite days the base covers", func(t *testing.T) {
		src := &stubSource{
			timeseries: []TimeSeriesSnapshot{baseSnapshot},
			dailies: []DailySnapshot{
				{
					IssueDate:  MustDate("2022-01-05"),
					ReportDate: MustDate("2021-12-31"),
					Rows: []StateAdmissions{
						{State: "CA", AdultAdmissions: Count(999), PediatricAdmissions: Count(999)},
					},
				},
			},
		}

		got, err := Merge(ctx, src, MustDate("2022-01-05"))

		require.NoError(t, err)
		assert.Equal(t, baseSnapshot.Rows, got)
	})

	t.Run("unknown issue date", func(t *testing.T) {
		src := &stubSource{timeseries: []TimeSeriesSnapshot{baseSnapshot}}

		_, err := Merge(ctx, src, MustDate("2022-02-14"))

		require.ErrorIs(t, err, ErrNotAvailable)
		assert.Contains(t, err.Error(), "2022-02-14")
	})

	t.Run("daily issue without a base snapshot", func(t *testing.T) {
		src := &stubSource{
			dailies: []DailySnapshot{
				{
					IssueDate:  MustDate("2022-01-03"),
					ReportDate: MustDate("2022-01-02"),
					Rows: []StateAdmissions{
						{State: "CA", AdultAdmissions: Count(5), PediatricAdmissions: Count(1)},
					},
				},
			},
		}

		_, err := Merge(ctx, src, MustDate("2022-01-03"))

		require.ErrorIs(t, err, ErrNoBaseSnapshot)
	})

	t.Run("base published after the daily issue does not count", func(t *testing.T) {
		src := &stubSource{
			timeseries: []TimeSeriesSnapshot{{
				IssueDate: MustDate("2022-01-10"),
				Rows:      []AdmissionRow{admission("2022-01-09", "CA", 1, 0)},
			}},
			dailies: []DailySnapshot{
				{
					IssueDate:  MustDate("2022-01-03"),
					ReportDate: MustDate("2022-01-02"),
					Rows: []StateAdmissions{
						{State: "CA", AdultAdmissions: Count(5), PediatricAdmissions: Count(1)},
					},
				},
			},
		}

		_, err := Merge(ctx, src, MustDate("2022-01-03"))

		require.ErrorIs(t, err, ErrNoBaseSnapshot)
	})

	t.Run("empty base snapshot starts at the earliest daily", func(t *testing.T) {
		src := &stubSource{
			timeseries: []TimeSeriesSnapshot{{IssueDate: MustDate("2022-01-01")}},
			dailies: []DailySnapshot{
				{
					IssueDate:  MustDate("2022-01-03"),
					ReportDate: MustDate("2022-01-02"),
					Rows: []StateAdmissions{
						{State: "CA", AdultAdmissions: Count(5), PediatricAdmissions: Count(1)},
					},
				},
			},
		}

		got, err := Merge(ctx, src, MustDate("2022-01-03"))

		require.NoError(t, err)
		assert.Equal(t, []AdmissionRow{admission("2022-01-02", "CA", 5, 1)}, got)
	})

	t.Run("deterministic", func(t *testing.T) {
		src := &stubSource{
			timeseries: []TimeSeriesSnapshot{baseSnapshot},
			dailies: []DailySnapshot{
				{
					IssueDate:  MustDate("2022-01-04"),
					ReportDate: MustDate("2022-01-03"),
					Rows: []StateAdmissions{
						{State: "TX", AdultAdmissions: Count(7), PediatricAdmissions: Count(0)},
						{State: "CA", AdultAdmissions: Count(5), PediatricAdmissions: Count(1)},
					},
				},
			},
		}

		first, err := Merge(ctx, src, MustDate("2022-01-04"))
		require.NoError(t, err)
		second, err := Merge(ctx, src, MustDate("2022-01-04"))
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}
