// Package archive persists every fetched publication of the admissions feed
// so past vintages stay reconstructable. It is the durable implementation of
// the domain Source.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/couchcryptid/hosp-data-etl/internal/domain"
)

// ErrSnapshotExists reports an ingest of an issue date already archived.
// Snapshots are immutable once saved; re-fetching the same publication must
// not overwrite it.
var ErrSnapshotExists = errors.New("snapshot already archived")

// Store is a SQLite-backed snapshot archive.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("archive path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS timeseries_snapshots (
		issue_date TEXT PRIMARY KEY,
		fetched_at TEXT NOT NULL
	);

	-- seq preserves the upstream file's row order so an exact-issue
	-- reconstruction reproduces the publication verbatim.
	CREATE TABLE IF NOT EXISTS timeseries_rows (
		issue_date           TEXT NOT NULL,
		seq                  INTEGER NOT NULL,
		report_date          TEXT NOT NULL,
		state                TEXT NOT NULL,
		adult_admissions     INTEGER,
		pediatric_admissions INTEGER,
		PRIMARY KEY (issue_date, seq)
	);

	CREATE TABLE IF NOT EXISTS daily_snapshots (
		issue_date  TEXT PRIMARY KEY,
		report_date TEXT NOT NULL,
		fetched_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daily_rows (
		issue_date           TEXT NOT NULL,
		seq                  INTEGER NOT NULL,
		state                TEXT NOT NULL,
		adult_admissions     INTEGER,
		pediatric_admissions INTEGER,
		PRIMARY KEY (issue_date, seq)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveTimeSeries archives a full time-series publication. Saving an issue
// date that is already archived returns ErrSnapshotExists.
func (s *Store) SaveTimeSeries(ctx context.Context, snap domain.TimeSeriesSnapshot) error {
	issue := domain.FormatDate(domain.Day(snap.IssueDate))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save time-series %s: %w", issue, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO timeseries_snapshots (issue_date, fetched_at) VALUES (?, ?)`,
		issue, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: time-series %s", ErrSnapshotExists, issue)
		}
		return fmt.Errorf("save time-series %s: %w", issue, err)
	}

	for i, row := range snap.Rows {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO timeseries_rows (issue_date, seq, report_date, state, adult_admissions, pediatric_admissions)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			issue, i, domain.FormatDate(domain.Day(row.ReportDate)), row.State,
			row.AdultAdmissions, row.PediatricAdmissions,
		)
		if err != nil {
			return fmt.Errorf("save time-series %s row %d: %w", issue, i, err)
		}
	}

	return tx.Commit()
}

// SaveDaily archives a single-day publication. Saving an issue date that is
// already archived returns ErrSnapshotExists.
func (s *Store) SaveDaily(ctx context.Context, snap domain.DailySnapshot) error {
	issue := domain.FormatDate(domain.Day(snap.IssueDate))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save daily %s: %w", issue, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO daily_snapshots (issue_date, report_date, fetched_at) VALUES (?, ?, ?)`,
		issue, domain.FormatDate(domain.Day(snap.ReportDate)), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: daily %s", ErrSnapshotExists, issue)
		}
		return fmt.Errorf("save daily %s: %w", issue, err)
	}

	for i, row := range snap.Rows {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO daily_rows (issue_date, seq, state, adult_admissions, pediatric_admissions)
			 VALUES (?, ?, ?, ?, ?)`,
			issue, i, row.State, row.AdultAdmissions, row.PediatricAdmissions,
		)
		if err != nil {
			return fmt.Errorf("save daily %s row %d: %w", issue, i, err)
		}
	}

	return tx.Commit()
}

// HasTimeSeries reports whether a time-series publication with this issue
// date is already archived.
func (s *Store) HasTimeSeries(ctx context.Context, issueDate time.Time) (bool, error) {
	return s.hasSnapshot(ctx, "timeseries_snapshots", issueDate)
}

// HasDaily reports whether a daily publication with this issue date is
// already archived.
func (s *Store) HasDaily(ctx context.Context, issueDate time.Time) (bool, error) {
	return s.hasSnapshot(ctx, "daily_snapshots", issueDate)
}

func (s *Store) hasSnapshot(ctx context.Context, table string, issueDate time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE issue_date = ?`,
		domain.FormatDate(domain.Day(issueDate)),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	return count > 0, nil
}

// TimeSeriesIssueDates implements domain.Source.
func (s *Store) TimeSeriesIssueDates(ctx context.Context) ([]time.Time, error) {
	return s.issueDates(ctx, "timeseries_snapshots")
}

// DailyIssueDates implements domain.Source.
func (s *Store) DailyIssueDates(ctx context.Context) ([]time.Time, error) {
	return s.issueDates(ctx, "daily_snapshots")
}

func (s *Store) issueDates(ctx context.Context, table string) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT issue_date FROM `+table+` ORDER BY issue_date`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		date, err := domain.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s issue date: %w", table, err)
		}
		dates = append(dates, date)
	}
	return dates, rows.Err()
}

// TimeSeries implements domain.Source: the publication with exactly this
// issue date, rows in their original file order.
func (s *Store) TimeSeries(ctx context.Context, issueDate time.Time) (domain.TimeSeriesSnapshot, bool, error) {
	issue := domain.Day(issueDate)
	ok, err := s.HasTimeSeries(ctx, issue)
	if err != nil || !ok {
		return domain.TimeSeriesSnapshot{}, false, err
	}
	rows, err := s.timeSeriesRows(ctx, issue)
	if err != nil {
		return domain.TimeSeriesSnapshot{}, false, err
	}
	return domain.TimeSeriesSnapshot{IssueDate: issue, Rows: rows}, true, nil
}

// LatestTimeSeries implements domain.Source: the newest publication at or
// before notAfter.
func (s *Store) LatestTimeSeries(ctx context.Context, notAfter time.Time) (domain.TimeSeriesSnapshot, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT issue_date FROM timeseries_snapshots WHERE issue_date <= ? ORDER BY issue_date DESC LIMIT 1`,
		domain.FormatDate(domain.Day(notAfter)),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TimeSeriesSnapshot{}, false, nil
	}
	if err != nil {
		return domain.TimeSeriesSnapshot{}, false, fmt.Errorf("find latest time-series: %w", err)
	}

	issue, err := domain.ParseDate(raw)
	if err != nil {
		return domain.TimeSeriesSnapshot{}, false, fmt.Errorf("decode issue date: %w", err)
	}
	rows, err := s.timeSeriesRows(ctx, issue)
	if err != nil {
		return domain.TimeSeriesSnapshot{}, false, err
	}
	return domain.TimeSeriesSnapshot{IssueDate: issue, Rows: rows}, true, nil
}

func (s *Store) timeSeriesRows(ctx context.Context, issueDate time.Time) ([]domain.AdmissionRow, error) {
	issue := domain.FormatDate(issueDate)
	rows, err := s.db.QueryContext(ctx,
		`SELECT report_date, state, adult_admissions, pediatric_admissions
		 FROM timeseries_rows WHERE issue_date = ? ORDER BY seq`,
		issue,
	)
	if err != nil {
		return nil, fmt.Errorf("load time-series %s: %w", issue, err)
	}
	defer rows.Close()

	var out []domain.AdmissionRow
	for rows.Next() {
		var (
			reportDate string
			state      string
			adult      sql.NullInt64
			pediatric  sql.NullInt64
		)
		if err := rows.Scan(&reportDate, &state, &adult, &pediatric); err != nil {
			return nil, fmt.Errorf("scan time-series %s: %w", issue, err)
		}
		report, err := domain.ParseDate(reportDate)
		if err != nil {
			return nil, fmt.Errorf("decode report date: %w", err)
		}
		out = append(out, domain.AdmissionRow{
			ReportDate:          report,
			State:               state,
			AdultAdmissions:     fromNullInt(adult),
			PediatricAdmissions: fromNullInt(pediatric),
		})
	}
	return out, rows.Err()
}

// Dailies implements domain.Source: every daily publication at or before
// notAfter, ascending by issue date.
func (s *Store) Dailies(ctx context.Context, notAfter time.Time) ([]domain.DailySnapshot, error) {
	headers, err := s.db.QueryContext(ctx,
		`SELECT issue_date, report_date FROM daily_snapshots WHERE issue_date <= ? ORDER BY issue_date`,
		domain.FormatDate(domain.Day(notAfter)),
	)
	if err != nil {
		return nil, fmt.Errorf("list dailies: %w", err)
	}
	defer headers.Close()

	var snaps []domain.DailySnapshot
	for headers.Next() {
		var rawIssue, rawReport string
		if err := headers.Scan(&rawIssue, &rawReport); err != nil {
			return nil, fmt.Errorf("scan daily header: %w", err)
		}
		issue, err := domain.ParseDate(rawIssue)
		if err != nil {
			return nil, fmt.Errorf("decode daily issue date: %w", err)
		}
		report, err := domain.ParseDate(rawReport)
		if err != nil {
			return nil, fmt.Errorf("decode daily report date: %w", err)
		}
		snaps = append(snaps, domain.DailySnapshot{IssueDate: issue, ReportDate: report})
	}
	if err := headers.Err(); err != nil {
		return nil, err
	}

	for i := range snaps {
		rows, err := s.dailyRows(ctx, snaps[i].IssueDate)
		if err != nil {
			return nil, err
		}
		snaps[i].Rows = rows
	}
	return snaps, nil
}

func (s *Store) dailyRows(ctx context.Context, issueDate time.Time) ([]domain.StateAdmissions, error) {
	issue := domain.FormatDate(issueDate)
	rows, err := s.db.QueryContext(ctx,
		`SELECT state, adult_admissions, pediatric_admissions
		 FROM daily_rows WHERE issue_date = ? ORDER BY seq`,
		issue,
	)
	if err != nil {
		return nil, fmt.Errorf("load daily %s: %w", issue, err)
	}
	defer rows.Close()

	var out []domain.StateAdmissions
	for rows.Next() {
		var (
			state     string
			adult     sql.NullInt64
			pediatric sql.NullInt64
		)
		if err := rows.Scan(&state, &adult, &pediatric); err != nil {
			return nil, fmt.Errorf("scan daily %s: %w", issue, err)
		}
		out = append(out, domain.StateAdmissions{
			State:               state,
			AdultAdmissions:     fromNullInt(adult),
			PediatricAdmissions: fromNullInt(pediatric),
		})
	}
	return out, rows.Err()
}

func fromNullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ domain.Source = (*Store)(nil)
