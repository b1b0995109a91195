// Package healthdata fetches the HHS hospital admission datasets published
// on healthdata.gov.
//
// Each dataset is read in two steps: a metadata request that stamps the
// current issue date from rowsUpdatedAt, then a CSV download of the rows.
// The split lets callers skip the download when the issue date is already
// archived.
package healthdata

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/hosp-data-etl/internal/domain"
)

// CSV columns read from the upstream datasets.
const (
	colState     = "state"
	colDate      = "date"
	colAdult     = "previous_day_admission_adult_covid_confirmed"
	colPediatric = "previous_day_admission_pediatric_covid_confirmed"
)

// Client reads dataset metadata and rows from a healthdata.gov-style API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a healthdata.gov client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// IssueDate returns the dataset's current issue date: the UTC day of its
// last row update. Cheap relative to a full CSV download.
func (c *Client) IssueDate(ctx context.Context, datasetID string) (time.Time, error) {
	u := fmt.Sprintf("%s/api/views/%s.json", c.baseURL, datasetID)

	body, err := c.get(ctx, u)
	if err != nil {
		return time.Time{}, fmt.Errorf("dataset %s metadata: %w", datasetID, err)
	}
	defer body.Close()

	var meta metadata
	if err := json.NewDecoder(body).Decode(&meta); err != nil {
		return time.Time{}, fmt.Errorf("decode dataset %s metadata: %w", datasetID, err)
	}
	if meta.RowsUpdatedAt == 0 {
		return time.Time{}, fmt.Errorf("dataset %s metadata has no rowsUpdatedAt", datasetID)
	}

	return domain.Day(time.Unix(meta.RowsUpdatedAt, 0).UTC()), nil
}

// FetchTimeSeries downloads the full time-series dataset as a snapshot
// stamped with issueDate. Rows keep the file's order.
func (c *Client) FetchTimeSeries(ctx context.Context, datasetID string, issueDate time.Time) (domain.TimeSeriesSnapshot, error) {
	records, header, err := c.fetchCSV(ctx, datasetID)
	if err != nil {
		return domain.TimeSeriesSnapshot{}, err
	}

	for _, col := range []string{colState, colDate, colAdult, colPediatric} {
		if _, ok := header[col]; !ok {
			return domain.TimeSeriesSnapshot{}, fmt.Errorf("dataset %s: missing column %q", datasetID, col)
		}
	}

	rows := make([]domain.AdmissionRow, 0, len(records))
	for i, rec := range records {
		state := get(rec, header, colState)
		if state == "" {
			return domain.TimeSeriesSnapshot{}, fmt.Errorf("dataset %s row %d: empty state", datasetID, i+2)
		}
		reportDate, err := parseReportDate(get(rec, header, colDate))
		if err != nil {
			return domain.TimeSeriesSnapshot{}, fmt.Errorf("dataset %s row %d: %w", datasetID, i+2, err)
		}
		adult, err := parseCount(get(rec, header, colAdult))
		if err != nil {
			return domain.TimeSeriesSnapshot{}, fmt.Errorf("dataset %s row %d: adult admissions: %w", datasetID, i+2, err)
		}
		pediatric, err := parseCount(get(rec, header, colPediatric))
		if err != nil {
			return domain.TimeSeriesSnapshot{}, fmt.Errorf("dataset %s row %d: pediatric admissions: %w", datasetID, i+2, err)
		}
		rows = append(rows, domain.AdmissionRow{
			ReportDate:          reportDate,
			State:               strings.ToUpper(state),
			AdultAdmissions:     adult,
			PediatricAdmissions: pediatric,
		})
	}

	c.logger.Info("fetched time-series dataset",
		"dataset", datasetID,
		"issue_date", domain.FormatDate(issueDate),
		"rows", len(rows),
	)
	return domain.TimeSeriesSnapshot{IssueDate: issueDate, Rows: rows}, nil
}

// FetchDaily downloads the single-day dataset as a snapshot stamped with
// issueDate. The daily file carries no date column: its rows describe the
// report day the publication was issued on.
func (c *Client) FetchDaily(ctx context.Context, datasetID string, issueDate time.Time) (domain.DailySnapshot, error) {
	records, header, err := c.fetchCSV(ctx, datasetID)
	if err != nil {
		return domain.DailySnapshot{}, err
	}

	for _, col := range []string{colState, colAdult, colPediatric} {
		if _, ok := header[col]; !ok {
			return domain.DailySnapshot{}, fmt.Errorf("dataset %s: missing column %q", datasetID, col)
		}
	}

	rows := make([]domain.StateAdmissions, 0, len(records))
	for i, rec := range records {
		state := get(rec, header, colState)
		if state == "" {
			return domain.DailySnapshot{}, fmt.Errorf("dataset %s row %d: empty state", datasetID, i+2)
		}
		adult, err := parseCount(get(rec, header, colAdult))
		if err != nil {
			return domain.DailySnapshot{}, fmt.Errorf("dataset %s row %d: adult admissions: %w", datasetID, i+2, err)
		}
		pediatric, err := parseCount(get(rec, header, colPediatric))
		if err != nil {
			return domain.DailySnapshot{}, fmt.Errorf("dataset %s row %d: pediatric admissions: %w", datasetID, i+2, err)
		}
		rows = append(rows, domain.StateAdmissions{
			State:               strings.ToUpper(state),
			AdultAdmissions:     adult,
			PediatricAdmissions: pediatric,
		})
	}

	c.logger.Info("fetched daily dataset",
		"dataset", datasetID,
		"issue_date", domain.FormatDate(issueDate),
		"rows", len(rows),
	)
	return domain.DailySnapshot{
		IssueDate:  issueDate,
		ReportDate: issueDate,
		Rows:       rows,
	}, nil
}

// fetchCSV downloads a dataset's rows and returns the data records plus a
// header-name → column-index map.
func (c *Client) fetchCSV(ctx context.Context, datasetID string) ([][]string, map[string]int, error) {
	u := fmt.Sprintf("%s/api/views/%s/rows.csv?accessType=DOWNLOAD", c.baseURL, datasetID)

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset %s rows: %w", datasetID, err)
	}
	defer body.Close()

	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read dataset %s csv: %w", datasetID, err)
	}
	if len(all) < 1 {
		return nil, nil, fmt.Errorf("dataset %s: empty csv", datasetID)
	}

	header := make(map[string]int, len(all[0]))
	for i, h := range all[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return all[1:], header, nil
}

func (c *Client) get(ctx context.Context, fullURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("healthdata API error: status %d: %s", resp.StatusCode, body)
	}
	return resp.Body, nil
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseCount reads a nullable admission count. The feed sometimes types
// counts as floats.
func parseCount(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("parse count %q: %w", s, err)
	}
	n := int64(f)
	return &n, nil
}

var reportDateLayouts = []string{"2006-01-02", "2006/01/02"}

// parseReportDate reads the date column, which has shipped as plain dates
// in two separators and as ISO timestamps.
func parseReportDate(s string) (time.Time, error) {
	if len(s) > 10 && (s[10] == 'T' || s[10] == ' ') {
		s = s[:10]
	}
	for _, layout := range reportDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse report date %q", s)
}

type metadata struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	RowsUpdatedAt int64  `json:"rowsUpdatedAt"`
}
