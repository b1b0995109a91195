package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/hosp-data-etl/internal/adapter/http"
	"github.com/couchcryptid/hosp-data-etl/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockIssues struct {
	timeseries []time.Time
	daily      []time.Time
	err        error
}

func (m *mockIssues) TimeSeriesIssueDates(_ context.Context) ([]time.Time, error) {
	return m.timeseries, m.err
}

func (m *mockIssues) DailyIssueDates(_ context.Context) ([]time.Time, error) {
	return m.daily, m.err
}

func newTestServer(readyErr error, issues *mockIssues) *httpadapter.Server {
	if issues == nil {
		issues = &mockIssues{}
	}
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, issues, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("not ready yet"), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestIssuesListsArchivedIssueDates(t *testing.T) {
	issues := &mockIssues{
		timeseries: []time.Time{domain.MustDate("2022-01-10"), domain.MustDate("2022-01-17")},
		daily:      []time.Time{domain.MustDate("2022-01-19")},
	}
	srv := newTestServer(nil, issues)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/issues", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"timeseries": ["2022-01-10", "2022-01-17"],
		"daily": ["2022-01-19"]
	}`, rec.Body.String())
}

func TestIssuesEmptyArchive(t *testing.T) {
	srv := newTestServer(nil, &mockIssues{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/issues", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"timeseries": [], "daily": []}`, rec.Body.String())
}

func TestIssuesReturns500OnArchiveError(t *testing.T) {
	srv := newTestServer(nil, &mockIssues{err: errors.New("archive unavailable")})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/issues", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "archive unavailable", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
