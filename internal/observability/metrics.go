package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	// Upstream fetch metrics.
	FetchRequests *prometheus.CounterVec   // labels: dataset={timeseries,daily}, outcome={success,unchanged,error}
	FetchDuration *prometheus.HistogramVec // labels: dataset={timeseries,daily}

	// Archive metrics.
	SnapshotsArchived *prometheus.CounterVec // labels: dataset={timeseries,daily}
	LatestIssueDate   *prometheus.GaugeVec   // labels: dataset={timeseries,daily}; unix seconds of the newest archived issue

	// Reconstruction and publish metrics.
	BatchesPublished    *prometheus.CounterVec // labels: temporal_resolution={daily,weekly}
	RowsPublished       prometheus.Counter
	MissingRowsObserved prometheus.Counter
	ReconstructErrors   prometheus.Counter
	PublishErrors       prometheus.Counter
	ReconstructDuration prometheus.Histogram

	PipelineRunning prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hosp_etl",
			Name:      "fetch_requests_total",
			Help:      "Upstream dataset fetches by dataset and outcome.",
		}, []string{"dataset", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hosp_etl",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch duration in seconds, metadata and download included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"dataset"}),
		SnapshotsArchived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hosp_etl",
			Name:      "snapshots_archived_total",
			Help:      "Snapshots written to the archive by dataset.",
		}, []string{"dataset"}),
		LatestIssueDate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hosp_etl",
			Name:      "latest_issue_date_seconds",
			Help:      "Unix time of the newest archived issue date per dataset.",
		}, []string{"dataset"}),
		BatchesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hosp_etl",
			Name:      "batches_published_total",
			Help:      "Reconstructed batches published to the sink by temporal resolution.",
		}, []string{"temporal_resolution"}),
		RowsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hosp_etl",
			Name:      "rows_published_total",
			Help:      "Total result rows written to the sink topic.",
		}),
		MissingRowsObserved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hosp_etl",
			Name:      "missing_rows_observed_total",
			Help:      "Published rows whose incidence value was missing.",
		}),
		ReconstructErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hosp_etl",
			Name:      "reconstruct_errors_total",
			Help:      "Total reconstruction failures.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hosp_etl",
			Name:      "publish_errors_total",
			Help:      "Total sink publish failures.",
		}),
		ReconstructDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hosp_etl",
			Name:      "reconstruct_duration_seconds",
			Help:      "Duration of a complete reconstruct-and-publish cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hosp_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
	}

	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.SnapshotsArchived,
		m.LatestIssueDate,
		m.BatchesPublished,
		m.RowsPublished,
		m.MissingRowsObserved,
		m.ReconstructErrors,
		m.PublishErrors,
		m.ReconstructDuration,
		m.PipelineRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FetchRequests:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hosp_etl", Name: "fetch_requests_total"}, []string{"dataset", "outcome"}),
		FetchDuration:       prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "hosp_etl", Name: "fetch_duration_seconds"}, []string{"dataset"}),
		SnapshotsArchived:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hosp_etl", Name: "snapshots_archived_total"}, []string{"dataset"}),
		LatestIssueDate:     prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "hosp_etl", Name: "latest_issue_date_seconds"}, []string{"dataset"}),
		BatchesPublished:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hosp_etl", Name: "batches_published_total"}, []string{"temporal_resolution"}),
		RowsPublished:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hosp_etl", Name: "rows_published_total"}),
		MissingRowsObserved: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hosp_etl", Name: "missing_rows_observed_total"}),
		ReconstructErrors:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hosp_etl", Name: "reconstruct_errors_total"}),
		PublishErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hosp_etl", Name: "publish_errors_total"}),
		ReconstructDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hosp_etl", Name: "reconstruct_duration_seconds"}),
		PipelineRunning:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hosp_etl", Name: "pipeline_running"}),
	}
}
