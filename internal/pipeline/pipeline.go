package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/hosp-data-etl/internal/config"
	"github.com/couchcryptid/hosp-data-etl/internal/domain"
	"github.com/couchcryptid/hosp-data-etl/internal/observability"
)

// Fetcher reads the upstream datasets: a cheap issue-date probe plus full
// downloads.
type Fetcher interface {
	IssueDate(ctx context.Context, datasetID string) (time.Time, error)
	FetchTimeSeries(ctx context.Context, datasetID string, issueDate time.Time) (domain.TimeSeriesSnapshot, error)
	FetchDaily(ctx context.Context, datasetID string, issueDate time.Time) (domain.DailySnapshot, error)
}

// SnapshotStore persists fetched snapshots.
type SnapshotStore interface {
	HasTimeSeries(ctx context.Context, issueDate time.Time) (bool, error)
	HasDaily(ctx context.Context, issueDate time.Time) (bool, error)
	SaveTimeSeries(ctx context.Context, snap domain.TimeSeriesSnapshot) error
	SaveDaily(ctx context.Context, snap domain.DailySnapshot) error
}

// Reconstructor builds a publishable batch at a temporal resolution.
type Reconstructor interface {
	Reconstruct(ctx context.Context, temporalResolution string) (domain.ResultBatch, error)
}

// Publisher writes reconstructed batches to the destination.
type Publisher interface {
	PublishBatch(ctx context.Context, batch domain.ResultBatch) error
}

// Pipeline orchestrates the fetch-archive-reconstruct-publish loop.
type Pipeline struct {
	fetcher       Fetcher
	store         SnapshotStore
	reconstructor Reconstructor
	publisher     Publisher
	logger        *slog.Logger
	metrics       *observability.Metrics

	timeSeriesID string
	dailyID      string
	interval     time.Duration
	resolutions  []string

	ready     atomic.Bool
	published bool
}

// New creates a Pipeline with the given stages and observability.
func New(f Fetcher, store SnapshotStore, r Reconstructor, pub Publisher, logger *slog.Logger, metrics *observability.Metrics, cfg *config.Config) *Pipeline {
	return &Pipeline{
		fetcher:       f,
		store:         store,
		reconstructor: r,
		publisher:     pub,
		logger:        logger,
		metrics:       metrics,
		timeSeriesID:  cfg.TimeSeriesDatasetID,
		dailyID:       cfg.DailyDatasetID,
		interval:      cfg.FetchInterval,
		resolutions:   cfg.PublishResolutions,
	}
}

// CheckReadiness returns nil once the pipeline has completed a fetch cycle,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a fetch cycle yet")
	}
	return nil
}

// Run executes fetch cycles until the context is cancelled. Failed cycles
// retry with backoff instead of waiting out the full interval.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval, "resolutions", p.resolutions)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 30s, double each retry, cap at 10m.
	backoff := 30 * time.Second
	maxBackoff := 10 * time.Minute

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if err := p.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("fetch cycle failed", "error", err)
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		backoff = 30 * time.Second
		p.ready.Store(true)

		if !sleepWithContext(ctx, p.interval) {
			return nil
		}
	}
}

// runCycle ingests whatever upstream has published since the last cycle and
// republishes the reconstruction when the archive gained a snapshot. The
// first successful cycle publishes regardless, so a restart against a warm
// archive still reaches the sink.
func (p *Pipeline) runCycle(ctx context.Context) error {
	newTimeSeries, err := p.ingestTimeSeries(ctx)
	if err != nil {
		return err
	}
	newDaily, err := p.ingestDaily(ctx)
	if err != nil {
		return err
	}

	if !newTimeSeries && !newDaily && p.published {
		p.logger.Debug("no new snapshots upstream")
		return nil
	}
	return p.publish(ctx)
}

func (p *Pipeline) ingestTimeSeries(ctx context.Context) (bool, error) {
	const dataset = "timeseries"
	start := time.Now()

	issue, err := p.fetcher.IssueDate(ctx, p.timeSeriesID)
	if err != nil {
		p.metrics.FetchRequests.WithLabelValues(dataset, "error").Inc()
		return false, fmt.Errorf("time-series issue date: %w", err)
	}

	has, err := p.store.HasTimeSeries(ctx, issue)
	if err != nil {
		return false, err
	}
	if has {
		p.metrics.FetchRequests.WithLabelValues(dataset, "unchanged").Inc()
		return false, nil
	}

	snap, err := p.fetcher.FetchTimeSeries(ctx, p.timeSeriesID, issue)
	if err != nil {
		p.metrics.FetchRequests.WithLabelValues(dataset, "error").Inc()
		return false, fmt.Errorf("fetch time-series: %w", err)
	}
	if err := p.store.SaveTimeSeries(ctx, snap); err != nil {
		return false, fmt.Errorf("archive time-series %s: %w", domain.FormatDate(issue), err)
	}

	p.metrics.FetchRequests.WithLabelValues(dataset, "success").Inc()
	p.metrics.FetchDuration.WithLabelValues(dataset).Observe(time.Since(start).Seconds())
	p.metrics.SnapshotsArchived.WithLabelValues(dataset).Inc()
	p.metrics.LatestIssueDate.WithLabelValues(dataset).Set(float64(issue.Unix()))

	p.logger.Info("archived time-series snapshot",
		"issue_date", domain.FormatDate(issue),
		"rows", len(snap.Rows),
	)
	return true, nil
}

func (p *Pipeline) ingestDaily(ctx context.Context) (bool, error) {
	const dataset = "daily"
	start := time.Now()

	issue, err := p.fetcher.IssueDate(ctx, p.dailyID)
	if err != nil {
		p.metrics.FetchRequests.WithLabelValues(dataset, "error").Inc()
		return false, fmt.Errorf("daily issue date: %w", err)
	}

	has, err := p.store.HasDaily(ctx, issue)
	if err != nil {
		return false, err
	}
	if has {
		p.metrics.FetchRequests.WithLabelValues(dataset, "unchanged").Inc()
		return false, nil
	}

	snap, err := p.fetcher.FetchDaily(ctx, p.dailyID, issue)
	if err != nil {
		p.metrics.FetchRequests.WithLabelValues(dataset, "error").Inc()
		return false, fmt.Errorf("fetch daily: %w", err)
	}
	if err := p.store.SaveDaily(ctx, snap); err != nil {
		return false, fmt.Errorf("archive daily %s: %w", domain.FormatDate(issue), err)
	}

	p.metrics.FetchRequests.WithLabelValues(dataset, "success").Inc()
	p.metrics.FetchDuration.WithLabelValues(dataset).Observe(time.Since(start).Seconds())
	p.metrics.SnapshotsArchived.WithLabelValues(dataset).Inc()
	p.metrics.LatestIssueDate.WithLabelValues(dataset).Set(float64(issue.Unix()))

	p.logger.Info("archived daily snapshot",
		"issue_date", domain.FormatDate(issue),
		"rows", len(snap.Rows),
	)
	return true, nil
}

// publish reconstructs and publishes one batch per configured temporal
// resolution. An archive that cannot serve a reconstruction yet (no base
// time-series snapshot) is not an error; the next cycle retries.
func (p *Pipeline) publish(ctx context.Context) error {
	start := time.Now()

	for _, resolution := range p.resolutions {
		batch, err := p.reconstructor.Reconstruct(ctx, resolution)
		if err != nil {
			if errors.Is(err, domain.ErrNotAvailable) || errors.Is(err, domain.ErrNoBaseSnapshot) {
				p.logger.Warn("archive cannot serve a reconstruction yet",
					"temporal_resolution", resolution, "error", err)
				return nil
			}
			p.metrics.ReconstructErrors.Inc()
			return fmt.Errorf("reconstruct %s: %w", resolution, err)
		}

		if err := p.publisher.PublishBatch(ctx, batch); err != nil {
			p.metrics.PublishErrors.Inc()
			return fmt.Errorf("publish %s batch: %w", resolution, err)
		}

		p.metrics.BatchesPublished.WithLabelValues(resolution).Inc()
		p.metrics.RowsPublished.Add(float64(len(batch.Rows)))
		p.metrics.MissingRowsObserved.Add(float64(countMissing(batch.Rows)))

		p.logger.Info("published batch",
			"issue_date", domain.FormatDate(batch.IssueDate),
			"temporal_resolution", resolution,
			"rows", len(batch.Rows),
		)
	}

	p.metrics.ReconstructDuration.Observe(time.Since(start).Seconds())
	p.published = true
	return nil
}

func countMissing(rows []domain.ResultRow) int {
	n := 0
	for i := range rows {
		if rows[i].Inc == nil {
			n++
		}
	}
	return n
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
