package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hosp-data-etl/internal/domain"
)

// ArchiveReconstructor implements Reconstructor against an archived
// snapshot source using the domain load functions.
type ArchiveReconstructor struct {
	source    domain.Source
	locations domain.LocationLookup
	logger    *slog.Logger
}

// NewReconstructor creates an ArchiveReconstructor over the given source
// with the standard US location table.
func NewReconstructor(source domain.Source, logger *slog.Logger) *ArchiveReconstructor {
	return &ArchiveReconstructor{
		source:    source,
		locations: domain.USLocations(),
		logger:    logger,
	}
}

// Reconstruct builds the newest publishable vintage at the given temporal
// resolution, state and national rows included.
func (r *ArchiveReconstructor) Reconstruct(ctx context.Context, temporalResolution string) (domain.ResultBatch, error) {
	issue, err := r.latestIssue(ctx)
	if err != nil {
		return domain.ResultBatch{}, err
	}

	rows, err := domain.Load(ctx, r.source, r.locations, domain.LoadOptions{
		IssueDate:          &issue,
		SpatialResolutions: []string{domain.SpatialState, domain.SpatialNational},
		TemporalResolution: temporalResolution,
	})
	if err != nil {
		return domain.ResultBatch{}, err
	}

	return domain.NewResultBatch(issue, temporalResolution, rows), nil
}

// latestIssue is the greatest issue date across both snapshot kinds.
func (r *ArchiveReconstructor) latestIssue(ctx context.Context) (time.Time, error) {
	ts, err := r.source.TimeSeriesIssueDates(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("list time-series issue dates: %w", err)
	}
	daily, err := r.source.DailyIssueDates(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("list daily issue dates: %w", err)
	}

	var latest time.Time
	if len(ts) > 0 {
		latest = ts[len(ts)-1]
	}
	if len(daily) > 0 && daily[len(daily)-1].After(latest) {
		latest = daily[len(daily)-1]
	}
	if latest.IsZero() {
		return time.Time{}, fmt.Errorf("%w: the archive holds no snapshots", domain.ErrNotAvailable)
	}
	return latest, nil
}
