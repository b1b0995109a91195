// Command genmock seeds a deterministic mock snapshot archive for local
// development and testing. It writes through the actual archive and domain
// packages, so a seeded archive behaves exactly like one built from live
// fetches: a base time-series publication followed by daily publications,
// including a skipped publication day (reconstructions must synthesize the
// gap) and a correction that republishes an earlier report day.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/archive.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/hosp-data-etl/internal/archive"
	"github.com/couchcryptid/hosp-data-etl/internal/domain"
)

var (
	baseIssue   = domain.MustDate("2022-01-10")
	firstReport = domain.MustDate("2021-12-02")

	// Daily publications extending the base. 2022-01-13 is skipped: the feed
	// occasionally misses a day, and reconstructions must synthesize it. The
	// 2022-01-16 publication is a correction republishing the 14th; its later
	// issue date supersedes the original.
	dailyPublications = []struct{ issue, report string }{
		{"2022-01-11", "2022-01-11"},
		{"2022-01-12", "2022-01-12"},
		{"2022-01-14", "2022-01-14"},
		{"2022-01-15", "2022-01-15"},
		{"2022-01-16", "2022-01-14"},
	}

	states = []string{"AZ", "CA", "FL", "NY", "PA", "TX", "WA"}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock/archive.db", "output path for the mock archive")
	flag.Parse()

	// Remove any previous archive so reruns stay reproducible.
	if err := os.Remove(*out); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old archive: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}

	store, err := archive.Open(*out)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer store.Close()

	rng := rand.New(rand.NewSource(20220110)) //nolint:gosec // deterministic fixture data
	ctx := context.Background()

	ts := buildTimeSeries(rng)
	if err := store.SaveTimeSeries(ctx, ts); err != nil {
		return fmt.Errorf("save time-series %s: %w", domain.FormatDate(ts.IssueDate), err)
	}
	log.Printf("time-series %s: %d rows", domain.FormatDate(ts.IssueDate), len(ts.Rows))

	for _, pub := range dailyPublications {
		snap := buildDaily(rng, domain.MustDate(pub.issue), domain.MustDate(pub.report))
		if err := store.SaveDaily(ctx, snap); err != nil {
			return fmt.Errorf("save daily %s: %w", pub.issue, err)
		}
		log.Printf("daily %s (report %s): %d rows", pub.issue, pub.report, len(snap.Rows))
	}

	log.Printf("wrote mock archive: %s", *out)
	printStats(ctx, store)
	return nil
}

// buildTimeSeries covers every state for every report day up to the day
// before the publication, like the upstream full-history file.
func buildTimeSeries(rng *rand.Rand) domain.TimeSeriesSnapshot {
	snap := domain.TimeSeriesSnapshot{IssueDate: baseIssue}
	for day := firstReport; day.Before(baseIssue); day = domain.NextDay(day) {
		for _, state := range states {
			snap.Rows = append(snap.Rows, admissionRow(rng, day, state))
		}
	}
	return snap
}

func buildDaily(rng *rand.Rand, issue, report time.Time) domain.DailySnapshot {
	snap := domain.DailySnapshot{IssueDate: issue, ReportDate: report}
	for _, state := range states {
		row := admissionRow(rng, report, state)
		snap.Rows = append(snap.Rows, domain.StateAdmissions{
			State:               state,
			AdultAdmissions:     row.AdultAdmissions,
			PediatricAdmissions: row.PediatricAdmissions,
		})
	}
	return snap
}

func admissionRow(rng *rand.Rand, day time.Time, state string) domain.AdmissionRow {
	row := domain.AdmissionRow{ReportDate: day, State: state}
	// Roughly one state-day in forty comes through unreported, like the feed.
	if rng.Intn(40) == 0 {
		return row
	}
	adult := int64(20 + rng.Intn(180))
	row.AdultAdmissions = domain.Count(adult)
	row.PediatricAdmissions = domain.Count(adult/10 + int64(rng.Intn(5)))
	return row
}

// printStats reconstructs the latest publication the way the service does and
// prints the numbers test assertions tend to want.
func printStats(ctx context.Context, store *archive.Store) {
	rows, err := domain.Load(ctx, store, domain.USLocations(), domain.LoadOptions{
		SpatialResolutions: []string{domain.SpatialState, domain.SpatialNational},
		TemporalResolution: domain.TemporalDaily,
	})
	if err != nil {
		log.Printf("reconstruction check failed: %v", err)
		return
	}

	var missing int
	for i := range rows {
		if rows[i].Inc == nil {
			missing++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Reconstructed rows (daily, latest issue): %d\n", len(rows))
	fmt.Printf("Rows with missing incidence: %d\n", missing)

	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Location != domain.NationalLocation {
			continue
		}
		fmt.Printf("Last national row: date=%s incidence=%s cumulative=%s\n",
			domain.FormatDate(rows[i].Date), formatCount(rows[i].Inc), formatCount(rows[i].Cum))
		break
	}
}

func formatCount(v *int64) string {
	if v == nil {
		return "NA"
	}
	return fmt.Sprintf("%d", *v)
}
