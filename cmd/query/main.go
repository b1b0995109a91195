// Command query reconstructs the hospital admission incidence table from a
// local snapshot archive and prints it.
//
// The selectors mirror the service's publishing path: with no selector the
// newest publication is reconstructed, -issue-date pins an exact publication,
// and -as-of resolves to the newest publication at or before a date.
//
// Usage:
//
//	go run ./cmd/query \
//	  -archive data/archive.db \
//	  -as-of 2022-01-14 \
//	  -spatial state,national \
//	  -temporal weekly \
//	  -format csv
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/hosp-data-etl/internal/archive"
	"github.com/couchcryptid/hosp-data-etl/internal/domain"
)

func main() {
	archivePath := flag.String("archive", "data/archive.db", "path to the snapshot archive")
	issueDate := flag.String("issue-date", "", "reconstruct the publication of this exact date (YYYY-MM-DD)")
	asOf := flag.String("as-of", "", "reconstruct the newest publication at or before this date (YYYY-MM-DD)")
	spatial := flag.String("spatial", "state,national", "comma-separated spatial resolutions: state, national")
	temporal := flag.String("temporal", domain.TemporalDaily, "temporal resolution: daily or weekly")
	measure := flag.String("measure", domain.MeasureHospitalizations, "measure to load")
	format := flag.String("format", "csv", "output format: csv or json")
	flag.Parse()

	if code := run(*archivePath, *issueDate, *asOf, *spatial, *temporal, *measure, *format); code != 0 {
		os.Exit(code)
	}
}

func run(archivePath, issueDate, asOf, spatial, temporal, measure, format string) int {
	if format != "csv" && format != "json" {
		fmt.Fprintf(os.Stderr, "FATAL: unknown format %q (want csv or json)\n", format)
		return 1
	}

	opts := domain.LoadOptions{
		SpatialResolutions: splitList(spatial),
		TemporalResolution: temporal,
		Measure:            measure,
	}
	if issueDate != "" {
		d, err := domain.ParseDate(issueDate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: -issue-date: %v\n", err)
			return 1
		}
		opts.IssueDate = &d
	}
	if asOf != "" {
		d, err := domain.ParseDate(asOf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: -as-of: %v\n", err)
			return 1
		}
		opts.AsOf = &d
	}

	store, err := archive.Open(archivePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open archive: %v\n", err)
		return 1
	}
	defer store.Close()

	rows, err := domain.Load(context.Background(), store, domain.USLocations(), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: reconstruct: %v\n", err)
		return 1
	}

	if format == "json" {
		return printJSON(rows)
	}
	return printCSV(rows)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printCSV(rows []domain.ResultRow) int {
	w := csv.NewWriter(os.Stdout)
	records := [][]string{{"location", "date", "incidence", "cumulative"}}
	for _, row := range rows {
		records = append(records, []string{
			row.Location,
			domain.FormatDate(row.Date),
			formatCount(row.Inc),
			formatCount(row.Cum),
		})
	}
	if err := w.WriteAll(records); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: write csv: %v\n", err)
		return 1
	}
	return 0
}

// formatCount renders a nullable count, "NA" when the value is missing.
func formatCount(v *int64) string {
	if v == nil {
		return "NA"
	}
	return strconv.FormatInt(*v, 10)
}

type resultJSON struct {
	Location   string `json:"location"`
	Date       string `json:"date"`
	Incidence  *int64 `json:"incidence"`
	Cumulative *int64 `json:"cumulative"`
}

func printJSON(rows []domain.ResultRow) int {
	out := make([]resultJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, resultJSON{
			Location:   row.Location,
			Date:       domain.FormatDate(row.Date),
			Incidence:  row.Inc,
			Cumulative: row.Cum,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: encode json: %v\n", err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}
