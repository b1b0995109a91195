package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrUnknownLocation reports a state abbreviation missing from the location
// table.
var ErrUnknownLocation = errors.New("unknown location abbreviation")

// Incidence converts raw admission rows into per-location daily incidence.
//
// Per row, incidence is adult plus pediatric admissions (missing if either
// is missing), indexed by the admission date — one day before the report
// date per the feed's previous-day convention. A national "US" row is added
// for every date: the sum over all state rows for that date, missing if any
// of them is missing. State abbreviations are replaced by canonical codes
// from the table; an abbreviation the table does not know is an error.
//
// State rows keep their input order, followed by the national rows in date
// order. Load applies the final location/date sort.
func Incidence(rows []AdmissionRow, locations LocationLookup) ([]IncidenceRow, error) {
	type nationalSum struct {
		total   int64
		missing bool
	}

	out := make([]IncidenceRow, 0, len(rows)+len(rows)/50+1)
	national := make(map[time.Time]*nationalSum)
	var dates []time.Time

	for _, row := range rows {
		code, ok := locations.Lookup(row.State)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLocation, row.State)
		}

		inc := addCounts(row.AdultAdmissions, row.PediatricAdmissions)
		date := PrevDay(Day(row.ReportDate))

		out = append(out, IncidenceRow{Location: code, Date: date, Inc: inc})

		sum, ok := national[date]
		if !ok {
			sum = &nationalSum{}
			national[date] = sum
			dates = append(dates, date)
		}
		if inc == nil {
			sum.missing = true
		} else {
			sum.total += *inc
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	for _, date := range dates {
		row := IncidenceRow{Location: NationalLocation, Date: date}
		if sum := national[date]; !sum.missing {
			row.Inc = Count(sum.total)
		}
		out = append(out, row)
	}

	return out, nil
}
