package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func incidence(location, date string, inc int64) IncidenceRow {
	return IncidenceRow{Location: location, Date: MustDate(date), Inc: Count(inc)}
}

func missingIncidence(location, date string) IncidenceRow {
	return IncidenceRow{Location: location, Date: MustDate(date)}
}

func TestIncidence(t *testing.T) {
	locations := USLocations()

	t.Run("sums admissions and shifts to the admission date", func(t *testing.T) {
		rows := []AdmissionRow{admission("2022-01-02", "CA", 3, 1)}

		got, err := Incidence(rows, locations)

		require.NoError(t, err)
		assert.Equal(t, []IncidenceRow{
			incidence("06", "2022-01-01", 4),
			incidence("US", "2022-01-01", 4),
		}, got)
	})

	t.Run("missing count makes the row missing", func(t *testing.T) {
		rows := []AdmissionRow{
			{ReportDate: MustDate("2022-01-02"), State: "CA", AdultAdmissions: Count(3)},
		}

		got, err := Incidence(rows, locations)

		require.NoError(t, err)
		assert.Equal(t, []IncidenceRow{
			missingIncidence("06", "2022-01-01"),
			missingIncidence("US", "2022-01-01"),
		}, got)
	})

	t.Run("one missing state poisons the national sum for that date only", func(t *testing.T) {
		rows := []AdmissionRow{
			admission("2022-01-02", "CA", 3, 1),
			{ReportDate: MustDate("2022-01-02"), State: "TX"},
			admission("2022-01-03", "CA", 2, 0),
			admission("2022-01-03", "TX", 5, 1),
		}

		got, err := Incidence(rows, locations)

		require.NoError(t, err)
		assert.Equal(t, []IncidenceRow{
			incidence("06", "2022-01-01", 4),
			missingIncidence("48", "2022-01-01"),
			incidence("06", "2022-01-02", 2),
			incidence("48", "2022-01-02", 6),
			missingIncidence("US", "2022-01-01"),
			incidence("US", "2022-01-02", 8),
		}, got)
	})

	t.Run("national rows come out in date order", func(t *testing.T) {
		rows := []AdmissionRow{
			admission("2022-01-05", "CA", 1, 0),
			admission("2022-01-03", "CA", 2, 0),
			admission("2022-01-04", "CA", 3, 0),
		}

		got, err := Incidence(rows, locations)

		require.NoError(t, err)
		require.Len(t, got, 6)
		assert.Equal(t, []IncidenceRow{
			incidence("US", "2022-01-02", 2),
			incidence("US", "2022-01-03", 3),
			incidence("US", "2022-01-04", 1),
		}, got[3:])
	})

	t.Run("unknown abbreviation", func(t *testing.T) {
		rows := []AdmissionRow{admission("2022-01-02", "ZZ", 1, 0)}

		_, err := Incidence(rows, locations)

		require.ErrorIs(t, err, ErrUnknownLocation)
		assert.Contains(t, err.Error(), "ZZ")
	})

	t.Run("empty input", func(t *testing.T) {
		got, err := Incidence(nil, locations)

		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("negative corrections pass through untouched", func(t *testing.T) {
		rows := []AdmissionRow{{
			ReportDate:          MustDate("2022-01-02"),
			State:               "CA",
			AdultAdmissions:     Count(-2),
			PediatricAdmissions: Count(0),
		}}

		got, err := Incidence(rows, locations)

		require.NoError(t, err)
		assert.Equal(t, []IncidenceRow{
			incidence("06", "2022-01-01", -2),
			incidence("US", "2022-01-01", -2),
		}, got)
	})
}

func TestUSLocations(t *testing.T) {
	locations := USLocations()

	t.Run("covers states, DC, and territories", func(t *testing.T) {
		assert.Len(t, locations, 56)
	})

	t.Run("known abbreviations", func(t *testing.T) {
		tests := []struct {
			abbreviation string
			code         string
		}{
			{"AL", "01"},
			{"CA", "06"},
			{"DC", "11"},
			{"TX", "48"},
			{"WY", "56"},
			{"PR", "72"},
		}

		for _, tt := range tests {
			code, ok := locations.Lookup(tt.abbreviation)
			require.True(t, ok, tt.abbreviation)
			assert.Equal(t, tt.code, code)
		}
	})

	t.Run("unknown abbreviation", func(t *testing.T) {
		_, ok := locations.Lookup("XX")
		assert.False(t, ok)
	})
}
