package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Run("valid date", func(t *testing.T) {
		got, err := ParseDate("2022-01-15")

		require.NoError(t, err)
		assert.Equal(t, time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("round trip", func(t *testing.T) {
		got, err := ParseDate("2021-12-31")

		require.NoError(t, err)
		assert.Equal(t, "2021-12-31", FormatDate(got))
	})

	t.Run("malformed input", func(t *testing.T) {
		_, err := ParseDate("01/15/2022")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "01/15/2022")
	})

	t.Run("empty string", func(t *testing.T) {
		_, err := ParseDate("")

		require.Error(t, err)
	})
}

func TestMustDate(t *testing.T) {
	t.Run("valid date", func(t *testing.T) {
		assert.Equal(t, time.Date(2022, 3, 5, 0, 0, 0, 0, time.UTC), MustDate("2022-03-05"))
	})

	t.Run("panics on malformed input", func(t *testing.T) {
		assert.Panics(t, func() { MustDate("not a date") })
	})
}

func TestDay(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected time.Time
	}{
		{
			"already midnight UTC",
			time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"strips time of day",
			time.Date(2022, 1, 1, 17, 42, 9, 123, time.UTC),
			time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"normalizes zone before truncating",
			time.Date(2022, 1, 1, 22, 0, 0, 0, time.FixedZone("EST", -5*3600)),
			time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Day(tt.input))
		})
	}
}

func TestDaySteps(t *testing.T) {
	jan31 := MustDate("2022-01-31")

	assert.Equal(t, MustDate("2022-02-01"), NextDay(jan31))
	assert.Equal(t, MustDate("2022-01-30"), PrevDay(jan31))
	assert.Equal(t, jan31, PrevDay(NextDay(jan31)))
}

func TestWeekEndingSaturday(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		expected string
	}{
		{"saturday maps to itself", "2022-01-01", "2022-01-01"},
		{"sunday starts the next week", "2022-01-02", "2022-01-08"},
		{"midweek", "2022-01-05", "2022-01-08"},
		{"friday", "2022-01-07", "2022-01-08"},
		{"next saturday maps to itself", "2022-01-08", "2022-01-08"},
		{"crosses a year boundary", "2021-12-26", "2022-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeekEndingSaturday(MustDate(tt.date))
			assert.Equal(t, MustDate(tt.expected), got)
		})
	}
}
