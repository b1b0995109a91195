package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestNewResultBatch(t *testing.T) {
	fixedTime := time.Date(2022, 1, 14, 9, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixedTime))
	defer SetClock(nil)

	rows := []ResultRow{result("06", "2022-01-08", 21, 24)}
	batch := NewResultBatch(MustDate("2022-01-14"), TemporalWeekly, rows)

	assert.Equal(t, MustDate("2022-01-14"), batch.IssueDate)
	assert.Equal(t, TemporalWeekly, batch.TemporalResolution)
	assert.Equal(t, fixedTime, batch.GeneratedAt)
	assert.Equal(t, rows, batch.Rows)
}

func TestSetClock(t *testing.T) {
	t.Run("set custom clock", func(t *testing.T) {
		fixedTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(fixedTime))
		defer SetClock(nil)

		assert.Equal(t, fixedTime, clock.Now())
	})

	t.Run("reset to real clock", func(t *testing.T) {
		SetClock(clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		SetClock(nil)

		assert.True(t, time.Since(clock.Now()) < time.Second)
	})
}

func TestAddCounts(t *testing.T) {
	t.Run("both present", func(t *testing.T) {
		got := addCounts(Count(3), Count(4))

		assert.Equal(t, Count(7), got)
	})

	t.Run("missing operand is contagious", func(t *testing.T) {
		assert.Nil(t, addCounts(nil, Count(4)))
		assert.Nil(t, addCounts(Count(3), nil))
		assert.Nil(t, addCounts(nil, nil))
	})
}

func TestCloneRows(t *testing.T) {
	rows := []AdmissionRow{admission("2022-01-02", "CA", 3, 1)}

	got := cloneRows(rows)

	assert.Equal(t, rows, got)
	assert.NotSame(t, rows[0].AdultAdmissions, got[0].AdultAdmissions)
}
