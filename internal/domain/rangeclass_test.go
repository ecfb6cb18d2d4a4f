package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Thursday 2026-08-27, 12:00 local.
var thursdayNoon = time.Date(2026, 8, 27, 12, 0, 0, 0, time.Local)

func TestParseRangeClass(t *testing.T) {
	for _, class := range AllRangeClasses {
		got, err := ParseRangeClass(string(class))
		require.NoError(t, err)
		assert.Equal(t, class, got)
	}

	_, err := ParseRangeClass("fortnight")
	assert.Error(t, err)
}

func TestQueryForToday(t *testing.T) {
	q := QueryFor(RangeToday, thursdayNoon)
	assert.Equal(t, NewDate(2026, 8, 27), q.Start)
	assert.Equal(t, NewDate(2026, 8, 27), q.End)
	assert.Equal(t, "2026-08-27", q.PeriodKey)
}

func TestQueryForWeekStartsMonday(t *testing.T) {
	q := QueryFor(RangeWeek, thursdayNoon)
	assert.Equal(t, NewDate(2026, 8, 24), q.Start)
	assert.Equal(t, NewDate(2026, 8, 30), q.End)
	assert.Equal(t, "2026-W35", q.PeriodKey)
}

func TestQueryForWeekOnSunday(t *testing.T) {
	// Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2026, 8, 30, 9, 0, 0, 0, time.Local)
	q := QueryFor(RangeWeek, sunday)
	assert.Equal(t, NewDate(2026, 8, 24), q.Start)
	assert.Equal(t, NewDate(2026, 8, 30), q.End)
}

func TestQueryForMonth(t *testing.T) {
	q := QueryFor(RangeMonth, thursdayNoon)
	assert.Equal(t, NewDate(2026, 8, 1), q.Start)
	assert.Equal(t, NewDate(2026, 8, 31), q.End)
	assert.Equal(t, "2026-08", q.PeriodKey)
}

func TestQueryForPreviousMonth(t *testing.T) {
	q := QueryFor(RangePreviousMonth, thursdayNoon)
	assert.Equal(t, NewDate(2026, 7, 1), q.Start)
	assert.Equal(t, NewDate(2026, 7, 31), q.End)
	assert.Equal(t, "2026-07", q.PeriodKey)
}

func TestQueryForPreviousMonthAcrossYear(t *testing.T) {
	january := time.Date(2026, 1, 15, 12, 0, 0, 0, time.Local)
	q := QueryFor(RangePreviousMonth, january)
	assert.Equal(t, NewDate(2025, 12, 1), q.Start)
	assert.Equal(t, NewDate(2025, 12, 31), q.End)
	assert.Equal(t, "2025-12", q.PeriodKey)
}

func TestComparisonForToday(t *testing.T) {
	start, end, ok := ComparisonFor(RangeToday, thursdayNoon)
	require.True(t, ok)
	assert.Equal(t, NewDate(2026, 8, 26), start)
	assert.Equal(t, NewDate(2026, 8, 26), end)
}

func TestComparisonForWeek(t *testing.T) {
	start, end, ok := ComparisonFor(RangeWeek, thursdayNoon)
	require.True(t, ok)
	assert.Equal(t, NewDate(2026, 8, 17), start)
	assert.Equal(t, NewDate(2026, 8, 23), end)
}

func TestComparisonForMonthClasses(t *testing.T) {
	for _, class := range []RangeClass{RangeMonth, RangePreviousMonth} {
		_, _, ok := ComparisonFor(class, thursdayNoon)
		assert.False(t, ok, string(class))
	}
}

func TestFreshToday(t *testing.T) {
	q := QueryFor(RangeToday, thursdayNoon)

	assert.True(t, q.Fresh(thursdayNoon.Add(-90*time.Second), thursdayNoon))
	assert.False(t, q.Fresh(thursdayNoon.Add(-3*time.Minute), thursdayNoon))
}

func TestFreshCurrentWeek(t *testing.T) {
	q := QueryFor(RangeWeek, thursdayNoon)

	assert.True(t, q.Fresh(thursdayNoon.Add(-30*time.Minute), thursdayNoon))
	assert.False(t, q.Fresh(thursdayNoon.Add(-2*time.Hour), thursdayNoon))
}

func TestFreshPastWeekNeverExpires(t *testing.T) {
	lastWeek := thursdayNoon.AddDate(0, 0, -7)
	q := QueryFor(RangeWeek, lastWeek)

	// The entry belongs to a completed week; age is irrelevant.
	assert.True(t, q.Fresh(lastWeek.Add(-24*30*time.Hour), thursdayNoon))
}

func TestFreshPreviousMonthNeverExpires(t *testing.T) {
	q := QueryFor(RangePreviousMonth, thursdayNoon)

	assert.True(t, q.Fresh(thursdayNoon.AddDate(0, 0, -20), thursdayNoon))
}

func TestFreshYesterdayEntryForToday(t *testing.T) {
	yesterday := thursdayNoon.AddDate(0, 0, -1)
	q := QueryFor(RangeToday, yesterday)

	// A completed day still uses the short window for the today class.
	assert.False(t, q.Fresh(yesterday, thursdayNoon))
}
