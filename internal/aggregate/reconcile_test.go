package aggregate

import (
	"testing"
	"time"

	"railboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekSeries(start domain.Date, counts ...int) domain.DailySeries {
	series := make(domain.DailySeries, len(counts))
	for i, c := range counts {
		d := start.AddDays(i)
		series[i] = domain.DailyPoint{Label: d.Time().Format("Mon 2"), Date: d, Passengers: c}
	}
	return series
}

func TestReconcile_OverlaysTodayTotal(t *testing.T) {
	monday := domain.NewDate(2026, time.August, 24)
	today := monday.AddDays(3)
	series := weekSeries(monday, 120, 140, 135, 300, 0, 0, 0)

	out := Reconcile(series, today, 450)

	require.Len(t, out, 7)
	assert.Equal(t, 450, out[3].Passengers)
	for i, point := range out {
		if i == 3 {
			continue
		}
		assert.Equal(t, series[i].Passengers, point.Passengers, "day %d", i)
	}

	// The input series is left untouched.
	assert.Equal(t, 300, series[3].Passengers)
}

func TestReconcile_NoEntryForToday(t *testing.T) {
	monday := domain.NewDate(2026, time.August, 24)
	series := weekSeries(monday, 120, 140, 135)
	today := domain.NewDate(2026, time.September, 10)

	out := Reconcile(series, today, 450)
	assert.Equal(t, series, out)
}

func TestReconcile_EmptySeries(t *testing.T) {
	out := Reconcile(nil, domain.NewDate(2026, time.August, 27), 450)
	assert.Empty(t, out)
}
