package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2026, 8, 27)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-08-27"`, string(raw))

	var back Date
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, d.Equal(back))
}

func TestDateUnmarshalRejectsGarbage(t *testing.T) {
	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"27/08/2026"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`42`), &d))
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2026, 8, 31)

	assert.Equal(t, NewDate(2026, 9, 1), d.AddDays(1))
	assert.Equal(t, NewDate(2026, 8, 24), d.AddDays(-7))
	assert.Equal(t, 7, NewDate(2026, 8, 24).DaysUntil(d))
	assert.Equal(t, -7, d.DaysUntil(NewDate(2026, 8, 24)))
}

func TestDateOrdering(t *testing.T) {
	earlier := NewDate(2026, 8, 26)
	later := NewDate(2026, 8, 27)

	assert.True(t, earlier.Before(later))
	assert.True(t, later.After(earlier))
	assert.False(t, earlier.Before(earlier))
	assert.True(t, earlier.Equal(earlier))
	assert.True(t, NewDate(2025, 12, 31).Before(NewDate(2026, 1, 1)))
}

func TestExitTimeAcceptedLayouts(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"space separated", `"2026-08-27 08:15:00"`},
		{"t separated", `"2026-08-27T08:15:00"`},
		{"rfc3339", `"2026-08-27T08:15:00Z"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var et ExitTime
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &et))
			assert.Equal(t, 8, et.Hour())
			assert.Equal(t, 15, et.Minute())
			assert.Equal(t, NewDate(2026, 8, 27), DateOf(et.Time))
		})
	}
}

func TestExitTimeRejectsUnknownLayout(t *testing.T) {
	var et ExitTime
	assert.Error(t, json.Unmarshal([]byte(`"27-08-2026 08:15"`), &et))
}

func TestTransactionRecordUnmarshal(t *testing.T) {
	raw := `{"station_code":"CEN","card_type":"stored-value","exit_datetime":"2026-08-27 17:42:10"}`

	var rec TransactionRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, "CEN", rec.StationCode)
	assert.Equal(t, "stored-value", rec.CardCategory)
	assert.Equal(t, 17, rec.ExitAt.Hour())
}

func TestTrafficReportClone(t *testing.T) {
	change := -12.5
	busiest := 8
	report := &TrafficReport{
		Class: RangeWeek,
		Total: 100,
		Stations: StationSummary{
			"A": &StationStats{
				Total:             60,
				Breakdown:         map[string]int{"stored-value": 40, "single-trip": 20},
				ChangeVsYesterday: &change,
			},
		},
		Daily: DailySeries{{Date: NewDate(2026, 8, 24), Label: "Mon 24", Passengers: 100}},
		Peak:  &PeakHourResult{BusiestHour: &busiest},
	}

	clone := report.Clone()
	require.NotNil(t, clone)

	// Mutating the clone must not bleed into the original.
	clone.Stations["A"].Total = 1
	clone.Stations["A"].Breakdown["stored-value"] = 1
	*clone.Stations["A"].ChangeVsYesterday = 99
	clone.Daily[0].Passengers = 1
	*clone.Peak.BusiestHour = 23

	assert.Equal(t, 60, report.Stations["A"].Total)
	assert.Equal(t, 40, report.Stations["A"].Breakdown["stored-value"])
	assert.Equal(t, -12.5, *report.Stations["A"].ChangeVsYesterday)
	assert.Equal(t, 100, report.Daily[0].Passengers)
	assert.Equal(t, 8, *report.Peak.BusiestHour)

	var nilReport *TrafficReport
	assert.Nil(t, nilReport.Clone())
}

func TestExitTimeKeepsWallClockAcrossZones(t *testing.T) {
	// Zoneless stamps are taken at face value in local time, never shifted.
	var et ExitTime
	require.NoError(t, json.Unmarshal([]byte(`"2026-08-27 23:59:59"`), &et))
	assert.Equal(t, time.Local, et.Location())
	assert.Equal(t, 23, et.Hour())
}
