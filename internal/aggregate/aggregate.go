// Package aggregate turns raw gate-transaction rows into the summaries the
// dashboard renders: per-station totals and breakdowns, day-over-day
// change, daily passenger series and hourly peak detection. Everything here
// is pure; fetching and caching live with the range controllers.
package aggregate

import (
	"time"

	"railboard/internal/domain"
)

// dayLabelLayout renders a series point label as short weekday plus
// day-of-month, e.g. "Mon 24".
const dayLabelLayout = "Mon 2"

// BuildStationSummary groups rows by station code and card category in a
// single pass. The summary is rebuilt whole every aggregation; it is never
// merged into a previous one.
func BuildStationSummary(rows []domain.TransactionRecord) domain.StationSummary {
	summary := make(domain.StationSummary)
	for _, row := range rows {
		stats, ok := summary[row.StationCode]
		if !ok {
			stats = &domain.StationStats{Breakdown: make(map[string]int)}
			summary[row.StationCode] = stats
		}
		stats.Total++
		stats.Breakdown[row.CardCategory]++
	}
	return summary
}

// ApplyChange fills each station's change-vs-comparison percentage from the
// comparison period's rows. Stations absent from the comparison count as
// zero there.
func ApplyChange(summary domain.StationSummary, comparison []domain.TransactionRecord) {
	previous := make(map[string]int)
	for _, row := range comparison {
		previous[row.StationCode]++
	}
	for code, stats := range summary {
		change := PercentChange(stats.Total, previous[code])
		stats.ChangeVsYesterday = &change
	}
}

// PercentChange computes (current-previous)/previous*100. A zero previous
// total is defined as +100 when current is positive and 0 otherwise; a
// documented convention, not a mathematical limit.
func PercentChange(current, previous int) float64 {
	if previous > 0 {
		return float64(current-previous) / float64(previous) * 100
	}
	if current > 0 {
		return 100
	}
	return 0
}

// BuildDailySeries emits one point per calendar day in [start, end]
// inclusive, oldest first. Days without rows contribute zero passengers.
func BuildDailySeries(rows []domain.TransactionRecord, start, end domain.Date) domain.DailySeries {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[domain.DateOf(row.ExitAt.Time).String()]++
	}

	days := start.DaysUntil(end) + 1
	if days < 1 {
		return domain.DailySeries{}
	}

	series := make(domain.DailySeries, 0, days)
	for d := start; !d.After(end); d = d.AddDays(1) {
		series = append(series, domain.DailyPoint{
			Label:      d.Time().Format(dayLabelLayout),
			Date:       d,
			Passengers: counts[d.String()],
		})
	}
	return series
}

// FindPeakHours buckets rows by local hour of day. Busiest is the argmax
// with ties broken by the lowest hour; quietest is the argmin restricted to
// hours that saw at least one transaction. An hour with zero rows is
// closed or missing data, not quiet. Both fields are nil when the row set
// is empty.
func FindPeakHours(rows []domain.TransactionRecord) domain.PeakHourResult {
	var buckets [24]int
	for _, row := range rows {
		buckets[row.ExitAt.Hour()]++
	}

	busiest, quietest := -1, -1
	for hour := 0; hour < 24; hour++ {
		count := buckets[hour]
		if count == 0 {
			continue
		}
		if busiest == -1 || count > buckets[busiest] {
			busiest = hour
		}
		if quietest == -1 || count < buckets[quietest] {
			quietest = hour
		}
	}

	if busiest == -1 {
		return domain.PeakHourResult{}
	}
	return domain.PeakHourResult{BusiestHour: &busiest, QuietestHour: &quietest}
}

// FilterUpToClock keeps the rows whose wall-clock time of day is not later
// than the cutoff's. Used to truncate yesterday to the same partial window
// as a still-running today before comparing the two.
func FilterUpToClock(rows []domain.TransactionRecord, cutoff time.Time) []domain.TransactionRecord {
	limit := secondsOfDay(cutoff)
	filtered := make([]domain.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		if secondsOfDay(row.ExitAt.Time) <= limit {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
