package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day component. Cached payloads
// marshal dates through the ISO-8601 date form so they round-trip by
// calendar value rather than by instant.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate creates a date from its calendar components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf extracts the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses an ISO-8601 calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight of the date in the local timezone.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.Local)
}

// AddDays returns the date n calendar days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) Equal(o Date) bool {
	return d.Year == o.Year && d.Month == o.Month && d.Day == o.Day
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) After(o Date) bool {
	return o.Before(d)
}

// DaysUntil returns the number of calendar days from d to o.
func (d Date) DaysUntil(o Date) int {
	// UTC anchors keep the arithmetic immune to DST transitions.
	from := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	to := time.Date(o.Year, o.Month, o.Day, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// exitTimeLayouts are the timestamp forms the ticketing backend emits. None
// carry an offset; values are taken as-is in the local timezone with no
// conversion applied.
var exitTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ExitTime is the gate-exit timestamp of a transaction record.
type ExitTime struct {
	time.Time
}

func (t *ExitTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range exitTimeLayouts {
		parsed, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized exit timestamp %q", s)
}

func (t ExitTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format("2006-01-02 15:04:05"))
}

// TransactionRecord is one gate-exit event as reported by the ticketing
// backend. The engine only reads these; the backend owns them.
type TransactionRecord struct {
	StationCode  string   `json:"station_code"`
	CardCategory string   `json:"card_type"`
	ExitAt       ExitTime `json:"exit_datetime"`
}

// StationStats holds aggregated exit counts for one station.
type StationStats struct {
	Total             int            `json:"total"`
	Breakdown         map[string]int `json:"breakdown"`
	ChangeVsYesterday *float64       `json:"change_vs_yesterday,omitempty"`
}

// StationSummary maps station codes to their aggregated stats. It is rebuilt
// in full on every successful aggregation, never merged incrementally.
type StationSummary map[string]*StationStats

// DailyPoint is one day of a daily passenger series.
type DailyPoint struct {
	Label      string `json:"label"`
	Date       Date   `json:"date"`
	Passengers int    `json:"passengers"`
}

// DailySeries is a daily passenger series ordered oldest first, with one
// entry per calendar day in the query range inclusive of both endpoints.
type DailySeries []DailyPoint

// PeakHourResult identifies the busiest and quietest hour of a day. The
// quietest hour only considers hours that saw at least one transaction;
// both fields are nil when the day had none.
type PeakHourResult struct {
	BusiestHour  *int `json:"busiest_hour"`
	QuietestHour *int `json:"quietest_hour"`
}

// TrafficReport is the aggregated payload a range controller produces and
// caches. Which fields are populated depends on the range class: today
// carries stations and peak hours, week adds the daily series, the month
// classes carry the total only.
type TrafficReport struct {
	Class       RangeClass      `json:"range_class"`
	Total       int             `json:"total"`
	Stations    StationSummary  `json:"stations,omitempty"`
	Daily       DailySeries     `json:"daily,omitempty"`
	Peak        *PeakHourResult `json:"peak,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Clone returns a deep copy safe to hand out of a controller snapshot.
func (r *TrafficReport) Clone() *TrafficReport {
	if r == nil {
		return nil
	}
	out := &TrafficReport{
		Class:       r.Class,
		Total:       r.Total,
		GeneratedAt: r.GeneratedAt,
	}
	if r.Stations != nil {
		out.Stations = make(StationSummary, len(r.Stations))
		for code, stats := range r.Stations {
			copied := &StationStats{Total: stats.Total}
			if stats.Breakdown != nil {
				copied.Breakdown = make(map[string]int, len(stats.Breakdown))
				for k, v := range stats.Breakdown {
					copied.Breakdown[k] = v
				}
			}
			if stats.ChangeVsYesterday != nil {
				change := *stats.ChangeVsYesterday
				copied.ChangeVsYesterday = &change
			}
			out.Stations[code] = copied
		}
	}
	if r.Daily != nil {
		out.Daily = make(DailySeries, len(r.Daily))
		copy(out.Daily, r.Daily)
	}
	if r.Peak != nil {
		peak := PeakHourResult{}
		if r.Peak.BusiestHour != nil {
			h := *r.Peak.BusiestHour
			peak.BusiestHour = &h
		}
		if r.Peak.QuietestHour != nil {
			h := *r.Peak.QuietestHour
			peak.QuietestHour = &h
		}
		out.Peak = &peak
	}
	return out
}

// DailyTotalSnapshot is one archived day of ridership stored in PostgreSQL.
type DailyTotalSnapshot struct {
	Date      Date      `json:"date"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}
