package domain

import (
	"fmt"
	"time"
)

// RangeClass is one of the four fixed query modes of the dashboard. Each
// class has its own cache namespace and staleness policy; the class is not
// derivable from the date range alone and callers must supply it.
type RangeClass string

const (
	RangeToday         RangeClass = "today"
	RangeWeek          RangeClass = "week"
	RangeMonth         RangeClass = "month"
	RangePreviousMonth RangeClass = "previous-month"
)

// AllRangeClasses lists every supported range class.
var AllRangeClasses = []RangeClass{RangeToday, RangeWeek, RangeMonth, RangePreviousMonth}

// ParseRangeClass validates a range class received from a caller.
func ParseRangeClass(s string) (RangeClass, error) {
	c := RangeClass(s)
	for _, known := range AllRangeClasses {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown range class %q", s)
}

// RangeQuery is a resolved query window for one range class. PeriodKey is
// the calendar-period component of the cache key: the calendar date for
// today, the ISO year-week for week, the ISO year-month for the month
// classes.
type RangeQuery struct {
	Class     RangeClass
	Start     Date
	End       Date
	PeriodKey string
}

// QueryFor resolves the query window of a range class at the given instant.
// Controllers call this on every tick so the window follows the clock
// across midnight, week and month boundaries.
func QueryFor(class RangeClass, now time.Time) RangeQuery {
	switch class {
	case RangeToday:
		day := DateOf(now)
		return RangeQuery{Class: class, Start: day, End: day, PeriodKey: day.String()}
	case RangeWeek:
		start := weekStart(now)
		return RangeQuery{Class: class, Start: start, End: start.AddDays(6), PeriodKey: isoWeekKey(now)}
	case RangeMonth:
		start := NewDate(now.Year(), now.Month(), 1)
		return RangeQuery{Class: class, Start: start, End: monthEnd(start), PeriodKey: monthKey(start)}
	case RangePreviousMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
		start := NewDate(first.Year(), first.Month(), 1)
		return RangeQuery{Class: class, Start: start, End: monthEnd(start), PeriodKey: monthKey(start)}
	default:
		day := DateOf(now)
		return RangeQuery{Class: class, Start: day, End: day, PeriodKey: day.String()}
	}
}

// ComparisonFor resolves the comparison window a range class fetches
// alongside its current period. Today compares against yesterday (the
// caller truncates yesterday's rows to the current wall-clock cutoff),
// week against the previous ISO week. The month classes fetch nothing.
func ComparisonFor(class RangeClass, now time.Time) (start, end Date, ok bool) {
	switch class {
	case RangeToday:
		yesterday := DateOf(now).AddDays(-1)
		return yesterday, yesterday, true
	case RangeWeek:
		prevStart := weekStart(now).AddDays(-7)
		return prevStart, prevStart.AddDays(6), true
	default:
		return Date{}, Date{}, false
	}
}

// stalenessRow is one line of the staleness policy table. A zero past
// window means a completed period never goes stale: finished calendar
// periods are immutable facts and are cached forever once computed.
type stalenessRow struct {
	current time.Duration
	past    time.Duration
}

var stalenessPolicy = map[RangeClass]stalenessRow{
	RangeToday:         {current: 2 * time.Minute, past: 2 * time.Minute},
	RangeWeek:          {current: time.Hour},
	RangeMonth:         {current: time.Hour},
	RangePreviousMonth: {current: time.Hour},
}

// Fresh reports whether a cache entry written at writtenAt is still usable
// for this query at the given instant.
func (q RangeQuery) Fresh(writtenAt, now time.Time) bool {
	row, ok := stalenessPolicy[q.Class]
	if !ok {
		return false
	}
	window := row.current
	if q.pastPeriod(now) {
		if row.past == 0 {
			return true
		}
		window = row.past
	}
	return now.Sub(writtenAt) < window
}

// pastPeriod reports whether the query's calendar period has already
// completed relative to now.
func (q RangeQuery) pastPeriod(now time.Time) bool {
	switch q.Class {
	case RangeToday:
		return q.PeriodKey != DateOf(now).String()
	case RangeWeek:
		return q.PeriodKey != isoWeekKey(now)
	case RangeMonth, RangePreviousMonth:
		return q.PeriodKey != monthKey(DateOf(now))
	default:
		return false
	}
}

// weekStart returns the Monday of t's ISO week.
func weekStart(t time.Time) Date {
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // Sunday
	}
	return DateOf(t).AddDays(-offset)
}

func isoWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func monthKey(d Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}

func monthEnd(start Date) Date {
	next := start.Time().AddDate(0, 1, 0)
	return DateOf(next.AddDate(0, 0, -1))
}
