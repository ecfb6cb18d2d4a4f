package repository

import (
	"context"

	"railboard/internal/domain"
)

// TrafficSnapshotRepository archives daily ridership totals in PostgreSQL.
// The archive survives cache flushes and feeds the history endpoint.
type TrafficSnapshotRepository interface {
	// UpsertDailyTotal records the total for one calendar day, overwriting
	// any earlier figure for that day.
	UpsertDailyTotal(ctx context.Context, day domain.Date, total int) error

	// RecentDailyTotals returns up to limit archived days, newest first.
	RecentDailyTotals(ctx context.Context, limit int) ([]domain.DailyTotalSnapshot, error)
}
