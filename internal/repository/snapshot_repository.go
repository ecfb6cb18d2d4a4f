package repository

import (
	"context"
	"fmt"
	"time"

	"railboard/internal/domain"
	"railboard/pkg/database"
)

// trafficSnapshotRepository handles daily total archiving with PostgreSQL
type trafficSnapshotRepository struct {
	db *database.PostgresDB
}

// NewTrafficSnapshotRepository creates a new traffic snapshot repository
func NewTrafficSnapshotRepository(db *database.PostgresDB) TrafficSnapshotRepository {
	return &trafficSnapshotRepository{
		db: db,
	}
}

// UpsertDailyTotal records the ridership total for one calendar day
func (r *trafficSnapshotRepository) UpsertDailyTotal(ctx context.Context, day domain.Date, total int) error {
	query := `
		INSERT INTO daily_traffic_snapshots (snapshot_date, total, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (snapshot_date) DO UPDATE SET
			total = EXCLUDED.total,
			created_at = EXCLUDED.created_at
	`

	_, err := r.db.Pool.Exec(ctx, query, day.Time(), total, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert daily traffic snapshot: %w", err)
	}

	return nil
}

// RecentDailyTotals returns up to limit archived days, newest first
func (r *trafficSnapshotRepository) RecentDailyTotals(ctx context.Context, limit int) ([]domain.DailyTotalSnapshot, error) {
	query := `
		SELECT snapshot_date, total, created_at
		FROM daily_traffic_snapshots
		ORDER BY snapshot_date DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily traffic snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]domain.DailyTotalSnapshot, 0, limit)
	for rows.Next() {
		var (
			day      time.Time
			snapshot domain.DailyTotalSnapshot
		)
		if err := rows.Scan(&day, &snapshot.Total, &snapshot.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily traffic snapshot: %w", err)
		}
		snapshot.Date = domain.DateOf(day)
		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read daily traffic snapshots: %w", err)
	}

	return snapshots, nil
}
