package db

import (
	"context"
	"fmt"
	"time"
)

// MarkFetchRun records an ingestion attempt for a target date. Presence of
// the row means the scheduler must not re-trigger ingestion for that date,
// regardless of how the run went.
func (db *DB) MarkFetchRun(ctx context.Context, targetDate, mode string, fetchedCount int) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO fetch_runs (target_date, mode, fetched_count, fetched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (target_date) DO UPDATE SET
			mode = excluded.mode,
			fetched_count = excluded.fetched_count,
			fetched_at = excluded.fetched_at
	`, targetDate, mode, fetchedCount, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark fetch run %s: %w", targetDate, err)
	}

	return nil
}

// HasFetchRun reports whether an ingestion attempt was already recorded for
// the date.
func (db *DB) HasFetchRun(ctx context.Context, targetDate string) (bool, error) {
	var exists bool

	err := db.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM fetch_runs WHERE target_date = $1)
	`, targetDate).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query fetch run %s: %w", targetDate, err)
	}

	return exists, nil
}
