package db

import (
	"context"
	"fmt"
	"time"
)

// MarkDelivery records a (subscriber, target date) delivery. The row's
// presence alone blocks redelivery, even with a zero article count.
func (db *DB) MarkDelivery(ctx context.Context, chatID int64, targetDate string, articleCount int) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO delivery_log (chat_id, target_date, article_count, sent_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id, target_date) DO UPDATE SET
			article_count = excluded.article_count,
			sent_at = excluded.sent_at
	`, chatID, targetDate, articleCount, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark delivery %d/%s: %w", chatID, targetDate, err)
	}

	return nil
}

// WasDelivered reports whether a delivery record exists for the subscriber
// and date.
func (db *DB) WasDelivered(ctx context.Context, chatID int64, targetDate string) (bool, error) {
	var exists bool

	err := db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM delivery_log WHERE chat_id = $1 AND target_date = $2
		)
	`, chatID, targetDate).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query delivery %d/%s: %w", chatID, targetDate, err)
	}

	return exists, nil
}
