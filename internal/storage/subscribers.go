package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Subscriber is one chat recipient of the daily digest.
type Subscriber struct {
	ChatID    int64
	IsActive  bool
	Username  string
	FirstName string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertSubscriber registers or refreshes a subscriber. Display fields are
// only overwritten with non-empty values; the active flag and updated_at
// always change.
func (db *DB) UpsertSubscriber(ctx context.Context, chatID int64, isActive bool, username, firstName string) error {
	now := time.Now().UTC()

	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO subscribers (chat_id, is_active, username, first_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (chat_id) DO UPDATE SET
			is_active = excluded.is_active,
			username = COALESCE(excluded.username, subscribers.username),
			first_name = COALESCE(excluded.first_name, subscribers.first_name),
			updated_at = excluded.updated_at
	`, chatID, isActive, toText(username), toText(firstName), now); err != nil {
		return fmt.Errorf("upsert subscriber %d: %w", chatID, err)
	}

	return nil
}

// SetSubscription flips the active flag, creating the row if needed.
func (db *DB) SetSubscription(ctx context.Context, chatID int64, isActive bool) error {
	now := time.Now().UTC()

	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO subscribers (chat_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (chat_id) DO UPDATE SET
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`, chatID, isActive, now); err != nil {
		return fmt.Errorf("set subscription %d: %w", chatID, err)
	}

	return nil
}

// IsSubscribed reports whether the chat has an active subscription.
func (db *DB) IsSubscribed(ctx context.Context, chatID int64) (bool, error) {
	var active bool

	err := db.Pool.QueryRow(ctx, `SELECT is_active FROM subscribers WHERE chat_id = $1`, chatID).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}

		return false, fmt.Errorf("query subscription %d: %w", chatID, err)
	}

	return active, nil
}

// ActiveSubscribers returns the chat ids of all active subscribers in
// stable order.
func (db *DB) ActiveSubscribers(ctx context.Context) ([]int64, error) {
	rows, err := db.Pool.Query(ctx, `SELECT chat_id FROM subscribers WHERE is_active ORDER BY chat_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query active subscribers: %w", err)
	}
	defer rows.Close()

	var chatIDs []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}

		chatIDs = append(chatIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}

	return chatIDs, nil
}
