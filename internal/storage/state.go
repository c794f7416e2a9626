package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SetState stores a process-state value under the given key.
func (db *DB) SetState(ctx context.Context, key, value string) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO bot_state (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value); err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}

	return nil
}

// GetState returns the stored value, or "" when the key is absent.
func (db *DB) GetState(ctx context.Context, key string) (string, error) {
	var value string

	err := db.Pool.QueryRow(ctx, `SELECT value FROM bot_state WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("get state %s: %w", key, err)
	}

	return value, nil
}
