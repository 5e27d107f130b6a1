package db

import (
	"context"
	"errors"
	"fmt"

	"agrisense/internal/kv"

	"github.com/jackc/pgx/v5"
)

// KV adapts the kv_entries table to kv.Store.
type KV struct {
	db *DB
}

func (d *DB) KV() *KV {
	return &KV{db: d}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := k.db.Pool.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get kv entry %s: %w", key, err)
	}
	return value, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	query := `
        INSERT INTO kv_entries (key, value, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := k.db.Pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set kv entry %s: %w", key, err)
	}
	return nil
}
