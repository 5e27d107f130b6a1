package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS advisory_history (
    id            UUID PRIMARY KEY,
    advisory_id   TEXT NOT NULL,
    category      TEXT NOT NULL,
    status        TEXT NOT NULL,
    title         TEXT NOT NULL,
    message       TEXT NOT NULL,
    icon          TEXT NOT NULL DEFAULT '',
    action        TEXT NOT NULL DEFAULT '',
    latitude      DOUBLE PRECISION NOT NULL,
    longitude     DOUBLE PRECISION NOT NULL,
    location_name TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS advisory_history_created_at_idx ON advisory_history (created_at DESC);
`

// EnsureSchema creates the tables used by the service when they do not exist yet.
func (d *DB) EnsureSchema(ctx context.Context) error {
	if _, err := d.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (d *DB) Close() {
	d.Pool.Close()
}
