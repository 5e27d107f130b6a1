package db

import (
	"context"
	"fmt"
	"time"

	"agrisense/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// SaveAdvisories records one history row per advisory derived for loc at createdAt.
func (d *DB) SaveAdvisories(ctx context.Context, loc models.Location, advisories []models.Advisory, createdAt time.Time) error {
	if len(advisories) == 0 {
		return nil
	}
	query := `
    INSERT INTO advisory_history (
        id, advisory_id, category, status, title, message, icon, action,
        latitude, longitude, location_name, created_at
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	batch := &pgx.Batch{}
	for _, a := range advisories {
		batch.Queue(query,
			uuid.New(),
			a.ID,
			string(a.Category),
			string(a.Status),
			a.Title,
			a.Message,
			a.Icon,
			a.Action,
			loc.Latitude,
			loc.Longitude,
			loc.Name,
			createdAt,
		)
	}

	results := d.Pool.SendBatch(ctx, batch)
	defer results.Close()
	for range advisories {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert advisory history: %w", err)
		}
	}
	return nil
}

// ListAdvisoryHistory returns history rows newest first together with the total row count.
// A non-empty category restricts the result to that category.
func (d *DB) ListAdvisoryHistory(ctx context.Context, category string, limit, offset int) ([]models.AdvisoryRecord, int, error) {
	limit, offset = page(limit, offset)

	countQ := `SELECT COUNT(*) FROM advisory_history`
	listQ := `
        SELECT id, advisory_id, category, status, title, message, icon, action,
               latitude, longitude, location_name, created_at
        FROM advisory_history`
	args := []interface{}{}
	if category != "" {
		countQ += ` WHERE category = $1`
		listQ += ` WHERE category = $1`
		args = append(args, category)
	}

	var total int
	if err := d.Pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count advisory history: %w", err)
	}

	listQ += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := d.Pool.Query(ctx, listQ, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list advisory history: %w", err)
	}
	defer rows.Close()

	records := []models.AdvisoryRecord{}
	for rows.Next() {
		var r models.AdvisoryRecord
		var id pgtype.UUID
		var category, status string
		err := rows.Scan(
			&id, &r.Advisory.ID, &category, &status, &r.Advisory.Title, &r.Advisory.Message,
			&r.Advisory.Icon, &r.Advisory.Action, &r.Location.Latitude, &r.Location.Longitude,
			&r.Location.Name, &r.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan advisory history: %w", err)
		}
		r.ID = id.Bytes
		r.Advisory.Category = models.AdvisoryCategory(category)
		r.Advisory.Status = models.AdvisoryStatus(status)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read advisory history: %w", err)
	}
	return records, total, nil
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
