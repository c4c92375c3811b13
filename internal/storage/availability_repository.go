package storage

import (
	"context"
	"time"

	"github.com/greenthumb-app/greenthumb/internal/model"
	"github.com/greenthumb-app/greenthumb/libs/db"
)

// AvailabilityRepository owns the two declared-availability tables. The
// engine reads them; owners mutate them through the editing endpoints.
type AvailabilityRepository struct {
	pool *db.Pool
}

func NewAvailabilityRepository(pool *db.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

func (r *AvailabilityRepository) ActiveTemplates(ctx context.Context, resourceID string) ([]model.AvailabilityTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, resource_id::text, weekday, start_minute, end_minute, active
		FROM availability_templates
		WHERE resource_id = $1 AND active
		ORDER BY weekday, start_minute
	`, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AvailabilityTemplate
	for rows.Next() {
		var t model.AvailabilityTemplate
		if err := rows.Scan(&t.ID, &t.ResourceID, &t.Weekday, &t.StartMinute, &t.EndMinute, &t.Active); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// ListTemplates returns every template, active or not, for owner editing.
func (r *AvailabilityRepository) ListTemplates(ctx context.Context, resourceID string) ([]model.AvailabilityTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, resource_id::text, weekday, start_minute, end_minute, active
		FROM availability_templates
		WHERE resource_id = $1
		ORDER BY weekday, start_minute
	`, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AvailabilityTemplate
	for rows.Next() {
		var t model.AvailabilityTemplate
		if err := rows.Scan(&t.ID, &t.ResourceID, &t.Weekday, &t.StartMinute, &t.EndMinute, &t.Active); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// UpsertTemplate inserts or updates the weekly slot keyed by
// (resource, weekday, start_minute). Toggling active goes through here too.
func (r *AvailabilityRepository) UpsertTemplate(ctx context.Context, t model.AvailabilityTemplate) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO availability_templates (resource_id, weekday, start_minute, end_minute, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (resource_id, weekday, start_minute) DO UPDATE
		SET end_minute = EXCLUDED.end_minute,
			active = EXCLUDED.active
	`, t.ResourceID, t.Weekday, t.StartMinute, t.EndMinute, t.Active)
	return err
}

func (r *AvailabilityRepository) WindowsIntersecting(ctx context.Context, resourceID string, from, to time.Time) ([]model.AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, resource_id::text, start_ts, end_ts
		FROM availability_windows
		WHERE resource_id = $1
			AND end_ts > $2
			AND start_ts < $3
		ORDER BY start_ts ASC
	`, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AvailabilityWindow
	for rows.Next() {
		var w model.AvailabilityWindow
		if err := rows.Scan(&w.ID, &w.ResourceID, &w.Start, &w.End); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// ReplaceWindows swaps the full set of literal windows for a resource in one
// transaction. A save is wholesale; there is no partial patch.
func (r *AvailabilityRepository) ReplaceWindows(ctx context.Context, resourceID string, windows []model.AvailabilityWindow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM availability_windows WHERE resource_id = $1`, resourceID); err != nil {
		return err
	}
	for _, w := range windows {
		if _, err := tx.Exec(ctx, `
			INSERT INTO availability_windows (resource_id, start_ts, end_ts)
			VALUES ($1, $2, $3)
		`, resourceID, w.Start, w.End); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
