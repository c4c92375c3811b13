package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/greenthumb-app/greenthumb/internal/booking"
	"github.com/greenthumb-app/greenthumb/internal/model"
	"github.com/greenthumb-app/greenthumb/libs/db"
)

// ResourceRepository resolves bookable resources. Profile content is owned by
// other parts of the platform; the engine only reads ownership and listing.
type ResourceRepository struct {
	pool *db.Pool
}

func NewResourceRepository(pool *db.Pool) *ResourceRepository {
	return &ResourceRepository{pool: pool}
}

func (r *ResourceRepository) Lookup(ctx context.Context, resourceID string) (model.Resource, error) {
	var res model.Resource
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, owner_id::text, kind, listed
		FROM resources
		WHERE id = $1
	`, resourceID).Scan(&res.ID, &res.OwnerID, &res.Kind, &res.Listed)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Resource{}, booking.ErrResourceNotFound
	}
	if err != nil {
		return model.Resource{}, err
	}
	return res, nil
}
