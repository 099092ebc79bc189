package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	garages "fleetfuel-cloud/internal/garages/domain"
)

// GarageRepository is a Postgres implementation of the garage registry.
type GarageRepository struct {
	db *sql.DB
}

// NewGarageRepository constructs a repository.
func NewGarageRepository(db *sql.DB) *GarageRepository {
	return &GarageRepository{db: db}
}

// Get fetches a garage by id.
func (r *GarageRepository) Get(ctx context.Context, id string) (*garages.Garage, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("garage repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, bank_reference, created_at
FROM garages
WHERE id = $1
LIMIT 1`, id)

	var garage garages.Garage
	if err := row.Scan(&garage.ID, &garage.Name, &garage.BankReference, &garage.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	garage.CreatedAt = garage.CreatedAt.UTC()
	return &garage, nil
}

// BankReferences resolves settlement references for the given ids.
func (r *GarageRepository) BankReferences(ctx context.Context, ids []string) (map[string]string, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("garage repo: nil db")
	}
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, bank_reference
FROM garages
WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make(map[string]string, len(ids))
	for rows.Next() {
		var id, ref string
		if err := rows.Scan(&id, &ref); err != nil {
			return nil, err
		}
		refs[id] = ref
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := refs[id]; !ok {
			return nil, fmt.Errorf("%w: %s", garages.ErrGarageNotFound, id)
		}
	}
	return refs, nil
}
