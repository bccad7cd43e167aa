package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-erp/internal/catalog"
)

// ItemRepo reads the reference-item master data lines resolve against.
type ItemRepo struct {
	Pool *pgxpool.Pool
}

// GetItem loads one reference item by id.
func (r ItemRepo) GetItem(ctx context.Context, id uuid.UUID) (catalog.Item, error) {
	const q = `
		SELECT id, code, name, tax_class, unit_cost, list_price, updated_at
		FROM items
		WHERE id = $1`
	var item catalog.Item
	err := r.Pool.QueryRow(ctx, q, id).Scan(
		&item.ID, &item.Code, &item.Name, &item.TaxClass,
		&item.UnitCost, &item.ListPrice, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Item{}, catalog.ErrNotFound
		}
		return catalog.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}
