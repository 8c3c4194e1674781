// Package menu is the read-side boundary to the menu CRUD flows, which are
// managed elsewhere. Order placement only needs price snapshots and the
// dashboard only needs counts.
package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("menu item not found")

type Item struct {
	ID          uuid.UUID `json:"id"`
	CafeID      uuid.UUID `json:"cafe_id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	IsAvailable bool      `json:"is_available"`
}

type Repository interface {
	GetForCafe(ctx context.Context, cafeID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]Item, error)
	CountForCafe(ctx context.Context, cafeID uuid.UUID) (int, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// GetForCafe resolves menu items by id, scoped to one cafe. Items of other
// cafes are simply absent from the result; the caller decides whether that is
// a validation failure.
func (r *postgresRepository) GetForCafe(ctx context.Context, cafeID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]Item, error) {
	query := `
		SELECT id, cafe_id, name, price, is_available
		FROM menu_items
		WHERE cafe_id = $1 AND id = ANY($2)
	`

	rows, err := r.db.Query(ctx, query, cafeID, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query menu items for cafe %s: %w", cafeID, err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID]Item, len(ids))
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.CafeID, &item.Name, &item.Price, &item.IsAvailable); err != nil {
			return nil, fmt.Errorf("repository: failed to scan menu item: %w", err)
		}
		items[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating menu items: %w", err)
	}

	return items, nil
}

func (r *postgresRepository) CountForCafe(ctx context.Context, cafeID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM menu_items WHERE cafe_id = $1`, cafeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to count menu items for cafe %s: %w", cafeID, err)
	}
	return count, nil
}
