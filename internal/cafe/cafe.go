// Package cafe is the read-side boundary to cafe onboarding and table CRUD.
// The gateways need ownership checks and table lookups; the dashboard needs
// table counts.
package cafe

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound      = errors.New("cafe not found")
	ErrTableNotFound = errors.New("table not found")
)

type Cafe struct {
	ID       uuid.UUID `json:"id"`
	OwnerID  uuid.UUID `json:"owner_id"`
	Name     string    `json:"name"`
	IsActive bool      `json:"is_active"`
}

const (
	TableAvailable = "AVAILABLE"
	TableOccupied  = "OCCUPIED"
)

type Table struct {
	ID          uuid.UUID `json:"id"`
	CafeID      uuid.UUID `json:"cafe_id"`
	TableNumber string    `json:"table_number"`
	Capacity    int       `json:"capacity"`
	Status      string    `json:"status"`
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Cafe, error)
	IsOwnedBy(ctx context.Context, cafeID, ownerID uuid.UUID) (bool, error)
	GetTable(ctx context.Context, tableID uuid.UUID) (*Table, error)
	CountTables(ctx context.Context, cafeID uuid.UUID) (total, available int, err error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Cafe, error) {
	var c Cafe
	err := r.db.QueryRow(ctx,
		`SELECT id, owner_id, name, is_active FROM cafes WHERE id = $1`, id,
	).Scan(&c.ID, &c.OwnerID, &c.Name, &c.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cafe %s: %w", id, err)
	}
	return &c, nil
}

func (r *postgresRepository) IsOwnedBy(ctx context.Context, cafeID, ownerID uuid.UUID) (bool, error) {
	var owned bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM cafes WHERE id = $1 AND owner_id = $2)`, cafeID, ownerID,
	).Scan(&owned)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check cafe ownership: %w", err)
	}
	return owned, nil
}

func (r *postgresRepository) GetTable(ctx context.Context, tableID uuid.UUID) (*Table, error) {
	var t Table
	err := r.db.QueryRow(ctx,
		`SELECT id, cafe_id, table_number, capacity, status FROM cafe_tables WHERE id = $1`, tableID,
	).Scan(&t.ID, &t.CafeID, &t.TableNumber, &t.Capacity, &t.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("repository: failed to select table %s: %w", tableID, err)
	}
	return &t, nil
}

func (r *postgresRepository) CountTables(ctx context.Context, cafeID uuid.UUID) (int, int, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'AVAILABLE')
		FROM cafe_tables
		WHERE cafe_id = $1
	`
	var total, available int
	if err := r.db.QueryRow(ctx, query, cafeID).Scan(&total, &available); err != nil {
		return 0, 0, fmt.Errorf("repository: failed to count tables for cafe %s: %w", cafeID, err)
	}
	return total, available, nil
}
