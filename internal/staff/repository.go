package staff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, a *Assignment) error
	Deactivate(ctx context.Context, cafeID, assignmentID uuid.UUID) error
	ActiveForCafe(ctx context.Context, cafeID uuid.UUID) ([]Assignment, error)
	ActiveByRole(ctx context.Context, cafeID uuid.UUID, role Role) ([]Assignment, error)
	ActiveAssignmentForStaff(ctx context.Context, staffID uuid.UUID) (*Assignment, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, a *Assignment) error {
	if a.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate assignment ID: %w", err)
		}
		a.ID = id
	}
	a.IsActive = true
	a.AssignedAt = time.Now().UTC()

	query := `
		INSERT INTO staff_assignments (id, cafe_id, staff_id, role, assigned_by, is_active, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, a.ID, a.CafeID, a.StaffID, a.Role, a.AssignedBy, a.IsActive, a.AssignedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert staff assignment: %w", err)
	}
	return nil
}

func (r *postgresRepository) Deactivate(ctx context.Context, cafeID, assignmentID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE staff_assignments SET is_active = FALSE WHERE id = $1 AND cafe_id = $2`,
		assignmentID, cafeID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to deactivate assignment %s: %w", assignmentID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) ActiveForCafe(ctx context.Context, cafeID uuid.UUID) ([]Assignment, error) {
	query := `
		SELECT id, cafe_id, staff_id, role, assigned_by, is_active, assigned_at
		FROM staff_assignments
		WHERE cafe_id = $1 AND is_active
		ORDER BY assigned_at
	`
	rows, err := r.db.Query(ctx, query, cafeID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query staff for cafe %s: %w", cafeID, err)
	}
	defer rows.Close()

	return scanAssignments(rows)
}

func (r *postgresRepository) ActiveByRole(ctx context.Context, cafeID uuid.UUID, role Role) ([]Assignment, error) {
	query := `
		SELECT id, cafe_id, staff_id, role, assigned_by, is_active, assigned_at
		FROM staff_assignments
		WHERE cafe_id = $1 AND role = $2 AND is_active
		ORDER BY assigned_at
	`
	rows, err := r.db.Query(ctx, query, cafeID, role)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query %s pool for cafe %s: %w", role, cafeID, err)
	}
	defer rows.Close()

	return scanAssignments(rows)
}

func (r *postgresRepository) ActiveAssignmentForStaff(ctx context.Context, staffID uuid.UUID) (*Assignment, error) {
	query := `
		SELECT id, cafe_id, staff_id, role, assigned_by, is_active, assigned_at
		FROM staff_assignments
		WHERE staff_id = $1 AND is_active
		ORDER BY assigned_at DESC
		LIMIT 1
	`
	var a Assignment
	err := r.db.QueryRow(ctx, query, staffID).Scan(
		&a.ID, &a.CafeID, &a.StaffID, &a.Role, &a.AssignedBy, &a.IsActive, &a.AssignedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotAssigned
		}
		return nil, fmt.Errorf("repository: failed to select assignment for staff %s: %w", staffID, err)
	}
	return &a, nil
}

func scanAssignments(rows pgx.Rows) ([]Assignment, error) {
	assignments := make([]Assignment, 0)
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.CafeID, &a.StaffID, &a.Role, &a.AssignedBy, &a.IsActive, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan staff assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating staff assignments: %w", err)
	}
	return assignments, nil
}
