package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/brewco/cafe-service/internal/cafe"
)

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	// CreateInTx inserts a booking inside a caller-owned transaction so a
	// dine-in order and its booking commit or roll back together.
	CreateInTx(ctx context.Context, tx pgx.Tx, b *Booking) error
	CancelInTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListForCafe(ctx context.Context, cafeID uuid.UUID) ([]Booking, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]Booking, error)
	CountForCafe(ctx context.Context, cafeID uuid.UUID) (int, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, b *Booking) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Msg("repository: failed to rollback booking transaction")
			}
		}
	}()

	if err = r.CreateInTx(ctx, tx, b); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit booking transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) CreateInTx(ctx context.Context, tx pgx.Tx, b *Booking) error {
	// Serialize bookings per table: lock the table row for the duration of
	// the transaction so two free-window checks cannot interleave. Locking
	// conflicting booking rows is not enough, a free window has no rows to
	// lock.
	var tableID uuid.UUID
	err := tx.QueryRow(ctx,
		`SELECT id FROM cafe_tables WHERE id = $1 FOR UPDATE`, b.TableID,
	).Scan(&tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cafe.ErrTableNotFound
		}
		return fmt.Errorf("repository: failed to lock table %s: %w", b.TableID, err)
	}

	// Overlap guard: at most one active booking per table per time window.
	var overlapping bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE table_id = $1
			  AND status = 'CONFIRMED'
			  AND starts_at < $3
			  AND ends_at > $2
		)
	`, b.TableID, b.StartsAt, b.EndsAt).Scan(&overlapping)
	if err != nil {
		return fmt.Errorf("repository: failed to check booking overlap for table %s: %w", b.TableID, err)
	}
	if overlapping {
		return ErrTableUnavailable
	}

	query := `
		INSERT INTO bookings (id, booking_ref, cafe_id, table_id, customer_id,
			starts_at, ends_at, number_of_guests, special_requests, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.Exec(ctx, query,
		b.ID, b.BookingRef, b.CafeID, b.TableID, b.CustomerID,
		b.StartsAt, b.EndsAt, b.Guests, b.SpecialRequests, b.Status, b.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if pgErr.ConstraintName == "bookings_booking_ref_key" {
				return ErrDuplicateRef
			}
			return ErrTableUnavailable
		}
		return fmt.Errorf("repository: failed to insert booking %s: %w", b.BookingRef, err)
	}
	return nil
}

func (r *postgresRepository) CancelInTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	cmdTag, err := tx.Exec(ctx,
		`UPDATE bookings SET status = 'CANCELLED' WHERE id = $1 AND status <> 'CANCELLED'`, id,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to cancel booking %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Already cancelled or gone; cascade cancellation is idempotent.
		log.Debug().Stringer("booking_id", id).Msg("repository: booking cancel was a no-op")
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var b Booking
	err := r.db.QueryRow(ctx, selectBooking+` WHERE id = $1`, id).Scan(scanTargets(&b)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select booking %s: %w", id, err)
	}
	return &b, nil
}

func (r *postgresRepository) ListForCafe(ctx context.Context, cafeID uuid.UUID) ([]Booking, error) {
	rows, err := r.db.Query(ctx, selectBooking+` WHERE cafe_id = $1 ORDER BY starts_at DESC`, cafeID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query bookings for cafe %s: %w", cafeID, err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r *postgresRepository) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]Booking, error) {
	rows, err := r.db.Query(ctx, selectBooking+` WHERE customer_id = $1 ORDER BY starts_at DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query bookings for customer %s: %w", customerID, err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r *postgresRepository) CountForCafe(ctx context.Context, cafeID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE cafe_id = $1`, cafeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to count bookings for cafe %s: %w", cafeID, err)
	}
	return count, nil
}

const selectBooking = `
	SELECT id, booking_ref, cafe_id, table_id, customer_id,
		starts_at, ends_at, number_of_guests, special_requests, status, created_at
	FROM bookings`

func scanTargets(b *Booking) []any {
	return []any{
		&b.ID, &b.BookingRef, &b.CafeID, &b.TableID, &b.CustomerID,
		&b.StartsAt, &b.EndsAt, &b.Guests, &b.SpecialRequests, &b.Status, &b.CreatedAt,
	}
}

func scanBookings(rows pgx.Rows) ([]Booking, error) {
	bookings := make([]Booking, 0)
	for rows.Next() {
		var b Booking
		if err := rows.Scan(scanTargets(&b)...); err != nil {
			return nil, fmt.Errorf("repository: failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating bookings: %w", err)
	}
	return bookings, nil
}
