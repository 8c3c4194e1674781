package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/brewco/cafe-service/internal/booking"
)

// StatusUpdate describes one transition write: the compare-and-swap on status
// plus every side effect that must land in the same transaction.
type StatusUpdate struct {
	OrderID       uuid.UUID
	From          Status
	To            Status
	ChangedBy     uuid.UUID
	Notes         string
	AssignWaiter  *uuid.UUID
	AssignChef    *uuid.UUID
	CancelBooking *uuid.UUID
}

// RevenueStats is the order store's contribution to the owner dashboard,
// recomputed fresh on every call.
type RevenueStats struct {
	TotalOrders  int
	TotalRevenue float64
	TodayRevenue float64
	TodayOrders  int
}

type Repository interface {
	Create(ctx context.Context, o *Order, bk *booking.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, typ Type) ([]Order, error)
	ListForCafe(ctx context.Context, cafeID uuid.UUID, statuses []Status) ([]Order, error)
	ListForWaiter(ctx context.Context, cafeID, waiterID uuid.UUID) ([]Order, error)
	// Transition applies upd atomically. It returns false with a nil error
	// when the CAS lost the race but the order already sits in the requested
	// target status, so the caller can report idempotent success.
	Transition(ctx context.Context, upd StatusUpdate) (bool, error)
	History(ctx context.Context, orderID uuid.UUID) ([]StatusChange, error)
	CountByStatus(ctx context.Context, cafeID uuid.UUID) (map[Status]int, error)
	RevenueStats(ctx context.Context, cafeID uuid.UUID, day time.Time) (RevenueStats, error)
}

type postgresRepository struct {
	db       *pgxpool.Pool
	bookings booking.Repository
}

func NewRepository(db *pgxpool.Pool, bookings booking.Repository) Repository {
	return &postgresRepository{db: db, bookings: bookings}
}

func (r *postgresRepository) Create(ctx context.Context, o *Order, bk *booking.Booking) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Str("order_ref", o.OrderRef).Msg("repository: failed to rollback create transaction")
			}
		}
	}()

	if bk != nil {
		if err = r.bookings.CreateInTx(ctx, tx, bk); err != nil {
			return err
		}
	}

	queryOrder := `
		INSERT INTO orders (id, order_ref, cafe_id, customer_id, order_type, status,
			table_id, booking_id, assigned_waiter_id, assigned_chef_id,
			total_amount, tax_amount, discount_amount, grand_total,
			special_instructions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = tx.Exec(ctx, queryOrder,
		o.ID, o.OrderRef, o.CafeID, o.CustomerID, o.Type, o.Status,
		o.TableID, o.BookingID, o.AssignedWaiterID, o.AssignedChefID,
		o.TotalAmount, o.TaxAmount, o.DiscountAmount, o.GrandTotal,
		o.SpecialInstructions, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == "orders_order_ref_key" {
			return errDuplicateRef
		}
		return fmt.Errorf("repository: failed to insert order %s: %w", o.OrderRef, err)
	}

	queryItem := `
		INSERT INTO order_items (id, order_id, menu_item_id, quantity, unit_price, subtotal, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i := range o.Items {
		item := &o.Items[i]
		_, err = tx.Exec(ctx, queryItem,
			item.ID, o.ID, item.MenuItemID, item.Quantity, item.UnitPrice, item.Subtotal, item.Notes,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.OrderRef, err)
		}
	}

	if err = insertHistory(ctx, tx, o.ID, o.Status, o.CustomerID, "Order placed", o.CreatedAt); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit create transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) Transition(ctx context.Context, upd StatusUpdate) (applied bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil || !applied {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Stringer("order_id", upd.OrderID).Msg("repository: failed to rollback transition")
			}
		}
	}()

	now := time.Now().UTC()
	query := `
		UPDATE orders
		SET status = $1,
		    updated_at = $2,
		    assigned_waiter_id = COALESCE($3, assigned_waiter_id),
		    assigned_chef_id = COALESCE($4, assigned_chef_id)
		WHERE id = $5 AND status = $6
	`
	cmdTag, err := tx.Exec(ctx, query,
		upd.To, now, upd.AssignWaiter, upd.AssignChef, upd.OrderID, upd.From,
	)
	if err != nil {
		return false, fmt.Errorf("repository: failed to update status of order %s: %w", upd.OrderID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		// Lost the compare-and-swap. Re-read to tell "someone already did
		// this exact transition" apart from "the order went elsewhere".
		var current Status
		scanErr := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, upd.OrderID).Scan(&current)
		switch {
		case errors.Is(scanErr, pgx.ErrNoRows):
			return false, ErrNotFound
		case scanErr != nil:
			err = fmt.Errorf("repository: failed to re-read order %s after lost race: %w", upd.OrderID, scanErr)
			return false, err
		case current == upd.To:
			log.Info().Stringer("order_id", upd.OrderID).Stringer("status", upd.To).
				Msg("repository: transition already applied by a concurrent actor")
			return false, nil
		default:
			return false, ErrConflict
		}
	}

	if err = insertHistory(ctx, tx, upd.OrderID, upd.To, upd.ChangedBy, upd.Notes, now); err != nil {
		return false, err
	}

	if upd.CancelBooking != nil {
		if err = r.bookings.CancelInTx(ctx, tx, *upd.CancelBooking); err != nil {
			return false, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("repository: failed to commit transition: %w", err)
	}
	return true, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status Status, changedBy uuid.UUID, notes string, at time.Time) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate history ID: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO order_status_history (id, order_id, status, changed_by, notes, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, orderID, status, changedBy, notes, at)
	if err != nil {
		return fmt.Errorf("repository: failed to insert status history for order %s: %w", orderID, err)
	}
	return nil
}

const selectOrder = `
	SELECT id, order_ref, cafe_id, customer_id, order_type, status,
		table_id, booking_id, assigned_waiter_id, assigned_chef_id,
		total_amount, tax_amount, discount_amount, grand_total,
		special_instructions, created_at, updated_at
	FROM orders`

func scanTargets(o *Order) []any {
	return []any{
		&o.ID, &o.OrderRef, &o.CafeID, &o.CustomerID, &o.Type, &o.Status,
		&o.TableID, &o.BookingID, &o.AssignedWaiterID, &o.AssignedChefID,
		&o.TotalAmount, &o.TaxAmount, &o.DiscountAmount, &o.GrandTotal,
		&o.SpecialInstructions, &o.CreatedAt, &o.UpdatedAt,
	}
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := r.db.QueryRow(ctx, selectOrder+` WHERE id = $1`, id).Scan(scanTargets(&o)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", id, err)
	}

	if err := r.attachItems(ctx, map[uuid.UUID]*Order{o.ID: &o}, []uuid.UUID{o.ID}); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *postgresRepository) ListForCustomer(ctx context.Context, customerID uuid.UUID, typ Type) ([]Order, error) {
	query := selectOrder + ` WHERE customer_id = $1 AND ($2 = '' OR order_type = $2) ORDER BY created_at DESC`
	return r.listOrders(ctx, query, customerID, string(typ))
}

func (r *postgresRepository) ListForCafe(ctx context.Context, cafeID uuid.UUID, statuses []Status) ([]Order, error) {
	if len(statuses) == 0 {
		return r.listOrders(ctx, selectOrder+` WHERE cafe_id = $1 ORDER BY created_at DESC`, cafeID)
	}
	wanted := make([]string, 0, len(statuses))
	for _, s := range statuses {
		wanted = append(wanted, string(s))
	}
	query := selectOrder + ` WHERE cafe_id = $1 AND status = ANY($2) ORDER BY created_at DESC`
	return r.listOrders(ctx, query, cafeID, wanted)
}

// ListForWaiter returns the waiter queue: every in-flight order at the cafe
// plus the waiter's own delivered ones. Delivered orders of other waiters are
// noise on a waiter's screen.
func (r *postgresRepository) ListForWaiter(ctx context.Context, cafeID, waiterID uuid.UUID) ([]Order, error) {
	query := selectOrder + `
	WHERE cafe_id = $1
	  AND (status = ANY('{CONFIRMED,SENT_TO_KITCHEN,READY}')
	       OR (status = 'DELIVERED' AND assigned_waiter_id = $2))
	ORDER BY created_at`
	return r.listOrders(ctx, query, cafeID, waiterID)
}

func (r *postgresRepository) listOrders(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for rows.Next() {
		var o Order
		if err := rows.Scan(scanTargets(&o)...); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		o.Items = make([]Item, 0)
		ordersMap[o.ID] = &o
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	if err := r.attachItems(ctx, ordersMap, orderIDs); err != nil {
		return nil, err
	}

	result := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		result = append(result, *ordersMap[id])
	}
	return result, nil
}

func (r *postgresRepository) attachItems(ctx context.Context, ordersMap map[uuid.UUID]*Order, orderIDs []uuid.UUID) error {
	query := `
		SELECT id, order_id, menu_item_id, quantity, unit_price, subtotal, notes
		FROM order_items
		WHERE order_id = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		return fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Quantity, &item.UnitPrice, &item.Subtotal, &item.Notes); err != nil {
			return fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		if o, ok := ordersMap[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("repository: error iterating order items: %w", err)
	}
	return nil
}

func (r *postgresRepository) History(ctx context.Context, orderID uuid.UUID) ([]StatusChange, error) {
	query := `
		SELECT id, order_id, status, changed_by, notes, changed_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY changed_at
	`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query status history for order %s: %w", orderID, err)
	}
	defer rows.Close()

	history := make([]StatusChange, 0)
	for rows.Next() {
		var c StatusChange
		if err := rows.Scan(&c.ID, &c.OrderID, &c.Status, &c.ChangedBy, &c.Notes, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan status change: %w", err)
		}
		history = append(history, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating status history: %w", err)
	}
	return history, nil
}

func (r *postgresRepository) CountByStatus(ctx context.Context, cafeID uuid.UUID) (map[Status]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM orders WHERE cafe_id = $1 GROUP BY status`, cafeID,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to count orders by status for cafe %s: %w", cafeID, err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("repository: failed to scan status count: %w", err)
		}
		counts[s] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating status counts: %w", err)
	}
	return counts, nil
}

func (r *postgresRepository) RevenueStats(ctx context.Context, cafeID uuid.UUID, day time.Time) (RevenueStats, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(grand_total) FILTER (WHERE status = 'DELIVERED'), 0),
			COALESCE(SUM(grand_total) FILTER (WHERE status = 'DELIVERED'
				AND created_at >= $2 AND created_at < $3), 0),
			COUNT(*) FILTER (WHERE created_at >= $2 AND created_at < $3)
		FROM orders
		WHERE cafe_id = $1
	`
	var stats RevenueStats
	err := r.db.QueryRow(ctx, query, cafeID, dayStart, dayStart.AddDate(0, 0, 1)).Scan(
		&stats.TotalOrders, &stats.TotalRevenue, &stats.TodayRevenue, &stats.TodayOrders,
	)
	if err != nil {
		return RevenueStats{}, fmt.Errorf("repository: failed to compute revenue stats for cafe %s: %w", cafeID, err)
	}
	return stats, nil
}
