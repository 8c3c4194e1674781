package order

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brewco/cafe-service/internal/booking"
	"github.com/brewco/cafe-service/internal/cafe"
	"github.com/brewco/cafe-service/internal/menu"
	"github.com/brewco/cafe-service/internal/staff"
)

type PlaceItemInput struct {
	MenuItemID uuid.UUID
	Quantity   int
	Notes      string
}

type PlaceInput struct {
	CafeID              uuid.UUID
	CustomerID          uuid.UUID
	Type                Type
	TableID             *uuid.UUID
	Guests              int
	BookingStartsAt     time.Time // zero value means "seat now"
	SpecialInstructions string
	Items               []PlaceItemInput
}

type Service interface {
	Place(ctx context.Context, in PlaceInput) (*Order, error)

	GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*Order, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, typ Type) ([]Order, error)
	ListForCafe(ctx context.Context, cafeID uuid.UUID, statuses []Status) ([]Order, error)
	ListForWaiter(ctx context.Context, cafeID, waiterID uuid.UUID) ([]Order, error)
	History(ctx context.Context, customerID, orderID uuid.UUID) ([]StatusChange, error)

	Confirm(ctx context.Context, cafeID, ownerID uuid.UUID, orderID uuid.UUID, waiterID, chefID *uuid.UUID) (*Order, error)
	Cancel(ctx context.Context, actor Actor, actorID, cafeID, orderID uuid.UUID) (*Order, error)
	SendToKitchen(ctx context.Context, cafeID, waiterID, orderID uuid.UUID) (*Order, error)
	Deliver(ctx context.Context, cafeID, waiterID, orderID uuid.UUID) (*Order, error)
	StartPreparing(ctx context.Context, cafeID, chefID, orderID uuid.UUID) (*Order, error)
	MarkReady(ctx context.Context, cafeID, chefID, orderID uuid.UUID) (*Order, error)
}

// RefGenerator is the slice of refgen.Generator this package needs.
type RefGenerator interface {
	OrderRef() string
	BookingRef() string
}

type service struct {
	repo  Repository
	menus menu.Repository
	cafes cafe.Repository
	pools staff.Repository
	refs  RefGenerator
}

func NewService(repo Repository, menus menu.Repository, cafes cafe.Repository, pools staff.Repository, refs RefGenerator) Service {
	return &service{repo: repo, menus: menus, cafes: cafes, pools: pools, refs: refs}
}

const createRetries = 3

func (s *service) Place(ctx context.Context, in PlaceInput) (*Order, error) {
	if !in.Type.Valid() {
		return nil, validationErrorf("unknown order type %q", in.Type)
	}
	if len(in.Items) == 0 {
		return nil, validationErrorf("order must contain at least one item")
	}

	ids := make([]uuid.UUID, 0, len(in.Items))
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, validationErrorf("quantity for menu item %s must be at least 1", item.MenuItemID)
		}
		ids = append(ids, item.MenuItemID)
	}

	catalog, err := s.menus.GetForCafe(ctx, in.CafeID, ids)
	if err != nil {
		return nil, err
	}

	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, errors.New("failed to generate order ID")
	}

	// Snapshot unit prices now: later menu price edits must never change a
	// placed order.
	items := make([]Item, 0, len(in.Items))
	var total float64
	for _, item := range in.Items {
		mi, ok := catalog[item.MenuItemID]
		if !ok {
			return nil, validationErrorf("menu item %s not found at this cafe", item.MenuItemID)
		}
		if !mi.IsAvailable {
			return nil, validationErrorf("menu item %q is currently unavailable", mi.Name)
		}
		itemID, err := uuid.NewV4()
		if err != nil {
			return nil, errors.New("failed to generate order item ID")
		}
		subtotal := float64(item.Quantity) * mi.Price
		items = append(items, Item{
			ID:         itemID,
			OrderID:    orderID,
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  mi.Price,
			Subtotal:   subtotal,
			Notes:      item.Notes,
		})
		total += subtotal
	}

	now := time.Now().UTC()
	o := &Order{
		ID:                  orderID,
		CafeID:              in.CafeID,
		CustomerID:          in.CustomerID,
		Type:                in.Type,
		Status:              StatusPlaced,
		TotalAmount:         total,
		GrandTotal:          total, // tax and discount are zero in this flow
		SpecialInstructions: in.SpecialInstructions,
		Items:               items,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	var bk *booking.Booking
	if in.Type == TypeDineIn && in.TableID != nil {
		startsAt := in.BookingStartsAt
		if startsAt.IsZero() {
			startsAt = now
		}
		bk, err = booking.Build(ctx, s.cafes, s.refs.BookingRef(), booking.CreateInput{
			CafeID:     in.CafeID,
			TableID:    *in.TableID,
			CustomerID: in.CustomerID,
			StartsAt:   startsAt,
			Guests:     in.Guests,
		})
		if err != nil {
			return nil, err
		}
		o.TableID = in.TableID
		o.BookingID = &bk.ID
	} else if in.TableID != nil {
		return nil, validationErrorf("a table can only be attached to a dine-in order")
	}

	// The reference counter restarts with the process, so a collision with an
	// existing row is possible; regenerate and retry. Either reference can
	// collide, the order's or the attached booking's.
	for attempt := 0; attempt < createRetries; attempt++ {
		o.OrderRef = s.refs.OrderRef()
		if bk != nil {
			bk.BookingRef = s.refs.BookingRef()
		}
		err = s.repo.Create(ctx, o, bk)
		if !errors.Is(err, errDuplicateRef) && !errors.Is(err, booking.ErrDuplicateRef) {
			break
		}
		log.Warn().Str("order_ref", o.OrderRef).Msg("service: reference collision, regenerating")
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("order_ref", o.OrderRef).Stringer("cafe_id", o.CafeID).
		Float64("grand_total", o.GrandTotal).Msg("service: order placed")
	return o, nil
}

func (s *service) GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, typ Type) ([]Order, error) {
	return s.repo.ListForCustomer(ctx, customerID, typ)
}

func (s *service) ListForCafe(ctx context.Context, cafeID uuid.UUID, statuses []Status) ([]Order, error) {
	return s.repo.ListForCafe(ctx, cafeID, statuses)
}

func (s *service) ListForWaiter(ctx context.Context, cafeID, waiterID uuid.UUID) ([]Order, error) {
	return s.repo.ListForWaiter(ctx, cafeID, waiterID)
}

func (s *service) History(ctx context.Context, customerID, orderID uuid.UUID) ([]StatusChange, error) {
	if _, err := s.GetForCustomer(ctx, customerID, orderID); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, orderID)
}

func (s *service) Confirm(ctx context.Context, cafeID, ownerID uuid.UUID, orderID uuid.UUID, waiterID, chefID *uuid.UUID) (*Order, error) {
	if waiterID != nil {
		if err := s.checkPoolMember(ctx, cafeID, staff.RoleWaiter, *waiterID); err != nil {
			return nil, err
		}
	} else {
		// Confirmation must go through even when the cafe has no waiter pool;
		// the order stays unassigned until someone picks it up.
		pool, err := s.pools.ActiveByRole(ctx, cafeID, staff.RoleWaiter)
		if err != nil {
			return nil, err
		}
		if len(pool) == 0 {
			log.Info().Stringer("cafe_id", cafeID).Stringer("order_id", orderID).
				Msg("service: confirming without waiter, cafe has no waiter pool")
		}
	}
	if chefID != nil {
		if err := s.checkPoolMember(ctx, cafeID, staff.RoleChef, *chefID); err != nil {
			return nil, err
		}
	}

	notes := "Confirmed by owner"
	if waiterID != nil || chefID != nil {
		notes = "Staff assigned by owner"
	}
	return s.transition(ctx, transitionRequest{
		Actor:        ActorOwner,
		ActorID:      ownerID,
		CafeID:       cafeID,
		OrderID:      orderID,
		To:           StatusConfirmed,
		Notes:        notes,
		AssignWaiter: waiterID,
		AssignChef:   chefID,
	})
}

func (s *service) Cancel(ctx context.Context, actor Actor, actorID, cafeID, orderID uuid.UUID) (*Order, error) {
	notes := "Cancelled by " + string(actor)
	switch actor {
	case ActorCustomer:
		notes = "Cancelled by customer"
	case ActorOwner:
		notes = "Cancelled by owner"
	case ActorWaiter:
		notes = "Cancelled by waiter"
	}
	return s.transition(ctx, transitionRequest{
		Actor:   actor,
		ActorID: actorID,
		CafeID:  cafeID,
		OrderID: orderID,
		To:      StatusCancelled,
		Notes:   notes,
	})
}

func (s *service) SendToKitchen(ctx context.Context, cafeID, waiterID, orderID uuid.UUID) (*Order, error) {
	return s.transition(ctx, transitionRequest{
		Actor:   ActorWaiter,
		ActorID: waiterID,
		CafeID:  cafeID,
		OrderID: orderID,
		To:      StatusSentToKitchen,
		Notes:   "Forwarded to kitchen by waiter",
	})
}

func (s *service) Deliver(ctx context.Context, cafeID, waiterID, orderID uuid.UUID) (*Order, error) {
	return s.transition(ctx, transitionRequest{
		Actor:   ActorWaiter,
		ActorID: waiterID,
		CafeID:  cafeID,
		OrderID: orderID,
		To:      StatusDelivered,
		Notes:   "Delivered by waiter",
	})
}

func (s *service) StartPreparing(ctx context.Context, cafeID, chefID, orderID uuid.UUID) (*Order, error) {
	// The acting chef claims the order as a side effect of starting it.
	return s.transition(ctx, transitionRequest{
		Actor:      ActorChef,
		ActorID:    chefID,
		CafeID:     cafeID,
		OrderID:    orderID,
		To:         StatusPreparing,
		Notes:      "Preparation started by chef",
		AssignChef: &chefID,
	})
}

func (s *service) MarkReady(ctx context.Context, cafeID, chefID, orderID uuid.UUID) (*Order, error) {
	return s.transition(ctx, transitionRequest{
		Actor:   ActorChef,
		ActorID: chefID,
		CafeID:  cafeID,
		OrderID: orderID,
		To:      StatusReady,
		Notes:   "Order ready, marked by chef",
	})
}

type transitionRequest struct {
	Actor        Actor
	ActorID      uuid.UUID
	CafeID       uuid.UUID
	OrderID      uuid.UUID
	To           Status
	Notes        string
	AssignWaiter *uuid.UUID
	AssignChef   *uuid.UUID
}

// transition is the only path that mutates an order after creation. It scopes
// the order to the acting party, short-circuits idempotent repeats, validates
// against the transition table, and hands one atomic StatusUpdate to the
// store.
func (s *service) transition(ctx context.Context, req transitionRequest) (*Order, error) {
	o, err := s.repo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if req.Actor == ActorCustomer {
		if o.CustomerID != req.ActorID {
			return nil, ErrForbidden
		}
	} else if o.CafeID != req.CafeID {
		return nil, ErrForbidden
	}

	if o.Status == req.To {
		// Already there: a second tab or a concurrent poller repeated the
		// request. Report success without re-firing side effects.
		log.Debug().Str("order_ref", o.OrderRef).Stringer("status", o.Status).
			Msg("service: transition repeated on order already in target status")
		return o, nil
	}

	if !CanTransition(req.Actor, o.Status, req.To) {
		log.Warn().Str("order_ref", o.OrderRef).Str("actor", string(req.Actor)).
			Stringer("from", o.Status).Stringer("to", req.To).
			Msg("service: invalid transition attempt")
		return nil, &TransitionError{From: o.Status, To: req.To}
	}

	upd := StatusUpdate{
		OrderID:      req.OrderID,
		From:         o.Status,
		To:           req.To,
		ChangedBy:    req.ActorID,
		Notes:        req.Notes,
		AssignWaiter: req.AssignWaiter,
		AssignChef:   req.AssignChef,
	}
	if req.To == StatusCancelled && o.BookingID != nil {
		// Cancelling the order releases its table; a dangling CONFIRMED
		// booking would block the slot forever.
		upd.CancelBooking = o.BookingID
	}

	applied, err := s.repo.Transition(ctx, upd)
	if err != nil {
		return nil, err
	}
	if !applied {
		log.Info().Str("order_ref", o.OrderRef).Stringer("to", req.To).
			Msg("service: concurrent actor applied the same transition first")
	} else {
		log.Info().Str("order_ref", o.OrderRef).Stringer("from", o.Status).Stringer("to", req.To).
			Msg("service: order status updated")
	}

	return s.repo.GetByID(ctx, req.OrderID)
}

func (s *service) checkPoolMember(ctx context.Context, cafeID uuid.UUID, role staff.Role, staffID uuid.UUID) error {
	pool, err := s.pools.ActiveByRole(ctx, cafeID, role)
	if err != nil {
		return err
	}
	for _, a := range pool {
		if a.StaffID == staffID {
			return nil
		}
	}
	return validationErrorf("%s %s is not staffed at this cafe", role, staffID)
}
