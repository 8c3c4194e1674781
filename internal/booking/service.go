package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brewco/cafe-service/internal/cafe"
)

type CreateInput struct {
	CafeID          uuid.UUID
	TableID         uuid.UUID
	CustomerID      uuid.UUID
	StartsAt        time.Time
	EndsAt          time.Time // zero value means StartsAt + DefaultSlot
	Guests          int
	SpecialRequests string
}

type Service interface {
	Create(ctx context.Context, in CreateInput) (*Booking, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]Booking, error)
	ListForCafe(ctx context.Context, cafeID uuid.UUID) ([]Booking, error)
}

type service struct {
	repo  Repository
	cafes cafe.Repository
	refs  RefGenerator
}

// RefGenerator is the slice of refgen.Generator this package needs.
type RefGenerator interface {
	BookingRef() string
}

func NewService(repo Repository, cafes cafe.Repository, refs RefGenerator) Service {
	return &service{repo: repo, cafes: cafes, refs: refs}
}

// createRetries bounds the regenerate-and-retry loop on booking reference
// collisions, which happen when the per-process counter restarts.
const createRetries = 3

func (s *service) Create(ctx context.Context, in CreateInput) (*Booking, error) {
	b, err := Build(ctx, s.cafes, s.refs.BookingRef(), in)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < createRetries; attempt++ {
		if err = s.repo.Create(ctx, b); !errors.Is(err, ErrDuplicateRef) {
			break
		}
		log.Warn().Str("booking_ref", b.BookingRef).Msg("booking reference collision, regenerating")
		b.BookingRef = s.refs.BookingRef()
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("booking_ref", b.BookingRef).Stringer("table_id", b.TableID).Msg("booking created")
	return b, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]Booking, error) {
	return s.repo.ListForCustomer(ctx, customerID)
}

func (s *service) ListForCafe(ctx context.Context, cafeID uuid.UUID) ([]Booking, error) {
	return s.repo.ListForCafe(ctx, cafeID)
}

// Build validates a booking request against the table catalog and assembles a
// CONFIRMED booking ready for insertion. The order service reuses it when a
// dine-in order carries its booking, so the two flows cannot drift apart.
func Build(ctx context.Context, cafes cafe.Repository, ref string, in CreateInput) (*Booking, error) {
	table, err := cafes.GetTable(ctx, in.TableID)
	if err != nil {
		return nil, err
	}
	if table.CafeID != in.CafeID {
		return nil, fmt.Errorf("%w: table belongs to another cafe", cafe.ErrTableNotFound)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate booking ID: %w", err)
	}

	endsAt := in.EndsAt
	if endsAt.IsZero() {
		endsAt = in.StartsAt.Add(DefaultSlot)
	}
	guests := in.Guests
	if guests <= 0 {
		guests = 1
	}

	return &Booking{
		ID:              id,
		BookingRef:      ref,
		CafeID:          in.CafeID,
		TableID:         in.TableID,
		CustomerID:      in.CustomerID,
		StartsAt:        in.StartsAt,
		EndsAt:          endsAt,
		Guests:          guests,
		SpecialRequests: in.SpecialRequests,
		Status:          StatusConfirmed,
		CreatedAt:       time.Now().UTC(),
	}, nil
}
