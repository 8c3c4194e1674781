package booking

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

var (
	ErrNotFound = errors.New("booking not found")

	// ErrTableUnavailable means another active booking overlaps the requested
	// window for the same table.
	ErrTableUnavailable = errors.New("table already booked for this time window")

	// ErrDuplicateRef means the generated booking reference is already taken;
	// callers regenerate the reference and retry.
	ErrDuplicateRef = errors.New("booking reference already exists")
)

// DefaultSlot is assumed when a booking is made without an end time.
const DefaultSlot = 2 * time.Hour

type Booking struct {
	ID              uuid.UUID `json:"id"`
	BookingRef      string    `json:"booking_ref"`
	CafeID          uuid.UUID `json:"cafe_id"`
	TableID         uuid.UUID `json:"table_id"`
	CustomerID      uuid.UUID `json:"customer_id"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	Guests          int       `json:"number_of_guests"`
	SpecialRequests string    `json:"special_requests,omitempty"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}
