package order

import (
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusPlaced        Status = "PLACED"
	StatusConfirmed     Status = "CONFIRMED"
	StatusSentToKitchen Status = "SENT_TO_KITCHEN"
	StatusPreparing     Status = "PREPARING"
	StatusReady         Status = "READY"
	StatusDelivered     Status = "DELIVERED"
	StatusCancelled     Status = "CANCELLED"
)

func (s Status) String() string {
	return string(s)
}

// Terminal reports whether no transition can ever leave s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type Type string

const (
	TypeDineIn   Type = "DINE_IN"
	TypeTakeaway Type = "TAKEAWAY"
)

func (t Type) Valid() bool {
	return t == TypeDineIn || t == TypeTakeaway
}

// Actor is the role on whose behalf a transition is requested. Authorization
// against the transition table is keyed by role, not by individual user.
type Actor string

const (
	ActorCustomer Actor = "CUSTOMER"
	ActorOwner    Actor = "CAFE_OWNER"
	ActorWaiter   Actor = "WAITER"
	ActorChef     Actor = "CHEF"
)

type Item struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"order_id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Quantity   int       `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"` // price snapshot taken at order time
	Subtotal   float64   `json:"subtotal"`
	Notes      string    `json:"notes,omitempty"`
}

type Order struct {
	ID                  uuid.UUID  `json:"id"`
	OrderRef            string     `json:"order_ref"`
	CafeID              uuid.UUID  `json:"cafe_id"`
	CustomerID          uuid.UUID  `json:"customer_id"`
	Type                Type       `json:"order_type"`
	Status              Status     `json:"status"`
	TableID             *uuid.UUID `json:"table_id,omitempty"`
	BookingID           *uuid.UUID `json:"booking_id,omitempty"`
	AssignedWaiterID    *uuid.UUID `json:"assigned_waiter_id,omitempty"`
	AssignedChefID      *uuid.UUID `json:"assigned_chef_id,omitempty"`
	TotalAmount         float64    `json:"total_amount"`
	TaxAmount           float64    `json:"tax_amount"`
	DiscountAmount      float64    `json:"discount_amount"`
	GrandTotal          float64    `json:"grand_total"`
	SpecialInstructions string     `json:"special_instructions,omitempty"`
	Items               []Item     `json:"items"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// StatusChange is one entry of an order's audit trail. A row is appended in the
// same transaction as the status write, so the trail never disagrees with the
// order row.
type StatusChange struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	Status    Status    `json:"status"`
	ChangedBy uuid.UUID `json:"changed_by"`
	Notes     string    `json:"notes,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}
