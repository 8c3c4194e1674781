package staff

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
)

type Role string

const (
	RoleChef   Role = "CHEF"
	RoleWaiter Role = "WAITER"
)

func (r Role) Valid() bool {
	return r == RoleChef || r == RoleWaiter
}

var (
	ErrNotFound = errors.New("staff assignment not found")

	// ErrNotAssigned means a chef or waiter has no active cafe assignment, so
	// no order at any cafe is theirs to touch.
	ErrNotAssigned = errors.New("staff member is not assigned to any cafe")
)

// Assignment links a staff identity to one cafe in one role. Assignments are
// never edited, only deactivated and replaced.
type Assignment struct {
	ID         uuid.UUID `json:"id"`
	CafeID     uuid.UUID `json:"cafe_id"`
	StaffID    uuid.UUID `json:"staff_id"`
	Role       Role      `json:"role"`
	AssignedBy uuid.UUID `json:"assigned_by"`
	IsActive   bool      `json:"is_active"`
	AssignedAt time.Time `json:"assigned_at"`
}
