package order

type transition struct {
	Actor Actor
	From  Status
	To    Status
}

// allowedTransitions is the single source of truth for who may move an order
// where. Gateways never re-check status on their own; they call the service,
// which consults this table.
//
// Cancellation is open to the owner up to PREPARING. Customers and waiters may
// only cancel while the kitchen has not been involved yet (PLACED, CONFIRMED).
// READY and DELIVERED orders cannot be cancelled by anyone.
var allowedTransitions = map[transition]bool{
	{ActorOwner, StatusPlaced, StatusConfirmed}: true,

	{ActorWaiter, StatusConfirmed, StatusSentToKitchen}: true,
	{ActorWaiter, StatusReady, StatusDelivered}:         true,

	{ActorChef, StatusSentToKitchen, StatusPreparing}: true,
	{ActorChef, StatusPreparing, StatusReady}:         true,

	{ActorOwner, StatusPlaced, StatusCancelled}:        true,
	{ActorOwner, StatusConfirmed, StatusCancelled}:     true,
	{ActorOwner, StatusSentToKitchen, StatusCancelled}: true,
	{ActorOwner, StatusPreparing, StatusCancelled}:     true,

	{ActorWaiter, StatusPlaced, StatusCancelled}:    true,
	{ActorWaiter, StatusConfirmed, StatusCancelled}: true,

	{ActorCustomer, StatusPlaced, StatusCancelled}:    true,
	{ActorCustomer, StatusConfirmed, StatusCancelled}: true,
}

// CanTransition reports whether actor may move an order from one status to
// another.
func CanTransition(actor Actor, from, to Status) bool {
	return allowedTransitions[transition{actor, from, to}]
}
