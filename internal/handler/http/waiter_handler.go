package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brewco/cafe-service/internal/order"
	"github.com/brewco/cafe-service/internal/staff"
)

// WaiterHandler is the waiter gateway. A waiter is always scoped to the one
// cafe their active assignment points at, so no cafeId appears in the routes.
type WaiterHandler struct {
	orders order.Service
	staff  staff.Repository
}

func NewWaiterHandler(orders order.Service, staffRepo staff.Repository) *WaiterHandler {
	return &WaiterHandler{orders: orders, staff: staffRepo}
}

func (h *WaiterHandler) RegisterRoutes(router chi.Router) {
	router.Get("/orders", h.handleListOrders)
	router.Put("/orders/{orderId}/send-to-kitchen", h.handleSendToKitchen)
	router.Put("/orders/{orderId}/deliver", h.handleDeliver)
	router.Put("/orders/{orderId}/cancel", h.handleCancel)
}

func (h *WaiterHandler) assignedCafe(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	ident, _ := identityFrom(r)
	assignment, err := h.staff.ActiveAssignmentForStaff(r.Context(), ident.UserID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return assignment.CafeID, ident.UserID, nil
}

// handleListOrders returns the waiter's work queue: every in-flight order at
// the cafe, plus delivered orders this waiter handled themselves.
func (h *WaiterHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	cafeID, waiterID, err := h.assignedCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}

	orders, err := h.orders.ListForWaiter(r.Context(), cafeID, waiterID)
	if err != nil {
		log.Error().Err(err).Stringer("waiter_id", waiterID).Msg("failed to list waiter orders")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *WaiterHandler) handleSendToKitchen(w http.ResponseWriter, r *http.Request) {
	cafeID, waiterID, err := h.assignedCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}
	orderID, err := uuid.FromString(chi.URLParam(r, "orderId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid orderId")
		return
	}

	o, err := h.orders.SendToKitchen(r.Context(), cafeID, waiterID, orderID)
	if err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Msg("send to kitchen refused")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *WaiterHandler) handleDeliver(w http.ResponseWriter, r *http.Request) {
	cafeID, waiterID, err := h.assignedCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}
	orderID, err := uuid.FromString(chi.URLParam(r, "orderId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid orderId")
		return
	}

	o, err := h.orders.Deliver(r.Context(), cafeID, waiterID, orderID)
	if err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Msg("deliver refused")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *WaiterHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	cafeID, waiterID, err := h.assignedCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}
	orderID, err := uuid.FromString(chi.URLParam(r, "orderId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid orderId")
		return
	}

	o, err := h.orders.Cancel(r.Context(), order.ActorWaiter, waiterID, cafeID, orderID)
	if err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Msg("waiter cancel refused")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}
