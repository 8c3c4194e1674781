package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brewco/cafe-service/internal/order"
	"github.com/brewco/cafe-service/internal/staff"
)

// ChefHandler is the kitchen gateway, scoped like the waiter one to the
// chef's active assignment.
type ChefHandler struct {
	orders order.Service
	staff  staff.Repository
}

func NewChefHandler(orders order.Service, staffRepo staff.Repository) *ChefHandler {
	return &ChefHandler{orders: orders, staff: staffRepo}
}

func (h *ChefHandler) RegisterRoutes(router chi.Router) {
	router.Get("/orders", h.handleListOrders)
	router.Put("/orders/{orderId}/start", h.handleStartPreparing)
	router.Put("/orders/{orderId}/ready", h.handleMarkReady)
}

func (h *ChefHandler) assignedCafe(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	ident, _ := identityFrom(r)
	assignment, err := h.staff.ActiveAssignmentForStaff(r.Context(), ident.UserID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return assignment.CafeID, ident.UserID, nil
}

// handleListOrders returns the kitchen queue: everything forwarded to the
// kitchen, in progress, or plated and waiting for pickup.
func (h *ChefHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	cafeID, chefID, err := h.assignedCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}

	orders, err := h.orders.ListForCafe(r.Context(), cafeID, []order.Status{
		order.StatusSentToKitchen,
		order.StatusPreparing,
		order.StatusReady,
	})
	if err != nil {
		log.Error().Err(err).Stringer("chef_id", chefID).Msg("failed to list kitchen orders")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *ChefHandler) handleStartPreparing(w http.ResponseWriter, r *http.Request) {
	cafeID, chefID, err := h.assignedCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}
	orderID, err := uuid.FromString(chi.URLParam(r, "orderId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid orderId")
		return
	}

	o, err := h.orders.StartPreparing(r.Context(), cafeID, chefID, orderID)
	if err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Msg("start preparing refused")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *ChefHandler) handleMarkReady(w http.ResponseWriter, r *http.Request) {
	cafeID, chefID, err := h.assignedCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}
	orderID, err := uuid.FromString(chi.URLParam(r, "orderId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid orderId")
		return
	}

	o, err := h.orders.MarkReady(r.Context(), cafeID, chefID, orderID)
	if err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Msg("mark ready refused")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}
