package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brewco/cafe-service/internal/booking"
	"github.com/brewco/cafe-service/internal/cafe"
	"github.com/brewco/cafe-service/internal/dashboard"
	"github.com/brewco/cafe-service/internal/order"
	"github.com/brewco/cafe-service/internal/staff"
)

type ConfirmOrderRequest struct {
	WaiterID string `json:"waiterId,omitempty" validate:"omitempty,uuid4"`
}

type AssignStaffRequest struct {
	WaiterID string `json:"waiterId,omitempty" validate:"omitempty,uuid4"`
	ChefID   string `json:"chefId,omitempty" validate:"omitempty,uuid4"`
}

type AddStaffRequest struct {
	StaffID string `json:"staffId" validate:"required,uuid4"`
	Role    string `json:"role" validate:"required,oneof=CHEF WAITER"`
}

// OwnerHandler is the cafe-owner gateway. Chefs and waiters may read through
// it (their dashboards reuse the owner views), but cafe resolution still pins
// every request to the one cafe the caller belongs to, and every mutation is
// re-checked against the owner role before it runs.
type OwnerHandler struct {
	orders    order.Service
	bookings  booking.Service
	dashboard dashboard.Service
	cafes     cafe.Repository
	staff     staff.Repository
	validate  *validator.Validate
}

func NewOwnerHandler(orders order.Service, bookings booking.Service, dash dashboard.Service, cafes cafe.Repository, staffRepo staff.Repository) *OwnerHandler {
	return &OwnerHandler{
		orders:    orders,
		bookings:  bookings,
		dashboard: dash,
		cafes:     cafes,
		staff:     staffRepo,
		validate:  validator.New(),
	}
}

func (h *OwnerHandler) RegisterRoutes(router chi.Router) {
	router.Route("/cafes/{cafeId}", func(r chi.Router) {
		r.Get("/dashboard", h.handleDashboard)
		r.Get("/orders", h.handleListOrders)
		r.Get("/orders/pending", h.handleListPendingOrders)
		r.Put("/orders/{orderId}/confirm", h.handleConfirmOrder)
		r.Put("/orders/{orderId}/assign", h.handleAssignStaff)
		r.Put("/orders/{orderId}/cancel", h.handleCancelOrder)
		r.Get("/bookings", h.handleListBookings)
		r.Get("/staff", h.handleListStaff)
		r.Post("/staff", h.handleAddStaff)
		r.Delete("/staff/{assignmentId}", h.handleRemoveStaff)
	})
}

// resolveCafe authorizes the caller against the cafe in the URL: owners must
// own it, staff must be actively assigned to it.
func (h *OwnerHandler) resolveCafe(r *http.Request) (uuid.UUID, error) {
	cafeID, err := uuid.FromString(chi.URLParam(r, "cafeId"))
	if err != nil {
		return uuid.Nil, &order.ValidationError{Reason: "invalid cafeId"}
	}
	ident, _ := identityFrom(r)

	if ident.Role == RoleOwner {
		owned, err := h.cafes.IsOwnedBy(r.Context(), cafeID, ident.UserID)
		if err != nil {
			return uuid.Nil, err
		}
		if !owned {
			return uuid.Nil, order.ErrForbidden
		}
		return cafeID, nil
	}

	assignment, err := h.staff.ActiveAssignmentForStaff(r.Context(), ident.UserID)
	if err != nil {
		return uuid.Nil, err
	}
	if assignment.CafeID != cafeID {
		return uuid.Nil, order.ErrForbidden
	}
	return cafeID, nil
}

func (h *OwnerHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	cafeID, err := h.resolveCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}

	stats, err := h.dashboard.Stats(r.Context(), cafeID)
	if err != nil {
		log.Error().Err(err).Stringer("cafe_id", cafeID).Msg("failed to compute dashboard stats")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func (h *OwnerHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	cafeID, err := h.resolveCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}

	var statuses []order.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, order.Status(strings.TrimSpace(s)))
		}
	}

	orders, err := h.orders.ListForCafe(r.Context(), cafeID, statuses)
	if err != nil {
		log.Error().Err(err).Stringer("cafe_id", cafeID).Msg("failed to list cafe orders")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OwnerHandler) handleListPendingOrders(w http.ResponseWriter, r *http.Request) {
	cafeID, err := h.resolveCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}

	orders, err := h.orders.ListForCafe(r.Context(), cafeID, []order.Status{order.StatusPlaced})
	if err != nil {
		log.Error().Err(err).Stringer("cafe_id", cafeID).Msg("failed to list pending orders")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

// requireOwnerRole guards the mutating order endpoints. Staff can read the
// owner views for their cafe, but confirm, assign, and cancel run as the
// owner actor in the state machine and must stay owner-only.
func requireOwnerRole(w http.ResponseWriter, r *http.Request) bool {
	ident, _ := identityFrom(r)
	if ident.Role != RoleOwner {
		respondWithError(w, http.StatusForbidden, KindForbidden, "only the owner can manage orders")
		return false
	}
	return true
}

func (h *OwnerHandler) handleConfirmOrder(w http.ResponseWriter, r *http.Request) {
	if !requireOwnerRole(w, r) {
		return
	}
	cafeID, err := h.resolveCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}
	orderID, err := uuid.FromString(chi.URLParam(r, "orderId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid orderId")
		return
	}

	// The confirm body is optional; confirming without a waiter is a
	// legitimate branch, not an error.
	var payload ConfirmOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		if respondValidationErrors(w, err) {
			return
		}
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid request payload")
		return
	}

	var waiterID *uuid.UUID
	if payload.WaiterID != "" {
		id, err := uuid.FromString(payload.WaiterID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, KindValidation, "invalid waiterId")
			return
		}
		waiterID = &id
	}

	ident, _ := identityFrom(r)
	confirmed, err := h.orders.Confirm(r.Context(), cafeID, ident.UserID, orderID, waiterID, nil)
	if err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Msg("confirm refused")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, confirmed)
}

func (h *OwnerHandler) handleAssignStaff(w http.ResponseWriter, r *http.Request) {
	if !requireOwnerRole(w, r) {
		return
	}
	cafeID, err := h.resolveCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}
	orderID, err := uuid.FromString(chi.URLParam(r, "orderId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid orderId")
		return
	}

	var payload AssignStaffRequest
	if err := decodeAndValidate(r, h.validate, &payload); err != nil {
		if respondValidationErrors(w, err) {
			return
		}
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid request payload")
		return
	}

	var waiterID, chefID *uuid.UUID
	if payload.WaiterID != "" {
		id, err := uuid.FromString(payload.WaiterID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, KindValidation, "invalid waiterId")
			return
		}
		waiterID = &id
	}
	if payload.ChefID != "" {
		id, err := uuid.FromString(payload.ChefID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, KindValidation, "invalid chefId")
			return
		}
		chefID = &id
	}

	ident, _ := identityFrom(r)
	confirmed, err := h.orders.Confirm(r.Context(), cafeID, ident.UserID, orderID, waiterID, chefID)
	if err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Msg("assign refused")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, confirmed)
}

func (h *OwnerHandler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	if !requireOwnerRole(w, r) {
		return
	}
	cafeID, err := h.resolveCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}
	orderID, err := uuid.FromString(chi.URLParam(r, "orderId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid orderId")
		return
	}

	ident, _ := identityFrom(r)
	cancelled, err := h.orders.Cancel(r.Context(), order.ActorOwner, ident.UserID, cafeID, orderID)
	if err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Msg("owner cancel refused")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, cancelled)
}

func (h *OwnerHandler) handleListBookings(w http.ResponseWriter, r *http.Request) {
	cafeID, err := h.resolveCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}

	bookings, err := h.bookings.ListForCafe(r.Context(), cafeID)
	if err != nil {
		log.Error().Err(err).Stringer("cafe_id", cafeID).Msg("failed to list cafe bookings")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, bookings)
}

func (h *OwnerHandler) handleListStaff(w http.ResponseWriter, r *http.Request) {
	cafeID, err := h.resolveCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}

	assignments, err := h.staff.ActiveForCafe(r.Context(), cafeID)
	if err != nil {
		log.Error().Err(err).Stringer("cafe_id", cafeID).Msg("failed to list staff")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, assignments)
}

func (h *OwnerHandler) handleAddStaff(w http.ResponseWriter, r *http.Request) {
	cafeID, err := h.resolveCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}
	ident, _ := identityFrom(r)
	if ident.Role != RoleOwner {
		respondWithError(w, http.StatusForbidden, KindForbidden, "only the owner can manage staff")
		return
	}

	var payload AddStaffRequest
	if err := decodeAndValidate(r, h.validate, &payload); err != nil {
		if respondValidationErrors(w, err) {
			return
		}
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid request payload")
		return
	}

	staffID, err := uuid.FromString(payload.StaffID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid staffId")
		return
	}

	assignment := staff.Assignment{
		CafeID:     cafeID,
		StaffID:    staffID,
		Role:       staff.Role(payload.Role),
		AssignedBy: ident.UserID,
	}
	if err := h.staff.Create(r.Context(), &assignment); err != nil {
		log.Error().Err(err).Stringer("cafe_id", cafeID).Msg("failed to add staff assignment")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, assignment)
}

func (h *OwnerHandler) handleRemoveStaff(w http.ResponseWriter, r *http.Request) {
	cafeID, err := h.resolveCafe(r)
	if err != nil {
		respondMappedError(w, err)
		return
	}
	ident, _ := identityFrom(r)
	if ident.Role != RoleOwner {
		respondWithError(w, http.StatusForbidden, KindForbidden, "only the owner can manage staff")
		return
	}

	assignmentID, err := uuid.FromString(chi.URLParam(r, "assignmentId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid assignmentId")
		return
	}

	if err := h.staff.Deactivate(r.Context(), cafeID, assignmentID); err != nil {
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "staff assignment removed"})
}
