package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brewco/cafe-service/internal/booking"
	"github.com/brewco/cafe-service/internal/order"
)

type PlaceOrderItemRequest struct {
	MenuItemID string `json:"menuItemId" validate:"required,uuid4"`
	Quantity   int    `json:"quantity" validate:"required,min=1"`
	Notes      string `json:"notes,omitempty"`
}

type PlaceOrderRequest struct {
	CafeID              string                  `json:"cafeId" validate:"required,uuid4"`
	OrderType           string                  `json:"orderType" validate:"required,oneof=DINE_IN TAKEAWAY"`
	TableID             string                  `json:"tableId,omitempty" validate:"omitempty,uuid4"`
	NumberOfGuests      int                     `json:"numberOfGuests,omitempty" validate:"omitempty,min=1"`
	SpecialInstructions string                  `json:"specialInstructions,omitempty"`
	Items               []PlaceOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type CreateBookingRequest struct {
	CafeID          string `json:"cafeId" validate:"required,uuid4"`
	TableID         string `json:"tableId" validate:"required,uuid4"`
	StartsAt        string `json:"startsAt" validate:"required"`
	EndsAt          string `json:"endsAt,omitempty"`
	NumberOfGuests  int    `json:"numberOfGuests" validate:"required,min=1"`
	SpecialRequests string `json:"specialRequests,omitempty"`
}

type CustomerHandler struct {
	orders   order.Service
	bookings booking.Service
	validate *validator.Validate
}

func NewCustomerHandler(orders order.Service, bookings booking.Service) *CustomerHandler {
	return &CustomerHandler{orders: orders, bookings: bookings, validate: validator.New()}
}

func (h *CustomerHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.handlePlaceOrder)
	router.Get("/orders", h.handleListOrders)
	router.Get("/orders/{orderId}", h.handleGetOrder)
	router.Get("/orders/{orderId}/history", h.handleOrderHistory)
	router.Put("/orders/{orderId}/cancel", h.handleCancelOrder)
	router.Post("/bookings", h.handleCreateBooking)
	router.Get("/bookings", h.handleListBookings)
}

func (h *CustomerHandler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r)

	var payload PlaceOrderRequest
	if err := decodeAndValidate(r, h.validate, &payload); err != nil {
		if respondValidationErrors(w, err) {
			return
		}
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid request payload")
		return
	}

	cafeID, err := uuid.FromString(payload.CafeID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid cafeId")
		return
	}

	in := order.PlaceInput{
		CafeID:              cafeID,
		CustomerID:          ident.UserID,
		Type:                order.Type(payload.OrderType),
		Guests:              payload.NumberOfGuests,
		SpecialInstructions: payload.SpecialInstructions,
	}
	if payload.TableID != "" {
		tableID, err := uuid.FromString(payload.TableID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, KindValidation, "invalid tableId")
			return
		}
		in.TableID = &tableID
	}
	for _, item := range payload.Items {
		menuItemID, err := uuid.FromString(item.MenuItemID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, KindValidation, "invalid menuItemId")
			return
		}
		in.Items = append(in.Items, order.PlaceItemInput{
			MenuItemID: menuItemID,
			Quantity:   item.Quantity,
			Notes:      item.Notes,
		})
	}

	placed, err := h.orders.Place(r.Context(), in)
	if err != nil {
		log.Warn().Err(err).Stringer("customer_id", ident.UserID).Msg("failed to place order")
		respondMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, placed)
}

func (h *CustomerHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r)

	typ := order.Type(r.URL.Query().Get("type"))
	if typ != "" && !typ.Valid() {
		respondWithError(w, http.StatusBadRequest, KindValidation, "unknown order type filter")
		return
	}

	orders, err := h.orders.ListForCustomer(r.Context(), ident.UserID, typ)
	if err != nil {
		log.Error().Err(err).Stringer("customer_id", ident.UserID).Msg("failed to list customer orders")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *CustomerHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r)

	orderID, err := uuid.FromString(chi.URLParam(r, "orderId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid orderId")
		return
	}

	o, err := h.orders.GetForCustomer(r.Context(), ident.UserID, orderID)
	if err != nil {
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *CustomerHandler) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r)

	orderID, err := uuid.FromString(chi.URLParam(r, "orderId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid orderId")
		return
	}

	history, err := h.orders.History(r.Context(), ident.UserID, orderID)
	if err != nil {
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, history)
}

func (h *CustomerHandler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r)

	orderID, err := uuid.FromString(chi.URLParam(r, "orderId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid orderId")
		return
	}

	o, err := h.orders.Cancel(r.Context(), order.ActorCustomer, ident.UserID, uuid.Nil, orderID)
	if err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Msg("customer cancel refused")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *CustomerHandler) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r)

	var payload CreateBookingRequest
	if err := decodeAndValidate(r, h.validate, &payload); err != nil {
		if respondValidationErrors(w, err) {
			return
		}
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid request payload")
		return
	}

	cafeID, err := uuid.FromString(payload.CafeID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid cafeId")
		return
	}
	tableID, err := uuid.FromString(payload.TableID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "invalid tableId")
		return
	}
	startsAt, err := time.Parse(time.RFC3339, payload.StartsAt)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, KindValidation, "startsAt must be RFC 3339")
		return
	}
	var endsAt time.Time
	if payload.EndsAt != "" {
		endsAt, err = time.Parse(time.RFC3339, payload.EndsAt)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, KindValidation, "endsAt must be RFC 3339")
			return
		}
		if !endsAt.After(startsAt) {
			respondWithError(w, http.StatusBadRequest, KindValidation, "endsAt must be after startsAt")
			return
		}
	}

	created, err := h.bookings.Create(r.Context(), booking.CreateInput{
		CafeID:          cafeID,
		TableID:         tableID,
		CustomerID:      ident.UserID,
		StartsAt:        startsAt,
		EndsAt:          endsAt,
		Guests:          payload.NumberOfGuests,
		SpecialRequests: payload.SpecialRequests,
	})
	if err != nil {
		log.Warn().Err(err).Stringer("table_id", tableID).Msg("failed to create booking")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *CustomerHandler) handleListBookings(w http.ResponseWriter, r *http.Request) {
	ident, _ := identityFrom(r)

	bookings, err := h.bookings.ListForCustomer(r.Context(), ident.UserID)
	if err != nil {
		log.Error().Err(err).Stringer("customer_id", ident.UserID).Msg("failed to list customer bookings")
		respondMappedError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, bookings)
}
