package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brewco/cafe-service/internal/booking"
	handler "github.com/brewco/cafe-service/internal/handler/http"
	"github.com/brewco/cafe-service/internal/order"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Place(ctx context.Context, in order.PlaceInput) (*order.Order, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, customerID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListForCustomer(ctx context.Context, customerID uuid.UUID, typ order.Type) ([]order.Order, error) {
	args := m.Called(ctx, customerID, typ)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) ListForCafe(ctx context.Context, cafeID uuid.UUID, statuses []order.Status) ([]order.Order, error) {
	args := m.Called(ctx, cafeID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) ListForWaiter(ctx context.Context, cafeID, waiterID uuid.UUID) ([]order.Order, error) {
	args := m.Called(ctx, cafeID, waiterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) History(ctx context.Context, customerID, orderID uuid.UUID) ([]order.StatusChange, error) {
	args := m.Called(ctx, customerID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.StatusChange), args.Error(1)
}

func (m *MockOrderService) Confirm(ctx context.Context, cafeID, ownerID uuid.UUID, orderID uuid.UUID, waiterID, chefID *uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, cafeID, ownerID, orderID, waiterID, chefID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) Cancel(ctx context.Context, actor order.Actor, actorID, cafeID, orderID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, actor, actorID, cafeID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) SendToKitchen(ctx context.Context, cafeID, waiterID, orderID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, cafeID, waiterID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) Deliver(ctx context.Context, cafeID, waiterID, orderID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, cafeID, waiterID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) StartPreparing(ctx context.Context, cafeID, chefID, orderID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, cafeID, chefID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) MarkReady(ctx context.Context, cafeID, chefID, orderID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, cafeID, chefID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Create(ctx context.Context, in booking.CreateInput) (*booking.Booking, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]booking.Booking, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.Booking), args.Error(1)
}

func (m *MockBookingService) ListForCafe(ctx context.Context, cafeID uuid.UUID) ([]booking.Booking, error) {
	args := m.Called(ctx, cafeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.Booking), args.Error(1)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func customerRouter(orders order.Service, bookings booking.Service) chi.Router {
	h := handler.NewCustomerHandler(orders, bookings)
	router := chi.NewRouter()
	router.Use(handler.RequireIdentity)
	h.RegisterRoutes(router)
	return router
}

func asCustomer(req *http.Request, customerID uuid.UUID) *http.Request {
	req.Header.Set("X-User-ID", customerID.String())
	req.Header.Set("X-User-Role", "CUSTOMER")
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCustomerHandler_PlaceOrder_Success(t *testing.T) {
	mockOrders := new(MockOrderService)
	mockBookings := new(MockBookingService)
	router := customerRouter(mockOrders, mockBookings)

	customerID := uuid.Must(uuid.NewV4())
	cafeID := uuid.Must(uuid.NewV4())
	itemID := uuid.Must(uuid.NewV4())

	placed := &order.Order{
		ID:         uuid.Must(uuid.NewV4()),
		OrderRef:   "ORD-20260829-1001",
		CafeID:     cafeID,
		CustomerID: customerID,
		Type:       order.TypeTakeaway,
		Status:     order.StatusPlaced,
		GrandTotal: 240,
	}
	mockOrders.On("Place", mock.Anything, mock.MatchedBy(func(in order.PlaceInput) bool {
		return in.CafeID == cafeID &&
			in.CustomerID == customerID &&
			in.Type == order.TypeTakeaway &&
			len(in.Items) == 1 &&
			in.Items[0].MenuItemID == itemID &&
			in.Items[0].Quantity == 2
	})).Return(placed, nil).Once()

	body, err := json.Marshal(handler.PlaceOrderRequest{
		CafeID:    cafeID.String(),
		OrderType: "TAKEAWAY",
		Items: []handler.PlaceOrderItemRequest{
			{MenuItemID: itemID.String(), Quantity: 2},
		},
	})
	require.NoError(t, err)

	req := asCustomer(httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body)), customerID)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var got order.Order
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, placed.OrderRef, got.OrderRef)
	assert.Equal(t, order.StatusPlaced, got.Status)
	mockOrders.AssertExpectations(t)
}

func TestCustomerHandler_PlaceOrder_ValidationFailure(t *testing.T) {
	mockOrders := new(MockOrderService)
	router := customerRouter(mockOrders, new(MockBookingService))

	// No items at all.
	body := []byte(`{"cafeId":"` + uuid.Must(uuid.NewV4()).String() + `","orderType":"TAKEAWAY","items":[]}`)
	req := asCustomer(httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body)), uuid.Must(uuid.NewV4()))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var resp errorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Kind)
	mockOrders.AssertNotCalled(t, "Place", mock.Anything, mock.Anything)
}

func TestCustomerHandler_PlaceOrder_MissingIdentity(t *testing.T) {
	router := customerRouter(new(MockOrderService), new(MockBookingService))

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(`{}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	var resp errorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "UNAUTHORIZED", resp.Kind)
}

func TestCustomerHandler_CancelOrder_InvalidTransition(t *testing.T) {
	mockOrders := new(MockOrderService)
	router := customerRouter(mockOrders, new(MockBookingService))

	customerID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())

	mockOrders.On("Cancel", mock.Anything, order.ActorCustomer, customerID, uuid.Nil, orderID).
		Return(nil, &order.TransitionError{From: order.StatusReady, To: order.StatusCancelled}).Once()

	req := asCustomer(httptest.NewRequest(http.MethodPut, "/orders/"+orderID.String()+"/cancel", nil), customerID)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
	var resp errorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "INVALID_TRANSITION", resp.Kind)
	assert.Equal(t, "invalid transition from READY to CANCELLED", resp.Error)
}

func TestCustomerHandler_GetOrder_NotFound(t *testing.T) {
	mockOrders := new(MockOrderService)
	router := customerRouter(mockOrders, new(MockBookingService))

	customerID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())
	mockOrders.On("GetForCustomer", mock.Anything, customerID, orderID).
		Return(nil, order.ErrNotFound).Once()

	req := asCustomer(httptest.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil), customerID)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	var resp errorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "NOT_FOUND", resp.Kind)
}

func TestCustomerHandler_ListOrders_TypeFilter(t *testing.T) {
	mockOrders := new(MockOrderService)
	router := customerRouter(mockOrders, new(MockBookingService))

	customerID := uuid.Must(uuid.NewV4())
	mockOrders.On("ListForCustomer", mock.Anything, customerID, order.TypeDineIn).
		Return([]order.Order{}, nil).Once()

	req := asCustomer(httptest.NewRequest(http.MethodGet, "/orders?type=DINE_IN", nil), customerID)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	mockOrders.AssertExpectations(t)
}

func TestCustomerHandler_ListOrders_BadTypeFilter(t *testing.T) {
	router := customerRouter(new(MockOrderService), new(MockBookingService))

	req := asCustomer(httptest.NewRequest(http.MethodGet, "/orders?type=DRIVE_THROUGH", nil), uuid.Must(uuid.NewV4()))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCustomerHandler_CreateBooking_Success(t *testing.T) {
	mockBookings := new(MockBookingService)
	router := customerRouter(new(MockOrderService), mockBookings)

	customerID := uuid.Must(uuid.NewV4())
	cafeID := uuid.Must(uuid.NewV4())
	tableID := uuid.Must(uuid.NewV4())
	startsAt := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)

	created := &booking.Booking{
		ID:         uuid.Must(uuid.NewV4()),
		BookingRef: "BKG-20260830-1001",
		CafeID:     cafeID,
		TableID:    tableID,
		CustomerID: customerID,
		StartsAt:   startsAt,
		EndsAt:     startsAt.Add(booking.DefaultSlot),
		Guests:     2,
		Status:     booking.StatusConfirmed,
	}
	mockBookings.On("Create", mock.Anything, mock.MatchedBy(func(in booking.CreateInput) bool {
		return in.CafeID == cafeID &&
			in.TableID == tableID &&
			in.CustomerID == customerID &&
			in.StartsAt.Equal(startsAt) &&
			in.Guests == 2
	})).Return(created, nil).Once()

	body, err := json.Marshal(handler.CreateBookingRequest{
		CafeID:         cafeID.String(),
		TableID:        tableID.String(),
		StartsAt:       startsAt.Format(time.RFC3339),
		NumberOfGuests: 2,
	})
	require.NoError(t, err)

	req := asCustomer(httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBuffer(body)), customerID)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var got booking.Booking
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, created.BookingRef, got.BookingRef)
	mockBookings.AssertExpectations(t)
}

func TestCustomerHandler_CreateBooking_TableTaken(t *testing.T) {
	mockBookings := new(MockBookingService)
	router := customerRouter(new(MockOrderService), mockBookings)

	mockBookings.On("Create", mock.Anything, mock.Anything).
		Return(nil, booking.ErrTableUnavailable).Once()

	body, err := json.Marshal(handler.CreateBookingRequest{
		CafeID:         uuid.Must(uuid.NewV4()).String(),
		TableID:        uuid.Must(uuid.NewV4()).String(),
		StartsAt:       time.Now().Add(time.Hour).Format(time.RFC3339),
		NumberOfGuests: 2,
	})
	require.NoError(t, err)

	req := asCustomer(httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBuffer(body)), uuid.Must(uuid.NewV4()))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
	var resp errorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "CONFLICT", resp.Kind)
}

func TestCustomerHandler_CreateBooking_BadWindow(t *testing.T) {
	router := customerRouter(new(MockOrderService), new(MockBookingService))

	startsAt := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	body, err := json.Marshal(handler.CreateBookingRequest{
		CafeID:         uuid.Must(uuid.NewV4()).String(),
		TableID:        uuid.Must(uuid.NewV4()).String(),
		StartsAt:       startsAt.Format(time.RFC3339),
		EndsAt:         startsAt.Add(-time.Hour).Format(time.RFC3339),
		NumberOfGuests: 2,
	})
	require.NoError(t, err)

	req := asCustomer(httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBuffer(body)), uuid.Must(uuid.NewV4()))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}
