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
	"github.com/brewco/cafe-service/internal/cafe"
	"github.com/brewco/cafe-service/internal/dashboard"
	handler "github.com/brewco/cafe-service/internal/handler/http"
	"github.com/brewco/cafe-service/internal/order"
	"github.com/brewco/cafe-service/internal/staff"
)

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Stats(ctx context.Context, cafeID uuid.UUID) (*dashboard.Stats, error) {
	args := m.Called(ctx, cafeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dashboard.Stats), args.Error(1)
}

type MockCafeRepo struct {
	mock.Mock
}

func (m *MockCafeRepo) GetByID(ctx context.Context, id uuid.UUID) (*cafe.Cafe, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cafe.Cafe), args.Error(1)
}

func (m *MockCafeRepo) IsOwnedBy(ctx context.Context, cafeID, ownerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, cafeID, ownerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCafeRepo) GetTable(ctx context.Context, tableID uuid.UUID) (*cafe.Table, error) {
	args := m.Called(ctx, tableID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cafe.Table), args.Error(1)
}

func (m *MockCafeRepo) CountTables(ctx context.Context, cafeID uuid.UUID) (int, int, error) {
	args := m.Called(ctx, cafeID)
	return args.Int(0), args.Int(1), args.Error(2)
}

type MockStaffRepo struct {
	mock.Mock
}

func (m *MockStaffRepo) Create(ctx context.Context, a *staff.Assignment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockStaffRepo) Deactivate(ctx context.Context, cafeID, assignmentID uuid.UUID) error {
	return m.Called(ctx, cafeID, assignmentID).Error(0)
}

func (m *MockStaffRepo) ActiveForCafe(ctx context.Context, cafeID uuid.UUID) ([]staff.Assignment, error) {
	args := m.Called(ctx, cafeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]staff.Assignment), args.Error(1)
}

func (m *MockStaffRepo) ActiveByRole(ctx context.Context, cafeID uuid.UUID, role staff.Role) ([]staff.Assignment, error) {
	args := m.Called(ctx, cafeID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]staff.Assignment), args.Error(1)
}

func (m *MockStaffRepo) ActiveAssignmentForStaff(ctx context.Context, staffID uuid.UUID) (*staff.Assignment, error) {
	args := m.Called(ctx, staffID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*staff.Assignment), args.Error(1)
}

type ownerFixture struct {
	orders    *MockOrderService
	bookings  *MockBookingService
	dashboard *MockDashboardService
	cafes     *MockCafeRepo
	staff     *MockStaffRepo
	router    chi.Router
}

func newOwnerFixture() *ownerFixture {
	f := &ownerFixture{
		orders:    new(MockOrderService),
		bookings:  new(MockBookingService),
		dashboard: new(MockDashboardService),
		cafes:     new(MockCafeRepo),
		staff:     new(MockStaffRepo),
	}
	h := handler.NewOwnerHandler(f.orders, f.bookings, f.dashboard, f.cafes, f.staff)
	f.router = chi.NewRouter()
	f.router.Use(handler.RequireIdentity)
	h.RegisterRoutes(f.router)
	return f
}

func asRole(req *http.Request, userID uuid.UUID, role string) *http.Request {
	req.Header.Set("X-User-ID", userID.String())
	req.Header.Set("X-User-Role", role)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestOwnerHandler_Dashboard_Success(t *testing.T) {
	f := newOwnerFixture()
	ownerID := uuid.Must(uuid.NewV4())
	cafeID := uuid.Must(uuid.NewV4())

	f.cafes.On("IsOwnedBy", mock.Anything, cafeID, ownerID).Return(true, nil).Once()
	f.dashboard.On("Stats", mock.Anything, cafeID).
		Return(&dashboard.Stats{TotalOrders: 42, PendingOrders: 3, TotalRevenue: 9001.50}, nil).Once()

	req := asRole(httptest.NewRequest(http.MethodGet, "/cafes/"+cafeID.String()+"/dashboard", nil), ownerID, "CAFE_OWNER")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, float64(42), got["totalOrders"])
	assert.Equal(t, float64(3), got["pendingOrders"])
	assert.Equal(t, 9001.50, got["totalRevenue"])
}

func TestOwnerHandler_Dashboard_NotTheOwner(t *testing.T) {
	f := newOwnerFixture()
	ownerID := uuid.Must(uuid.NewV4())
	cafeID := uuid.Must(uuid.NewV4())

	f.cafes.On("IsOwnedBy", mock.Anything, cafeID, ownerID).Return(false, nil).Once()

	req := asRole(httptest.NewRequest(http.MethodGet, "/cafes/"+cafeID.String()+"/dashboard", nil), ownerID, "CAFE_OWNER")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
	f.dashboard.AssertNotCalled(t, "Stats", mock.Anything, mock.Anything)
}

// A chef reading the owner views is scoped to the cafe of their active
// assignment.
func TestOwnerHandler_StaffAccess_ScopedToAssignment(t *testing.T) {
	f := newOwnerFixture()
	chefID := uuid.Must(uuid.NewV4())
	cafeID := uuid.Must(uuid.NewV4())
	otherCafeID := uuid.Must(uuid.NewV4())

	f.staff.On("ActiveAssignmentForStaff", mock.Anything, chefID).
		Return(&staff.Assignment{CafeID: cafeID, StaffID: chefID, Role: staff.RoleChef, IsActive: true}, nil)
	f.orders.On("ListForCafe", mock.Anything, cafeID, []order.Status(nil)).
		Return([]order.Order{}, nil).Once()

	req := asRole(httptest.NewRequest(http.MethodGet, "/cafes/"+cafeID.String()+"/orders", nil), chefID, "CHEF")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	req = asRole(httptest.NewRequest(http.MethodGet, "/cafes/"+otherCafeID.String()+"/orders", nil), chefID, "CHEF")
	rr = httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestOwnerHandler_ListOrders_StatusFilter(t *testing.T) {
	f := newOwnerFixture()
	ownerID := uuid.Must(uuid.NewV4())
	cafeID := uuid.Must(uuid.NewV4())

	f.cafes.On("IsOwnedBy", mock.Anything, cafeID, ownerID).Return(true, nil).Once()
	f.orders.On("ListForCafe", mock.Anything, cafeID, []order.Status{order.StatusPlaced, order.StatusConfirmed}).
		Return([]order.Order{}, nil).Once()

	req := asRole(httptest.NewRequest(http.MethodGet,
		"/cafes/"+cafeID.String()+"/orders?status=PLACED,CONFIRMED", nil), ownerID, "CAFE_OWNER")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	f.orders.AssertExpectations(t)
}

// Confirming without a body is the common case: no staff named yet.
func TestOwnerHandler_ConfirmOrder_EmptyBody(t *testing.T) {
	f := newOwnerFixture()
	ownerID := uuid.Must(uuid.NewV4())
	cafeID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())

	f.cafes.On("IsOwnedBy", mock.Anything, cafeID, ownerID).Return(true, nil).Once()
	f.orders.On("Confirm", mock.Anything, cafeID, ownerID, orderID, (*uuid.UUID)(nil), (*uuid.UUID)(nil)).
		Return(&order.Order{ID: orderID, CafeID: cafeID, Status: order.StatusConfirmed}, nil).Once()

	req := asRole(httptest.NewRequest(http.MethodPut,
		"/cafes/"+cafeID.String()+"/orders/"+orderID.String()+"/confirm", nil), ownerID, "CAFE_OWNER")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got order.Order
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, order.StatusConfirmed, got.Status)
	f.orders.AssertExpectations(t)
}

func TestOwnerHandler_ConfirmOrder_WithWaiter(t *testing.T) {
	f := newOwnerFixture()
	ownerID := uuid.Must(uuid.NewV4())
	cafeID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())
	waiterID := uuid.Must(uuid.NewV4())

	f.cafes.On("IsOwnedBy", mock.Anything, cafeID, ownerID).Return(true, nil).Once()
	f.orders.On("Confirm", mock.Anything, cafeID, ownerID, orderID,
		mock.MatchedBy(func(id *uuid.UUID) bool { return id != nil && *id == waiterID }),
		(*uuid.UUID)(nil)).
		Return(&order.Order{ID: orderID, CafeID: cafeID, Status: order.StatusConfirmed, AssignedWaiterID: &waiterID}, nil).Once()

	body, err := json.Marshal(handler.ConfirmOrderRequest{WaiterID: waiterID.String()})
	require.NoError(t, err)

	req := asRole(httptest.NewRequest(http.MethodPut,
		"/cafes/"+cafeID.String()+"/orders/"+orderID.String()+"/confirm", bytes.NewBuffer(body)), ownerID, "CAFE_OWNER")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	f.orders.AssertExpectations(t)
}

func TestOwnerHandler_AssignStaff(t *testing.T) {
	f := newOwnerFixture()
	ownerID := uuid.Must(uuid.NewV4())
	cafeID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())
	waiterID := uuid.Must(uuid.NewV4())
	chefID := uuid.Must(uuid.NewV4())

	f.cafes.On("IsOwnedBy", mock.Anything, cafeID, ownerID).Return(true, nil).Once()
	f.orders.On("Confirm", mock.Anything, cafeID, ownerID, orderID,
		mock.MatchedBy(func(id *uuid.UUID) bool { return id != nil && *id == waiterID }),
		mock.MatchedBy(func(id *uuid.UUID) bool { return id != nil && *id == chefID })).
		Return(&order.Order{ID: orderID, CafeID: cafeID, Status: order.StatusConfirmed}, nil).Once()

	body, err := json.Marshal(handler.AssignStaffRequest{WaiterID: waiterID.String(), ChefID: chefID.String()})
	require.NoError(t, err)

	req := asRole(httptest.NewRequest(http.MethodPut,
		"/cafes/"+cafeID.String()+"/orders/"+orderID.String()+"/assign", bytes.NewBuffer(body)), ownerID, "CAFE_OWNER")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	f.orders.AssertExpectations(t)
}

// Order mutations through this gateway run as the owner actor, so a chef or
// waiter reading through it must not be able to confirm, assign, or cancel.
func TestOwnerHandler_OrderMutations_RefusedForStaff(t *testing.T) {
	tests := []struct {
		name string
		role string
		path string
	}{
		{name: "waiter cannot confirm", role: "WAITER", path: "/confirm"},
		{name: "chef cannot cancel", role: "CHEF", path: "/cancel"},
		{name: "waiter cannot assign", role: "WAITER", path: "/assign"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOwnerFixture()
			staffID := uuid.Must(uuid.NewV4())
			cafeID := uuid.Must(uuid.NewV4())
			orderID := uuid.Must(uuid.NewV4())

			req := asRole(httptest.NewRequest(http.MethodPut,
				"/cafes/"+cafeID.String()+"/orders/"+orderID.String()+tt.path, nil), staffID, tt.role)
			rr := httptest.NewRecorder()
			f.router.ServeHTTP(rr, req)

			require.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())

			var got errorBody
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
			assert.Equal(t, "FORBIDDEN", got.Kind)

			f.orders.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.orders.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// Staff management is the owner's alone even though staff can read through
// this gateway.
func TestOwnerHandler_AddStaff_RefusedForStaff(t *testing.T) {
	f := newOwnerFixture()
	waiterID := uuid.Must(uuid.NewV4())
	cafeID := uuid.Must(uuid.NewV4())

	f.staff.On("ActiveAssignmentForStaff", mock.Anything, waiterID).
		Return(&staff.Assignment{CafeID: cafeID, StaffID: waiterID, Role: staff.RoleWaiter, IsActive: true}, nil).Once()

	body, err := json.Marshal(handler.AddStaffRequest{StaffID: uuid.Must(uuid.NewV4()).String(), Role: "CHEF"})
	require.NoError(t, err)

	req := asRole(httptest.NewRequest(http.MethodPost,
		"/cafes/"+cafeID.String()+"/staff", bytes.NewBuffer(body)), waiterID, "WAITER")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
	f.staff.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOwnerHandler_AddStaff_Success(t *testing.T) {
	f := newOwnerFixture()
	ownerID := uuid.Must(uuid.NewV4())
	cafeID := uuid.Must(uuid.NewV4())
	staffID := uuid.Must(uuid.NewV4())

	f.cafes.On("IsOwnedBy", mock.Anything, cafeID, ownerID).Return(true, nil).Once()
	f.staff.On("Create", mock.Anything, mock.MatchedBy(func(a *staff.Assignment) bool {
		return a.CafeID == cafeID && a.StaffID == staffID && a.Role == staff.RoleChef && a.AssignedBy == ownerID
	})).Return(nil).Once()

	body, err := json.Marshal(handler.AddStaffRequest{StaffID: staffID.String(), Role: "CHEF"})
	require.NoError(t, err)

	req := asRole(httptest.NewRequest(http.MethodPost,
		"/cafes/"+cafeID.String()+"/staff", bytes.NewBuffer(body)), ownerID, "CAFE_OWNER")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	f.staff.AssertExpectations(t)
}

func TestOwnerHandler_RemoveStaff_NotFound(t *testing.T) {
	f := newOwnerFixture()
	ownerID := uuid.Must(uuid.NewV4())
	cafeID := uuid.Must(uuid.NewV4())
	assignmentID := uuid.Must(uuid.NewV4())

	f.cafes.On("IsOwnedBy", mock.Anything, cafeID, ownerID).Return(true, nil).Once()
	f.staff.On("Deactivate", mock.Anything, cafeID, assignmentID).Return(staff.ErrNotFound).Once()

	req := asRole(httptest.NewRequest(http.MethodDelete,
		"/cafes/"+cafeID.String()+"/staff/"+assignmentID.String(), nil), ownerID, "CAFE_OWNER")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOwnerHandler_ListBookings(t *testing.T) {
	f := newOwnerFixture()
	ownerID := uuid.Must(uuid.NewV4())
	cafeID := uuid.Must(uuid.NewV4())

	f.cafes.On("IsOwnedBy", mock.Anything, cafeID, ownerID).Return(true, nil).Once()
	f.bookings.On("ListForCafe", mock.Anything, cafeID).
		Return([]booking.Booking{{BookingRef: "BKG-20260829-1001", CafeID: cafeID, StartsAt: time.Now()}}, nil).Once()

	req := asRole(httptest.NewRequest(http.MethodGet, "/cafes/"+cafeID.String()+"/bookings", nil), ownerID, "CAFE_OWNER")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got []booking.Booking
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "BKG-20260829-1001", got[0].BookingRef)
}
