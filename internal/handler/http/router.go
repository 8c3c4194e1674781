package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brewco/cafe-service/internal/booking"
	"github.com/brewco/cafe-service/internal/cafe"
	"github.com/brewco/cafe-service/internal/dashboard"
	"github.com/brewco/cafe-service/internal/order"
	"github.com/brewco/cafe-service/internal/staff"
)

type Deps struct {
	Orders    order.Service
	Bookings  booking.Service
	Dashboard dashboard.Service
	Cafes     cafe.Repository
	Staff     staff.Repository
}

func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	customer := NewCustomerHandler(deps.Orders, deps.Bookings)
	owner := NewOwnerHandler(deps.Orders, deps.Bookings, deps.Dashboard, deps.Cafes, deps.Staff)
	waiter := NewWaiterHandler(deps.Orders, deps.Staff)
	chef := NewChefHandler(deps.Orders, deps.Staff)

	r.Route("/api", func(api chi.Router) {
		api.Use(RequireIdentity)

		api.Route("/customer", func(sub chi.Router) {
			sub.Use(RequireRole(RoleCustomer))
			customer.RegisterRoutes(sub)
		})
		// Staff read through the owner views for their own cafe; writes are
		// re-checked per handler.
		api.Route("/cafe-owner", func(sub chi.Router) {
			sub.Use(RequireRole(RoleOwner, RoleChef, RoleWaiter))
			owner.RegisterRoutes(sub)
		})
		api.Route("/waiter", func(sub chi.Router) {
			sub.Use(RequireRole(RoleWaiter))
			waiter.RegisterRoutes(sub)
		})
		api.Route("/chef", func(sub chi.Router) {
			sub.Use(RequireRole(RoleChef))
			chef.RegisterRoutes(sub)
		})
	})

	return r
}
