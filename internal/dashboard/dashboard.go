// Package dashboard derives the owner's overview numbers from live store
// snapshots. Nothing here is cached or incremented: every request recomputes
// from the source tables, so the numbers cannot drift from the orders they
// summarize.
package dashboard

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brewco/cafe-service/internal/booking"
	"github.com/brewco/cafe-service/internal/cafe"
	"github.com/brewco/cafe-service/internal/menu"
	"github.com/brewco/cafe-service/internal/order"
	"github.com/brewco/cafe-service/internal/staff"
)

// Stats mirrors the owner dashboard payload. preparingOrders folds
// SENT_TO_KITCHEN and PREPARING together: for the owner both mean "the
// kitchen has it".
type Stats struct {
	TotalOrders     int     `json:"totalOrders"`
	PendingOrders   int     `json:"pendingOrders"`
	ConfirmedOrders int     `json:"confirmedOrders"`
	PreparingOrders int     `json:"preparingOrders"`
	ReadyOrders     int     `json:"readyOrders"`
	DeliveredOrders int     `json:"deliveredOrders"`
	TotalRevenue    float64 `json:"totalRevenue"`
	TodayRevenue    float64 `json:"todayRevenue"`
	TodayOrders     int     `json:"todayOrders"`
	TotalBookings   int     `json:"totalBookings"`
	TotalTables     int     `json:"totalTables"`
	AvailableTables int     `json:"availableTables"`
	TotalStaff      int     `json:"totalStaff"`
	TotalChefs      int     `json:"totalChefs"`
	TotalWaiters    int     `json:"totalWaiters"`
	TotalMenuItems  int     `json:"totalMenuItems"`
}

type Service interface {
	Stats(ctx context.Context, cafeID uuid.UUID) (*Stats, error)
}

type service struct {
	orders   order.Repository
	bookings booking.Repository
	cafes    cafe.Repository
	staff    staff.Repository
	menus    menu.Repository
	now      func() time.Time
}

func NewService(orders order.Repository, bookings booking.Repository, cafes cafe.Repository, staffRepo staff.Repository, menus menu.Repository) Service {
	return &service{
		orders:   orders,
		bookings: bookings,
		cafes:    cafes,
		staff:    staffRepo,
		menus:    menus,
		now:      time.Now,
	}
}

func (s *service) Stats(ctx context.Context, cafeID uuid.UUID) (*Stats, error) {
	counts, err := s.orders.CountByStatus(ctx, cafeID)
	if err != nil {
		return nil, err
	}
	revenue, err := s.orders.RevenueStats(ctx, cafeID, s.now())
	if err != nil {
		return nil, err
	}
	totalBookings, err := s.bookings.CountForCafe(ctx, cafeID)
	if err != nil {
		return nil, err
	}
	totalTables, availableTables, err := s.cafes.CountTables(ctx, cafeID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.staff.ActiveForCafe(ctx, cafeID)
	if err != nil {
		return nil, err
	}
	menuItems, err := s.menus.CountForCafe(ctx, cafeID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalOrders:     revenue.TotalOrders,
		PendingOrders:   counts[order.StatusPlaced],
		ConfirmedOrders: counts[order.StatusConfirmed],
		PreparingOrders: counts[order.StatusSentToKitchen] + counts[order.StatusPreparing],
		ReadyOrders:     counts[order.StatusReady],
		DeliveredOrders: counts[order.StatusDelivered],
		TotalRevenue:    revenue.TotalRevenue,
		TodayRevenue:    revenue.TodayRevenue,
		TodayOrders:     revenue.TodayOrders,
		TotalBookings:   totalBookings,
		TotalTables:     totalTables,
		AvailableTables: availableTables,
		TotalMenuItems:  menuItems,
	}
	for _, a := range assignments {
		stats.TotalStaff++
		switch a.Role {
		case staff.RoleChef:
			stats.TotalChefs++
		case staff.RoleWaiter:
			stats.TotalWaiters++
		}
	}

	log.Debug().Stringer("cafe_id", cafeID).Int("total_orders", stats.TotalOrders).
		Msg("dashboard: stats recomputed")
	return stats, nil
}
