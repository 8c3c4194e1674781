package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/brewco/cafe-service/internal/booking"
	"github.com/brewco/cafe-service/internal/cafe"
	"github.com/brewco/cafe-service/internal/config"
	"github.com/brewco/cafe-service/internal/dashboard"
	"github.com/brewco/cafe-service/internal/db"
	handler "github.com/brewco/cafe-service/internal/handler/http"
	"github.com/brewco/cafe-service/internal/menu"
	"github.com/brewco/cafe-service/internal/order"
	"github.com/brewco/cafe-service/internal/refgen"
	"github.com/brewco/cafe-service/internal/staff"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "cafe-service").Logger()

	log.Info().Msg("Cafe service starting...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if err := db.Migrate(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	dbConn, err := db.New(context.Background(), cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	cafeRepo := cafe.NewRepository(dbConn.Pool)
	menuRepo := menu.NewRepository(dbConn.Pool)
	staffRepo := staff.NewRepository(dbConn.Pool)
	bookingRepo := booking.NewRepository(dbConn.Pool)
	orderRepo := order.NewRepository(dbConn.Pool, bookingRepo)

	refs := refgen.New()
	bookingSvc := booking.NewService(bookingRepo, cafeRepo, refs)
	orderSvc := order.NewService(orderRepo, menuRepo, cafeRepo, staffRepo, refs)
	dashboardSvc := dashboard.NewService(orderRepo, bookingRepo, cafeRepo, staffRepo, menuRepo)

	router := handler.NewRouter(handler.Deps{
		Orders:    orderSvc,
		Bookings:  bookingSvc,
		Dashboard: dashboardSvc,
		Cafes:     cafeRepo,
		Staff:     staffRepo,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
