// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"courtbook/internal/api"
	"courtbook/internal/api/courts"
	"courtbook/internal/api/reservations"
	"courtbook/internal/api/waitlist"
	"courtbook/internal/booking"
	"courtbook/internal/config"
)

func newServer(cfg *config.Config, bookings *booking.Scheduler) *http.Server {
	courts.InitHandlers(bookings)
	reservations.InitHandlers(bookings)
	waitlist.InitHandlers(bookings)

	router := http.NewServeMux()
	registerRoutes(router)

	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithMetrics,
	)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	// Court routes
	mux.HandleFunc("POST /api/v1/courts", courts.HandleCreateCourt)
	mux.HandleFunc("GET /api/v1/courts", courts.HandleListCourts)
	mux.HandleFunc("GET /api/v1/courts/{id}", courts.HandleGetCourt)
	mux.HandleFunc("PUT /api/v1/courts/{id}", courts.HandleUpdateCourt)
	mux.HandleFunc("DELETE /api/v1/courts/{id}", courts.HandleDeleteCourt)
	mux.HandleFunc("POST /api/v1/courts/{id}/slots", courts.HandleAddTimeSlot)
	mux.HandleFunc("DELETE /api/v1/courts/{id}/slots/{slot}", courts.HandleRemoveTimeSlot)
	mux.HandleFunc("GET /api/v1/courts/{id}/availability", courts.HandleAvailability)

	// Reservation routes
	mux.HandleFunc("POST /api/v1/reservations", reservations.HandleCreateReservation)
	mux.HandleFunc("GET /api/v1/reservations", reservations.HandleListReservations)
	mux.HandleFunc("GET /api/v1/reservations/{id}", reservations.HandleGetReservation)
	mux.HandleFunc("PUT /api/v1/reservations/{id}", reservations.HandleRescheduleReservation)
	mux.HandleFunc("DELETE /api/v1/reservations/{id}", reservations.HandleCancelReservation)

	// Waitlist routes
	mux.HandleFunc("GET /api/v1/waitlist", waitlist.HandleEntries)
	mux.HandleFunc("GET /api/v1/waitlist/position", waitlist.HandlePosition)
	mux.HandleFunc("DELETE /api/v1/waitlist", waitlist.HandleWithdraw)
}
