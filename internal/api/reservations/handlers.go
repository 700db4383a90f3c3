// internal/api/reservations/handlers.go
package reservations

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"courtbook/internal/api/apiutil"
	"courtbook/internal/booking"
)

var (
	svc     *booking.Scheduler
	svcOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s *booking.Scheduler) {
	if s == nil {
		return
	}
	svcOnce.Do(func() {
		svc = s
	})
}

type createRequest struct {
	UserID    int64  `json:"user_id"`
	CourtID   int64  `json:"court_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// POST /api/v1/reservations
//
// A capacity miss is not an error: the request is enqueued on the court's
// waitlist and the response carries waitlisted=true with a 202 status.
func HandleCreateReservation(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	var req createRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start, err := apiutil.ParseDatetime("start_time", req.StartTime)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := apiutil.ParseDatetime("end_time", req.EndTime)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := svc.CreateBooking(r.Context(), req.UserID, req.CourtID, start, end)
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Waitlisted {
		status = http.StatusAccepted
		logger.Info().
			Int64("user_id", req.UserID).
			Int64("court_id", req.CourtID).
			Int("position", result.Position).
			Msg("Booking waitlisted")
	} else {
		logger.Info().
			Int64("reservation_id", result.Reservation.ID).
			Int64("user_id", req.UserID).
			Int64("court_id", req.CourtID).
			Msg("Reservation created")
	}

	if err := apiutil.WriteJSON(w, status, result); err != nil {
		logger.Error().Err(err).Msg("Failed to write reservation response")
	}
}

// GET /api/v1/reservations?user_id=
func HandleListReservations(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "user_id must be a positive integer", http.StatusBadRequest)
		return
	}

	reservations, err := svc.ReservationsByUser(r.Context(), userID)
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, reservations); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write reservations response")
	}
}

// GET /api/v1/reservations/{id}
func HandleGetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := svc.Reservation(r.Context(), id)
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, res); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write reservation response")
	}
}

type rescheduleRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// PUT /api/v1/reservations/{id}
func HandleRescheduleReservation(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	id, err := apiutil.PathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req rescheduleRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start, err := apiutil.ParseDatetime("start_time", req.StartTime)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := apiutil.ParseDatetime("end_time", req.EndTime)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := svc.RescheduleBooking(r.Context(), id, start, end)
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	logger.Info().Int64("reservation_id", id).Msg("Reservation rescheduled")
	if err := apiutil.WriteJSON(w, http.StatusOK, res); err != nil {
		logger.Error().Err(err).Msg("Failed to write reservation response")
	}
}

// DELETE /api/v1/reservations/{id}
func HandleCancelReservation(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	id, err := apiutil.PathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := svc.CancelBooking(r.Context(), id); err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	logger.Info().Int64("reservation_id", id).Msg("Reservation cancelled")
	w.WriteHeader(http.StatusNoContent)
}
