// internal/api/courts/handlers.go
package courts

import (
	"net/http"
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

type courtRequest struct {
	Name         string   `json:"name"`
	Location     string   `json:"location"`
	Indoor       bool     `json:"indoor"`
	PricePerHour float64  `json:"price_per_hour"`
	MaxAttendees int      `json:"max_attendees"`
	Description  string   `json:"description"`
	Features     []string `json:"features"`
	TimeSlots    []string `json:"time_slots"`
}

func (req courtRequest) toCourt(id int64) booking.Court {
	return booking.Court{
		ID:           id,
		Name:         req.Name,
		Location:     req.Location,
		Indoor:       req.Indoor,
		PricePerHour: req.PricePerHour,
		MaxAttendees: req.MaxAttendees,
		Description:  req.Description,
		Features:     req.Features,
		TimeSlots:    req.TimeSlots,
	}
}

// POST /api/v1/courts
func HandleCreateCourt(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	var req courtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := apiutil.RequireString("name", req.Name); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	court, err := svc.CreateCourt(r.Context(), req.toCourt(0))
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	logger.Info().Int64("court_id", court.ID).Str("name", court.Name).Msg("Court created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, court); err != nil {
		logger.Error().Err(err).Msg("Failed to write court response")
	}
}

// GET /api/v1/courts          (optional ?location= filter)
func HandleListCourts(w http.ResponseWriter, r *http.Request) {
	var (
		courts []booking.Court
		err    error
	)
	if location := r.URL.Query().Get("location"); location != "" {
		courts, err = svc.CourtsByLocation(r.Context(), location)
	} else {
		courts, err = svc.Courts(r.Context())
	}
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, courts); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write courts response")
	}
}

// GET /api/v1/courts/{id}
func HandleGetCourt(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	court, err := svc.Court(r.Context(), id)
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, court); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write court response")
	}
}

// PUT /api/v1/courts/{id}
func HandleUpdateCourt(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	id, err := apiutil.PathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req courtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	court, err := svc.UpdateCourt(r.Context(), req.toCourt(id))
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	logger.Info().Int64("court_id", court.ID).Msg("Court updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, court); err != nil {
		logger.Error().Err(err).Msg("Failed to write court response")
	}
}

// DELETE /api/v1/courts/{id}
func HandleDeleteCourt(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	id, err := apiutil.PathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := svc.DeleteCourt(r.Context(), id); err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	logger.Info().Int64("court_id", id).Msg("Court deleted")
	w.WriteHeader(http.StatusNoContent)
}

type slotRequest struct {
	Slot string `json:"slot"`
}

// POST /api/v1/courts/{id}/slots
func HandleAddTimeSlot(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req slotRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := svc.AddTimeSlot(r.Context(), id, req.Slot); err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	log.Ctx(r.Context()).Info().Int64("court_id", id).Str("slot", req.Slot).Msg("Time slot added")
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/courts/{id}/slots/{slot}
func HandleRemoveTimeSlot(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slot := r.PathValue("slot")

	if err := svc.RemoveTimeSlot(r.Context(), id, slot); err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	log.Ctx(r.Context()).Info().Int64("court_id", id).Str("slot", slot).Msg("Time slot removed")
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/courts/{id}/availability?date=YYYY-MM-DD
func HandleAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	date, err := apiutil.ParseDate("date", r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	slots, err := svc.DailyAvailability(r.Context(), id, date)
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, slots); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write availability response")
	}
}
