// internal/api/waitlist/handlers.go
package waitlist

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

func queryID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apiutil.FieldError{Field: name, Reason: "must be a positive integer"}
	}
	return id, nil
}

type positionResponse struct {
	UserID   int64 `json:"user_id"`
	CourtID  int64 `json:"court_id"`
	Position int   `json:"position"`
}

// GET /api/v1/waitlist/position?user_id=&court_id=
//
// Position is 1-based; -1 means the user is not on the court's waitlist.
func HandlePosition(w http.ResponseWriter, r *http.Request) {
	userID, err := queryID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	courtID, err := queryID(r, "court_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	position, err := svc.WaitlistPosition(r.Context(), userID, courtID)
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	resp := positionResponse{UserID: userID, CourtID: courtID, Position: position}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write position response")
	}
}

// GET /api/v1/waitlist?court_id=
func HandleEntries(w http.ResponseWriter, r *http.Request) {
	courtID, err := queryID(r, "court_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := svc.WaitlistEntries(r.Context(), courtID)
	if err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, entries); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write waitlist response")
	}
}

// DELETE /api/v1/waitlist?user_id=&court_id=
func HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	userID, err := queryID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	courtID, err := queryID(r, "court_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := svc.WithdrawFromWaitlist(r.Context(), userID, courtID); err != nil {
		apiutil.WriteBookingError(w, r, err)
		return
	}

	logger.Info().Int64("user_id", userID).Int64("court_id", courtID).Msg("Waitlist entry withdrawn")
	w.WriteHeader(http.StatusNoContent)
}
