package reservations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"courtbook/internal/booking"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

var (
	setupOnce sync.Once
	testClock = &mockClock{now: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
)

// setup initializes the shared handler scheduler once; tests use distinct
// courts and users to stay independent.
func setup(t *testing.T) *booking.Scheduler {
	t.Helper()
	setupOnce.Do(func() {
		s, err := booking.New(context.Background(), booking.Config{}, booking.Deps{Clock: testClock})
		if err != nil {
			t.Fatalf("new scheduler: %v", err)
		}
		InitHandlers(s)
	})
	return svc
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/reservations", HandleCreateReservation)
	mux.HandleFunc("GET /api/v1/reservations", HandleListReservations)
	mux.HandleFunc("GET /api/v1/reservations/{id}", HandleGetReservation)
	mux.HandleFunc("PUT /api/v1/reservations/{id}", HandleRescheduleReservation)
	mux.HandleFunc("DELETE /api/v1/reservations/{id}", HandleCancelReservation)
	return mux
}

func mustCreateCourt(t *testing.T, s *booking.Scheduler, capacity int) booking.Court {
	t.Helper()
	court, err := s.CreateCourt(context.Background(), booking.Court{
		Name:         fmt.Sprintf("Court %d", time.Now().UnixNano()),
		PricePerHour: 40,
		MaxAttendees: capacity,
	})
	if err != nil {
		t.Fatalf("create court: %v", err)
	}
	return court
}

func doJSON(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHandleCreateReservation(t *testing.T) {
	s := setup(t)
	mux := newMux()
	court := mustCreateCourt(t, s, 1)

	body := fmt.Sprintf(`{"user_id": 1, "court_id": %d, "start_time": "2026-06-01T12:00:00Z", "end_time": "2026-06-01T13:00:00Z"}`, court.ID)
	w := doJSON(mux, http.MethodPost, "/api/v1/reservations", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var result booking.CreateResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Waitlisted || result.Reservation == nil {
		t.Fatalf("expected confirmed reservation, got %+v", result)
	}
	if result.Reservation.Price != 40 {
		t.Errorf("expected price 40, got %v", result.Reservation.Price)
	}

	// Same window from another user hits capacity and is accepted onto the
	// waitlist instead.
	body = fmt.Sprintf(`{"user_id": 2, "court_id": %d, "start_time": "2026-06-01T12:00:00Z", "end_time": "2026-06-01T13:00:00Z"}`, court.ID)
	w = doJSON(mux, http.MethodPost, "/api/v1/reservations", body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Waitlisted || result.Position != 1 {
		t.Fatalf("expected waitlist position 1, got %+v", result)
	}
}

func TestHandleCreateReservation_BadRequests(t *testing.T) {
	s := setup(t)
	mux := newMux()
	court := mustCreateCourt(t, s, 2)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"user_id": `, http.StatusBadRequest},
		{"unknown field", `{"user": 1}`, http.StatusBadRequest},
		{"bad datetime", fmt.Sprintf(`{"user_id": 1, "court_id": %d, "start_time": "noon", "end_time": "later"}`, court.ID), http.StatusBadRequest},
		{"missing court", `{"user_id": 1, "court_id": 99999, "start_time": "2026-06-01T12:00:00Z", "end_time": "2026-06-01T13:00:00Z"}`, http.StatusNotFound},
		{"inverted interval", fmt.Sprintf(`{"user_id": 1, "court_id": %d, "start_time": "2026-06-01T13:00:00Z", "end_time": "2026-06-01T12:00:00Z"}`, court.ID), http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := doJSON(mux, http.MethodPost, "/api/v1/reservations", tc.body)
		if w.Code != tc.want {
			t.Errorf("%s: expected %d, got %d: %s", tc.name, tc.want, w.Code, w.Body.String())
		}
	}
}

func TestHandleCancelReservation(t *testing.T) {
	s := setup(t)
	mux := newMux()
	court := mustCreateCourt(t, s, 2)

	// 12:00 is four hours past the mock clock's 08:00, outside the notice
	// window, so cancellation is allowed.
	result, err := s.CreateBooking(context.Background(), 11, court.ID,
		time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 1, 13, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("booking: %v", err)
	}

	w := doJSON(mux, http.MethodDelete, fmt.Sprintf("/api/v1/reservations/%d", result.Reservation.ID), "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}

	// A second cancel conflicts.
	w = doJSON(mux, http.MethodDelete, fmt.Sprintf("/api/v1/reservations/%d", result.Reservation.ID), "")
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}

	// Inside the notice window the cancel is a policy violation.
	late, err := s.CreateBooking(context.Background(), 12, court.ID,
		time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 1, 11, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("booking: %v", err)
	}
	w = doJSON(mux, http.MethodDelete, fmt.Sprintf("/api/v1/reservations/%d", late.Reservation.ID), "")
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for late cancel, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(mux, http.MethodDelete, "/api/v1/reservations/99999", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	w = doJSON(mux, http.MethodDelete, "/api/v1/reservations/abc", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric id, got %d", w.Code)
	}
}

func TestHandleRescheduleReservation(t *testing.T) {
	s := setup(t)
	mux := newMux()
	court := mustCreateCourt(t, s, 1)

	result, err := s.CreateBooking(context.Background(), 21, court.ID,
		time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("booking: %v", err)
	}

	body := `{"start_time": "2026-06-01T16:00:00Z", "end_time": "2026-06-01T17:00:00Z"}`
	w := doJSON(mux, http.MethodPut, fmt.Sprintf("/api/v1/reservations/%d", result.Reservation.ID), body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated booking.Reservation
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !updated.StartTime.Equal(time.Date(2026, 6, 1, 16, 0, 0, 0, time.UTC)) {
		t.Errorf("reschedule did not move the window: %+v", updated)
	}

	// Misaligned start maps to 400.
	body = `{"start_time": "2026-06-01T16:10:00Z", "end_time": "2026-06-01T17:10:00Z"}`
	w = doJSON(mux, http.MethodPut, fmt.Sprintf("/api/v1/reservations/%d", result.Reservation.ID), body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleListAndGetReservations(t *testing.T) {
	s := setup(t)
	mux := newMux()
	court := mustCreateCourt(t, s, 2)

	result, err := s.CreateBooking(context.Background(), 31, court.ID,
		time.Date(2026, 6, 2, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 2, 13, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("booking: %v", err)
	}

	w := doJSON(mux, http.MethodGet, "/api/v1/reservations?user_id=31", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []booking.Reservation
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 1 || list[0].ID != result.Reservation.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	w = doJSON(mux, http.MethodGet, "/api/v1/reservations", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without user_id, got %d", w.Code)
	}

	w = doJSON(mux, http.MethodGet, fmt.Sprintf("/api/v1/reservations/%d", result.Reservation.ID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w = doJSON(mux, http.MethodGet, "/api/v1/reservations/99999", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
