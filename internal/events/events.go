// Package events carries one-way notifications out of the booking core.
package events

import (
	"time"

	"github.com/rs/zerolog/log"
)

type Type string

const (
	CourtAdded             Type = "court_added"
	CourtUpdated           Type = "court_updated"
	CourtDeleted           Type = "court_deleted"
	BookingCreated         Type = "booking_created"
	BookingCancelled       Type = "booking_cancelled"
	BookingRescheduled     Type = "booking_rescheduled"
	WaitlistUpdated        Type = "waitlist_updated"
	WaitlistPosition       Type = "waitlist_position_changed"
	WaitlistBookingCreated Type = "waitlist_booking_created"
	VIPStatusChanged       Type = "vip_status_changed"
)

// Event is a flat notification record. Fields that do not apply to a given
// type are left at their zero value and omitted from JSON.
type Event struct {
	Type          Type      `json:"type"`
	OccurredAt    time.Time `json:"occurred_at"`
	CourtID       int64     `json:"court_id,omitempty"`
	UserID        int64     `json:"user_id,omitempty"`
	MemberID      int64     `json:"member_id,omitempty"`
	ReservationID int64     `json:"reservation_id,omitempty"`
	Position      int       `json:"position,omitempty"`
	StartTime     time.Time `json:"start_time,omitzero"`
	EndTime       time.Time `json:"end_time,omitzero"`
	VIP           bool      `json:"vip,omitempty"`
}

// Sink receives events. Implementations must not call back into the
// scheduler; delivery happens after the scheduler's gate is released.
type Sink interface {
	Notify(Event)
}

// LogSink writes every event to the global zerolog logger.
type LogSink struct{}

func (LogSink) Notify(e Event) {
	log.Info().
		Str("event", string(e.Type)).
		Int64("court_id", e.CourtID).
		Int64("user_id", e.UserID).
		Int64("reservation_id", e.ReservationID).
		Msg("Notification")
}

// Multi fans an event out to several sinks in order.
type Multi []Sink

func (m Multi) Notify(e Event) {
	for _, s := range m {
		s.Notify(e)
	}
}
