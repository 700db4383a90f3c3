// Package booking holds the court catalog, the reservation store, the
// waitlist engine and the scheduler facade that ties them together. All
// shared state is owned by a Scheduler instance and serialized through its
// gate; none of the container types in this package are safe for direct
// concurrent use.
package booking

import "time"

const (
	// DefaultMaxAttendees is applied when a court is created without a
	// usable capacity.
	DefaultMaxAttendees = 2

	// Waitlist priority tiers.
	PriorityVIP    = 100
	PriorityMember = 50
	PriorityGuest  = 10
)

// Court is a bookable, time-slotted asset with a fixed occupancy capacity.
type Court struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Location     string   `json:"location"`
	Indoor       bool     `json:"indoor"`
	PricePerHour float64  `json:"price_per_hour"`
	MaxAttendees int      `json:"max_attendees"`
	Description  string   `json:"description,omitempty"`
	Features     []string `json:"features,omitempty"`
	TimeSlots    []string `json:"time_slots"` // "HH:MM", ascending
}

// Reservation is a confirmed occupancy of a court for a time interval.
// Price and VIP are captured at creation time and never re-derived.
type Reservation struct {
	ID           int64     `json:"id"`
	CourtID      int64     `json:"court_id"`
	UserID       int64     `json:"user_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Price        float64   `json:"price"`
	VIP          bool      `json:"vip"`
	Cancelled    bool      `json:"cancelled"`
	FromWaitlist bool      `json:"from_waitlist"`
}

// WaitlistEntry is a pending request for a court that could not be
// confirmed immediately.
type WaitlistEntry struct {
	UserID        int64     `json:"user_id"`
	CourtID       int64     `json:"court_id"`
	RequestedTime time.Time `json:"requested_time"`
	VIP           bool      `json:"vip"`
	Priority      int       `json:"priority"`
}

// Snapshot is the full persisted state of the scheduler.
type Snapshot struct {
	Courts       []Court
	Reservations []Reservation
	Waitlist     []WaitlistEntry
}

// DefaultTimeSlots returns the canonical hourly slots, 09:00 through 21:00.
func DefaultTimeSlots() []string {
	slots := make([]string, 0, 13)
	for h := 9; h <= 21; h++ {
		slots = append(slots, timeSlotString(h, 0))
	}
	return slots
}

func timeSlotString(hour, minute int) string {
	return time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC).Format("15:04")
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// overlaps reports whether [aStart, aEnd] and [bStart, bEnd] intersect.
// Boundaries are inclusive, so back-to-back intervals sharing an instant
// count as overlapping.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}
