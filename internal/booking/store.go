package booking

import (
	"sort"
	"time"
)

// resStore owns reservations. Mutated only while the scheduler's gate is
// held.
type resStore struct {
	reservations map[int64]*Reservation
}

func newResStore() *resStore {
	return &resStore{reservations: make(map[int64]*Reservation)}
}

func (s *resStore) load(reservations []Reservation) {
	for i := range reservations {
		r := reservations[i]
		s.reservations[r.ID] = &r
	}
}

func (s *resStore) nextID() int64 {
	var max int64
	for id := range s.reservations {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func (s *resStore) get(id int64) (Reservation, bool) {
	r, ok := s.reservations[id]
	if !ok {
		return Reservation{}, false
	}
	return *r, true
}

func (s *resStore) add(r Reservation) {
	stored := r
	s.reservations[r.ID] = &stored
}

func (s *resStore) remove(id int64) {
	delete(s.reservations, id)
}

func (s *resStore) setCancelled(id int64, cancelled bool) {
	if r, ok := s.reservations[id]; ok {
		r.Cancelled = cancelled
	}
}

func (s *resStore) setTimes(id int64, start, end time.Time) {
	if r, ok := s.reservations[id]; ok {
		r.StartTime = start
		r.EndTime = end
	}
}

// overlapCount counts non-cancelled reservations on the court whose
// interval intersects [start, end]. excludeID skips one reservation (used
// by reschedule to ignore itself); pass 0 to count all.
func (s *resStore) overlapCount(courtID int64, start, end time.Time, excludeID int64) int {
	count := 0
	for _, r := range s.reservations {
		if r.CourtID != courtID || r.Cancelled || r.ID == excludeID {
			continue
		}
		if overlaps(start, end, r.StartTime, r.EndTime) {
			count++
		}
	}
	return count
}

// userOverlaps reports whether the user already holds a non-cancelled
// reservation on the court intersecting [start, end].
func (s *resStore) userOverlaps(userID, courtID int64, start, end time.Time) bool {
	for _, r := range s.reservations {
		if r.CourtID != courtID || r.UserID != userID || r.Cancelled {
			continue
		}
		if overlaps(start, end, r.StartTime, r.EndTime) {
			return true
		}
	}
	return false
}

// hasActiveOnDate reports whether the user holds a non-cancelled
// reservation on the court starting on the given calendar date.
func (s *resStore) hasActiveOnDate(userID, courtID int64, date time.Time) bool {
	for _, r := range s.reservations {
		if r.CourtID != courtID || r.UserID != userID || r.Cancelled {
			continue
		}
		if sameDate(r.StartTime, date) {
			return true
		}
	}
	return false
}

// hasActiveForCourt reports whether any non-cancelled reservation
// references the court. Court deletion is refused while this holds.
func (s *resStore) hasActiveForCourt(courtID int64) bool {
	for _, r := range s.reservations {
		if r.CourtID == courtID && !r.Cancelled {
			return true
		}
	}
	return false
}

// occupiesSlot reports whether any non-cancelled reservation on the court
// covers the canonical slot time on its own date.
func (s *resStore) occupiesSlot(courtID int64, slot string, duration time.Duration) bool {
	for _, r := range s.reservations {
		if r.CourtID != courtID || r.Cancelled {
			continue
		}
		start, end, err := slotWindow(r.StartTime, slot, duration)
		if err != nil {
			return false
		}
		if overlaps(start, end, r.StartTime, r.EndTime) {
			return true
		}
	}
	return false
}

func (s *resStore) byUser(userID int64) []Reservation {
	var out []Reservation
	for _, r := range s.reservations {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *resStore) snapshot() []Reservation {
	out := make([]Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
