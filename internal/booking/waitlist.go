package booking

import (
	"sort"
	"time"
)

// waitlists maps court id to an insertion-ordered queue of entries. Queues
// are created lazily on first enqueue and dropped when they empty out.
// Mutated only while the scheduler's gate is held.
type waitlists struct {
	byCourt map[int64][]WaitlistEntry
}

func newWaitlists() *waitlists {
	return &waitlists{byCourt: make(map[int64][]WaitlistEntry)}
}

func (w *waitlists) load(entries []WaitlistEntry) {
	for _, e := range entries {
		w.byCourt[e.CourtID] = append(w.byCourt[e.CourtID], e)
	}
}

func (w *waitlists) enqueue(e WaitlistEntry) {
	w.byCourt[e.CourtID] = append(w.byCourt[e.CourtID], e)
}

// ranked returns the court's queue ordered for promotion and position
// reporting: VIP entries first, then higher priority score; ties keep
// their enqueue order.
func (w *waitlists) ranked(courtID int64) []WaitlistEntry {
	queue := w.byCourt[courtID]
	out := append([]WaitlistEntry(nil), queue...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].VIP != out[j].VIP {
			return out[i].VIP
		}
		return out[i].Priority > out[j].Priority
	})
	return out
}

// position returns the user's 1-based rank on the court's waitlist, or -1
// when the user or the court is absent.
func (w *waitlists) position(userID, courtID int64) int {
	queue, ok := w.byCourt[courtID]
	if !ok || len(queue) == 0 {
		return -1
	}
	for i, e := range w.ranked(courtID) {
		if e.UserID == userID {
			return i + 1
		}
	}
	return -1
}

// remove drops every entry for the user on the court and reports how many
// were removed.
func (w *waitlists) remove(userID, courtID int64) int {
	queue, ok := w.byCourt[courtID]
	if !ok {
		return 0
	}
	kept := queue[:0]
	removed := 0
	for _, e := range queue {
		if e.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == 0 {
		delete(w.byCourt, courtID)
	} else {
		w.byCourt[courtID] = kept
	}
	return removed
}

// removeEntry drops the first entry matching user, court and requested
// time. Used after a promotion so duplicate enqueues survive.
func (w *waitlists) removeEntry(userID, courtID int64, requested time.Time) bool {
	queue, ok := w.byCourt[courtID]
	if !ok {
		return false
	}
	for i, e := range queue {
		if e.UserID == userID && e.RequestedTime.Equal(requested) {
			queue = append(queue[:i], queue[i+1:]...)
			if len(queue) == 0 {
				delete(w.byCourt, courtID)
			} else {
				w.byCourt[courtID] = queue
			}
			return true
		}
	}
	return false
}

// restore puts a previously captured queue back, used to undo a removal
// when the persistence write fails.
func (w *waitlists) restore(courtID int64, queue []WaitlistEntry) {
	if len(queue) == 0 {
		delete(w.byCourt, courtID)
		return
	}
	w.byCourt[courtID] = queue
}

func (w *waitlists) entries(courtID int64) []WaitlistEntry {
	return append([]WaitlistEntry(nil), w.byCourt[courtID]...)
}

func (w *waitlists) courts() []int64 {
	out := make([]int64, 0, len(w.byCourt))
	for id := range w.byCourt {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// snapshot flattens all queues in court order, preserving per-court
// insertion order so a reload reproduces the same queues.
func (w *waitlists) snapshot() []WaitlistEntry {
	var out []WaitlistEntry
	for _, courtID := range w.courts() {
		out = append(out, w.byCourt[courtID]...)
	}
	return out
}
