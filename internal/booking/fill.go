package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"courtbook/internal/events"
	"courtbook/internal/metrics"
)

// WaitlistPosition returns the requester's 1-based rank on the court's
// waitlist, or -1 when absent.
func (s *Scheduler) WaitlistPosition(ctx context.Context, userID, courtID int64) (int, error) {
	if userID <= 0 || courtID <= 0 {
		return -1, fmt.Errorf("%w: user and court identifiers must be positive", ErrInvalidInput)
	}
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return -1, err
	}
	defer s.gate.release()
	return s.wl.position(userID, courtID), nil
}

// WaitlistEntries returns the court's queue in rank order.
func (s *Scheduler) WaitlistEntries(ctx context.Context, courtID int64) ([]WaitlistEntry, error) {
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return nil, err
	}
	defer s.gate.release()
	return s.wl.ranked(courtID), nil
}

// WithdrawFromWaitlist removes every entry the user holds on the court.
func (s *Scheduler) WithdrawFromWaitlist(ctx context.Context, userID, courtID int64) error {
	if userID <= 0 || courtID <= 0 {
		return fmt.Errorf("%w: user and court identifiers must be positive", ErrInvalidInput)
	}
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return err
	}

	evts, err := s.withdrawLocked(ctx, userID, courtID)
	s.gate.release()
	s.notify(evts)
	return err
}

func (s *Scheduler) withdrawLocked(ctx context.Context, userID, courtID int64) ([]events.Event, error) {
	original := s.wl.entries(courtID)
	removed := s.wl.remove(userID, courtID)
	if removed == 0 {
		return nil, fmt.Errorf("%w: no waitlist entry for user %d on court %d", ErrNotFound, userID, courtID)
	}
	if err := s.persist(ctx); err != nil {
		s.wl.restore(courtID, original)
		return nil, err
	}

	evts := append(
		[]events.Event{{Type: events.WaitlistUpdated, CourtID: courtID}},
		s.positionEvents(courtID)...,
	)
	return evts, nil
}

// TryFillSlot offers a vacated interval to the waitlist: the queue is
// scanned in rank order for the first entry requesting the same date within
// the fill window whose requester is not already booked on that court that
// day, and that entry is promoted into a reservation. Reports whether a
// promotion happened.
func (s *Scheduler) TryFillSlot(ctx context.Context, courtID int64, start, end time.Time) (bool, error) {
	if err := validateInterval(start, end); err != nil {
		return false, err
	}
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return false, err
	}

	promoted, evts, err := s.fillLocked(ctx, courtID, start, end)
	s.gate.release()
	s.notify(evts)
	return promoted, err
}

func (s *Scheduler) fillLocked(ctx context.Context, courtID int64, start, end time.Time) (bool, []events.Event, error) {
	court, ok := s.courts.get(courtID)
	if !ok {
		return false, nil, fmt.Errorf("%w: court %d", ErrNotFound, courtID)
	}
	if s.res.overlapCount(courtID, start, end, 0) >= court.MaxAttendees {
		return false, nil, nil
	}

	for _, entry := range s.wl.ranked(courtID) {
		if !sameDate(entry.RequestedTime, start) {
			continue
		}
		if absDuration(entry.RequestedTime.Sub(start)) > s.cfg.FillWindow {
			continue
		}
		if s.res.hasActiveOnDate(entry.UserID, courtID, start) {
			continue
		}
		return s.promoteLocked(ctx, court, entry, start, end)
	}
	return false, nil, nil
}

// promoteLocked turns a waitlist entry into a reservation for the vacated
// window. VIP and pricing come from the entry's captured flag, not a fresh
// membership lookup.
func (s *Scheduler) promoteLocked(ctx context.Context, court Court, entry WaitlistEntry, start, end time.Time) (bool, []events.Event, error) {
	r := Reservation{
		ID:           s.res.nextID(),
		CourtID:      court.ID,
		UserID:       entry.UserID,
		StartTime:    start,
		EndTime:      end,
		Price:        price(court.PricePerHour, start, end, entry.VIP),
		VIP:          entry.VIP,
		FromWaitlist: true,
	}
	s.res.add(r)
	original := s.wl.entries(court.ID)
	s.wl.removeEntry(entry.UserID, court.ID, entry.RequestedTime)
	if err := s.persist(ctx); err != nil {
		s.res.remove(r.ID)
		s.wl.restore(court.ID, original)
		return false, nil, err
	}

	metrics.IncWaitlistPromoted()
	evts := []events.Event{
		{
			Type:          events.WaitlistBookingCreated,
			CourtID:       court.ID,
			UserID:        entry.UserID,
			ReservationID: r.ID,
			StartTime:     start,
			EndTime:       end,
			VIP:           entry.VIP,
		},
		{
			Type:          events.BookingCreated,
			CourtID:       court.ID,
			UserID:        entry.UserID,
			ReservationID: r.ID,
			StartTime:     start,
			EndTime:       end,
			VIP:           entry.VIP,
		},
		{Type: events.WaitlistUpdated, CourtID: court.ID},
	}
	evts = append(evts, s.positionEvents(court.ID)...)
	return true, evts, nil
}

// SweepOnce attempts promotions for every canonical slot on today and
// tomorrow that still has capacity. Run periodically by the background
// scheduler; a busy gate skips the cycle rather than queueing behind
// foreground work.
func (s *Scheduler) SweepOnce(ctx context.Context) {
	courts, err := s.Courts(ctx)
	if err != nil {
		if !errors.Is(err, ErrSystemBusy) {
			log.Warn().Err(err).Msg("Waitlist sweep could not list courts")
		}
		return
	}

	now := s.clock.Now()
	for _, court := range courts {
		for day := 0; day < 2; day++ {
			date := now.AddDate(0, 0, day)
			for _, slot := range court.TimeSlots {
				start, end, err := slotWindow(date, slot, s.cfg.SlotDuration)
				if err != nil || start.Before(now) {
					continue
				}
				promoted, err := s.TryFillSlot(ctx, court.ID, start, end)
				if err != nil {
					if errors.Is(err, ErrSystemBusy) {
						return
					}
					log.Warn().Err(err).Int64("court_id", court.ID).Str("slot", slot).Msg("Waitlist sweep promotion failed")
					continue
				}
				if promoted {
					log.Info().Int64("court_id", court.ID).Str("slot", slot).Time("start", start).Msg("Waitlist entry promoted by sweep")
				}
			}
		}
	}
}
