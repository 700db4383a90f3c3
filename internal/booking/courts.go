package booking

import (
	"context"
	"fmt"

	"courtbook/internal/events"
)

// CreateCourt registers a new court. The candidate must not carry an
// identifier; one is assigned.
func (s *Scheduler) CreateCourt(ctx context.Context, court Court) (Court, error) {
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return Court{}, err
	}

	created, evts, err := s.createCourtLocked(ctx, court)
	s.gate.release()
	s.notify(evts)
	return created, err
}

func (s *Scheduler) createCourtLocked(ctx context.Context, court Court) (Court, []events.Event, error) {
	created, err := s.courts.create(court)
	if err != nil {
		return Court{}, nil, err
	}
	if err := s.persist(ctx); err != nil {
		s.courts.delete(created.ID)
		return Court{}, nil, err
	}
	return created, []events.Event{{Type: events.CourtAdded, CourtID: created.ID}}, nil
}

// UpdateCourt replaces a court definition.
func (s *Scheduler) UpdateCourt(ctx context.Context, court Court) (Court, error) {
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return Court{}, err
	}

	updated, evts, err := s.updateCourtLocked(ctx, court)
	s.gate.release()
	s.notify(evts)
	return updated, err
}

func (s *Scheduler) updateCourtLocked(ctx context.Context, court Court) (Court, []events.Event, error) {
	previous, ok := s.courts.get(court.ID)
	if !ok {
		return Court{}, nil, fmt.Errorf("%w: court %d", ErrNotFound, court.ID)
	}
	if err := s.courts.update(court); err != nil {
		return Court{}, nil, err
	}
	if err := s.persist(ctx); err != nil {
		s.courts.update(previous)
		return Court{}, nil, err
	}
	updated, _ := s.courts.get(court.ID)
	return updated, []events.Event{{Type: events.CourtUpdated, CourtID: court.ID}}, nil
}

// DeleteCourt removes a court. Refused while any non-cancelled reservation
// references it.
func (s *Scheduler) DeleteCourt(ctx context.Context, id int64) error {
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return err
	}

	evts, err := s.deleteCourtLocked(ctx, id)
	s.gate.release()
	s.notify(evts)
	return err
}

func (s *Scheduler) deleteCourtLocked(ctx context.Context, id int64) ([]events.Event, error) {
	previous, ok := s.courts.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: court %d", ErrNotFound, id)
	}
	if s.res.hasActiveForCourt(id) {
		return nil, fmt.Errorf("%w: court %d has active reservations", ErrConflict, id)
	}
	s.courts.delete(id)
	if err := s.persist(ctx); err != nil {
		s.courts.courts[previous.ID] = &previous
		return nil, err
	}
	return []events.Event{{Type: events.CourtDeleted, CourtID: id}}, nil
}

// Court looks up a court by id.
func (s *Scheduler) Court(ctx context.Context, id int64) (Court, error) {
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return Court{}, err
	}
	defer s.gate.release()

	court, ok := s.courts.get(id)
	if !ok {
		return Court{}, fmt.Errorf("%w: court %d", ErrNotFound, id)
	}
	return court, nil
}

// Courts copies out all courts ordered by id.
func (s *Scheduler) Courts(ctx context.Context) ([]Court, error) {
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return nil, err
	}
	defer s.gate.release()
	return s.courts.list(), nil
}

// CourtsByLocation filters courts by their location tag.
func (s *Scheduler) CourtsByLocation(ctx context.Context, location string) ([]Court, error) {
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return nil, err
	}
	defer s.gate.release()
	return s.courts.byLocation(location), nil
}

// AddTimeSlot adds a canonical "HH:MM" slot to the court. Duplicates are
// rejected.
func (s *Scheduler) AddTimeSlot(ctx context.Context, courtID int64, slot string) error {
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return err
	}

	evts, err := s.addSlotLocked(ctx, courtID, slot)
	s.gate.release()
	s.notify(evts)
	return err
}

func (s *Scheduler) addSlotLocked(ctx context.Context, courtID int64, slot string) ([]events.Event, error) {
	if err := s.courts.addSlot(courtID, slot); err != nil {
		return nil, err
	}
	if err := s.persist(ctx); err != nil {
		s.courts.removeSlot(courtID, slot)
		return nil, err
	}
	return []events.Event{{Type: events.CourtUpdated, CourtID: courtID}}, nil
}

// RemoveTimeSlot removes a canonical slot. Refused while any reservation
// occupies that slot on the court.
func (s *Scheduler) RemoveTimeSlot(ctx context.Context, courtID int64, slot string) error {
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return err
	}

	evts, err := s.removeSlotLocked(ctx, courtID, slot)
	s.gate.release()
	s.notify(evts)
	return err
}

func (s *Scheduler) removeSlotLocked(ctx context.Context, courtID int64, slot string) ([]events.Event, error) {
	if s.res.occupiesSlot(courtID, slot, s.cfg.SlotDuration) {
		return nil, fmt.Errorf("%w: slot %s on court %d has reservations", ErrConflict, slot, courtID)
	}
	if err := s.courts.removeSlot(courtID, slot); err != nil {
		return nil, err
	}
	if err := s.persist(ctx); err != nil {
		s.courts.addSlot(courtID, slot)
		return nil, err
	}
	return []events.Event{{Type: events.CourtUpdated, CourtID: courtID}}, nil
}
