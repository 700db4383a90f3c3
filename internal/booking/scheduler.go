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

// MembershipResolver is the external membership collaborator. Its absence
// degrades priority and VIP determination to the lowest tier.
type MembershipResolver interface {
	IsMember(ctx context.Context, userID int64) (bool, error)
	MemberIDFor(ctx context.Context, userID int64) (int64, bool, error)
	VIPStatus(ctx context.Context, memberID int64) (bool, error)
}

// UserResolver is the external user collaborator.
type UserResolver interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}

// Store durably records the scheduler's state. Save is write-through: it is
// called inside the gate before the in-memory mutation is kept, so a failed
// write never leaves memory and disk in different states.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Config carries the business-rule knobs. Zero values are replaced with
// defaults by New.
type Config struct {
	GateWait      time.Duration // bounded wait for gate acquisition
	CancelNotice  time.Duration // minimum notice for cancel/reschedule
	SlotDuration  time.Duration // canonical booking length
	FillWindow    time.Duration // how far a waitlist request may drift from a vacated slot
	HorizonMonths int           // how far ahead a reschedule may land
}

func (c *Config) applyDefaults() {
	if c.GateWait <= 0 {
		c.GateWait = 150 * time.Millisecond
	}
	if c.CancelNotice <= 0 {
		c.CancelNotice = 3 * time.Hour
	}
	if c.SlotDuration <= 0 {
		c.SlotDuration = time.Hour
	}
	if c.FillWindow <= 0 {
		c.FillWindow = 3 * time.Hour
	}
	if c.HorizonMonths <= 0 {
		c.HorizonMonths = 3
	}
}

// Deps are the scheduler's collaborators. Store, Sink, Members and Users
// are all optional; a nil Store keeps state in memory only.
type Deps struct {
	Store   Store
	Sink    events.Sink
	Members MembershipResolver
	Users   UserResolver
	Clock   Clock
}

// Scheduler is the public contract of the booking system. It owns the
// catalog, the reservation store and the waitlists, and serializes every
// touch of them through a single bounded-wait gate. The gate is always
// released before events are delivered or a waitlist back-fill is
// attempted, so sinks and promotions can never deadlock against it; callers
// must not assume atomicity across that window.
type Scheduler struct {
	cfg     Config
	gate    *gate
	clock   Clock
	courts  *catalog
	res     *resStore
	wl      *waitlists
	store   Store
	sink    events.Sink
	members MembershipResolver
	users   UserResolver

	mutated bool           // a mutation was applied since the last save
	vipSeen map[int64]bool // last observed VIP flag per member id
}

// New builds a scheduler and, when a store is configured, loads its state.
// A load failure is tolerated: the scheduler starts empty and the error is
// returned alongside it for the caller to report.
func New(ctx context.Context, cfg Config, deps Deps) (*Scheduler, error) {
	cfg.applyDefaults()

	clock := deps.Clock
	if clock == nil {
		clock = realClock{}
	}

	s := &Scheduler{
		cfg:     cfg,
		gate:    newGate(),
		clock:   clock,
		courts:  newCatalog(),
		res:     newResStore(),
		wl:      newWaitlists(),
		store:   deps.Store,
		sink:    deps.Sink,
		members: deps.Members,
		users:   deps.Users,
		vipSeen: make(map[int64]bool),
	}

	if s.store != nil {
		snap, err := s.store.Load(ctx)
		if err != nil {
			return s, fmt.Errorf("%w: load: %v", ErrPersistence, err)
		}
		s.courts.load(snap.Courts)
		s.res.load(snap.Reservations)
		s.wl.load(snap.Waitlist)
	}
	return s, nil
}

// closeGateWait is the gate budget for the shutdown save. Foreground
// requests fail fast on a busy gate; the final snapshot instead waits out
// in-flight work so a momentarily held gate cannot skip it.
const closeGateWait = 30 * time.Second

// Close writes a final snapshot when any mutation happened since the last
// successful save.
func (s *Scheduler) Close(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	budget := s.cfg.GateWait
	if budget < closeGateWait {
		budget = closeGateWait
	}
	if err := s.gate.acquire(budget); err != nil {
		return err
	}
	defer s.gate.release()
	if !s.mutated {
		return nil
	}
	return s.persist(ctx)
}

// persist saves the current state; called with the gate held. Callers roll
// back their in-memory change when it fails.
func (s *Scheduler) persist(ctx context.Context) error {
	if s.store == nil {
		s.mutated = true
		return nil
	}
	snap := Snapshot{
		Courts:       s.courts.snapshot(),
		Reservations: s.res.snapshot(),
		Waitlist:     s.wl.snapshot(),
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("%w: save: %v", ErrPersistence, err)
	}
	s.mutated = false
	return nil
}

// notify stamps and delivers events; called after the gate is released.
func (s *Scheduler) notify(evts []events.Event) {
	if s.sink == nil || len(evts) == 0 {
		return
	}
	now := s.clock.Now()
	for _, e := range evts {
		if e.OccurredAt.IsZero() {
			e.OccurredAt = now
		}
		s.sink.Notify(e)
	}
}

// requesterInfo is the external identity resolution for one request,
// gathered before the gate is acquired so no network call runs under it.
type requesterInfo struct {
	checkedExists bool
	exists        bool
	member        bool
	memberID      int64
	vip           bool
	vipKnown      bool
	priority      int
}

func (s *Scheduler) resolveRequester(ctx context.Context, userID int64) requesterInfo {
	info := requesterInfo{priority: PriorityGuest}

	if s.users != nil {
		exists, err := s.users.Exists(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Msg("User resolver unavailable, continuing unchecked")
		} else {
			info.checkedExists = true
			info.exists = exists
		}
	}

	if s.members == nil {
		return info
	}

	memberID, ok, err := s.members.MemberIDFor(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Membership resolver unavailable, using guest tier")
		return info
	}
	if !ok {
		return info
	}

	info.member = true
	info.memberID = memberID
	info.priority = PriorityMember

	vip, err := s.members.VIPStatus(ctx, memberID)
	if err != nil {
		log.Warn().Err(err).Int64("member_id", memberID).Msg("VIP lookup failed, treating as regular member")
		return info
	}
	info.vip = vip
	info.vipKnown = true
	if vip {
		info.priority = PriorityVIP
	}
	return info
}

// vipChangeLocked records the freshly resolved VIP flag and reports a
// change event when it flips from the last observation. vipSeen is
// scheduler-owned state, so the compare-and-update runs with the gate held;
// the resolver lookups stay outside it.
func (s *Scheduler) vipChangeLocked(info requesterInfo) []events.Event {
	if !info.vipKnown {
		return nil
	}
	seen, tracked := s.vipSeen[info.memberID]
	if tracked && seen == info.vip {
		return nil
	}
	s.vipSeen[info.memberID] = info.vip
	if !tracked {
		return nil
	}
	return []events.Event{{Type: events.VIPStatusChanged, MemberID: info.memberID, VIP: info.vip}}
}

// CreateResult is the outcome of a booking request. When the court is at
// capacity the request is waitlisted rather than rejected: Reservation is
// nil, Waitlisted is true and Position reports the requester's rank.
type CreateResult struct {
	Reservation *Reservation `json:"reservation,omitempty"`
	Waitlisted  bool         `json:"waitlisted"`
	Position    int          `json:"position,omitempty"`
}

// CreateBooking confirms a reservation or enqueues the request on the
// court's waitlist when the interval is at capacity.
func (s *Scheduler) CreateBooking(ctx context.Context, userID, courtID int64, start, end time.Time) (CreateResult, error) {
	if userID <= 0 || courtID <= 0 {
		return CreateResult{}, fmt.Errorf("%w: user and court identifiers must be positive", ErrInvalidInput)
	}
	if err := validateInterval(start, end); err != nil {
		return CreateResult{}, err
	}

	info := s.resolveRequester(ctx, userID)

	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return CreateResult{}, err
	}
	vipEvts := s.vipChangeLocked(info)
	result, evts, err := s.createLocked(ctx, info, userID, courtID, start, end)
	s.gate.release()

	s.notify(append(vipEvts, evts...))
	return result, err
}

func (s *Scheduler) createLocked(ctx context.Context, info requesterInfo, userID, courtID int64, start, end time.Time) (CreateResult, []events.Event, error) {
	court, ok := s.courts.get(courtID)
	if !ok {
		return CreateResult{}, nil, fmt.Errorf("%w: court %d", ErrNotFound, courtID)
	}

	if s.res.overlapCount(courtID, start, end, 0) >= court.MaxAttendees {
		return s.enqueueLocked(ctx, info, userID, courtID, start)
	}

	if s.res.userOverlaps(userID, courtID, start, end) {
		return CreateResult{}, nil, fmt.Errorf("%w: user %d already holds an overlapping reservation on court %d", ErrConflict, userID, courtID)
	}

	if info.checkedExists && !info.exists {
		return CreateResult{}, nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}

	r := Reservation{
		ID:        s.res.nextID(),
		CourtID:   courtID,
		UserID:    userID,
		StartTime: start,
		EndTime:   end,
		Price:     price(court.PricePerHour, start, end, info.vip),
		VIP:       info.vip,
	}
	s.res.add(r)
	if err := s.persist(ctx); err != nil {
		s.res.remove(r.ID)
		return CreateResult{}, nil, err
	}

	metrics.IncBookingCreated("confirmed")
	evts := []events.Event{{
		Type:          events.BookingCreated,
		CourtID:       courtID,
		UserID:        userID,
		ReservationID: r.ID,
		StartTime:     start,
		EndTime:       end,
		VIP:           r.VIP,
	}}
	return CreateResult{Reservation: &r}, evts, nil
}

// enqueueLocked adds a waitlist entry for a capacity-exceeded request and
// recomputes positions for the court's queue.
func (s *Scheduler) enqueueLocked(ctx context.Context, info requesterInfo, userID, courtID int64, requested time.Time) (CreateResult, []events.Event, error) {
	entry := WaitlistEntry{
		UserID:        userID,
		CourtID:       courtID,
		RequestedTime: requested,
		VIP:           info.vip,
		Priority:      info.priority,
	}
	s.wl.enqueue(entry)
	if err := s.persist(ctx); err != nil {
		s.wl.removeEntry(userID, courtID, requested)
		return CreateResult{}, nil, err
	}

	metrics.IncBookingCreated("waitlisted")
	evts := append(
		[]events.Event{{Type: events.WaitlistUpdated, CourtID: courtID}},
		s.positionEvents(courtID)...,
	)
	return CreateResult{
		Waitlisted: true,
		Position:   s.wl.position(userID, courtID),
	}, evts, nil
}

// positionEvents reports the current rank of every queued requester.
func (s *Scheduler) positionEvents(courtID int64) []events.Event {
	ranked := s.wl.ranked(courtID)
	evts := make([]events.Event, 0, len(ranked))
	for i, e := range ranked {
		evts = append(evts, events.Event{
			Type:     events.WaitlistPosition,
			CourtID:  courtID,
			UserID:   e.UserID,
			Position: i + 1,
		})
	}
	return evts
}

// CancelBooking marks a reservation cancelled. It requires the configured
// notice before the start time, and afterwards attempts to back-fill the
// vacated interval from the waitlist.
func (s *Scheduler) CancelBooking(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: reservation identifier must be positive", ErrInvalidInput)
	}
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return err
	}

	r, evts, err := s.cancelLocked(ctx, id)
	s.gate.release()
	s.notify(evts)
	if err != nil {
		return err
	}

	if _, err := s.TryFillSlot(ctx, r.CourtID, r.StartTime, r.EndTime); err != nil && !errors.Is(err, ErrSystemBusy) {
		log.Warn().Err(err).Int64("court_id", r.CourtID).Msg("Waitlist back-fill after cancel failed")
	}
	return nil
}

func (s *Scheduler) cancelLocked(ctx context.Context, id int64) (Reservation, []events.Event, error) {
	r, ok := s.res.get(id)
	if !ok {
		return Reservation{}, nil, fmt.Errorf("%w: reservation %d", ErrNotFound, id)
	}
	if r.Cancelled {
		return Reservation{}, nil, fmt.Errorf("%w: reservation %d is already cancelled", ErrConflict, id)
	}
	if r.StartTime.Sub(s.clock.Now()) < s.cfg.CancelNotice {
		return Reservation{}, nil, fmt.Errorf("%w: cancellations require %s notice", ErrPolicyViolation, s.cfg.CancelNotice)
	}

	s.res.setCancelled(id, true)
	if err := s.persist(ctx); err != nil {
		s.res.setCancelled(id, false)
		return Reservation{}, nil, err
	}

	metrics.IncBookingCancelled()
	evts := []events.Event{{
		Type:          events.BookingCancelled,
		CourtID:       r.CourtID,
		UserID:        r.UserID,
		ReservationID: id,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
	}}
	return r, evts, nil
}

// RescheduleBooking moves a reservation to a new window. Only the time
// fields change; price, VIP flag and identifiers are immutable. The old
// window is offered to the waitlist afterwards.
func (s *Scheduler) RescheduleBooking(ctx context.Context, id int64, newStart, newEnd time.Time) (Reservation, error) {
	if id <= 0 {
		return Reservation{}, fmt.Errorf("%w: reservation identifier must be positive", ErrInvalidInput)
	}
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return Reservation{}, err
	}

	updated, old, evts, err := s.rescheduleLocked(ctx, id, newStart, newEnd)
	s.gate.release()
	s.notify(evts)
	if err != nil {
		return Reservation{}, err
	}

	if _, err := s.TryFillSlot(ctx, updated.CourtID, old.StartTime, old.EndTime); err != nil && !errors.Is(err, ErrSystemBusy) {
		log.Warn().Err(err).Int64("court_id", updated.CourtID).Msg("Waitlist back-fill after reschedule failed")
	}
	return updated, nil
}

func (s *Scheduler) rescheduleLocked(ctx context.Context, id int64, newStart, newEnd time.Time) (Reservation, Reservation, []events.Event, error) {
	r, ok := s.res.get(id)
	if !ok {
		return Reservation{}, Reservation{}, nil, fmt.Errorf("%w: reservation %d", ErrNotFound, id)
	}
	if r.Cancelled {
		return Reservation{}, Reservation{}, nil, fmt.Errorf("%w: reservation %d is cancelled", ErrConflict, id)
	}
	now := s.clock.Now()
	if r.StartTime.Sub(now) < s.cfg.CancelNotice {
		return Reservation{}, Reservation{}, nil, fmt.Errorf("%w: reschedules require %s notice", ErrPolicyViolation, s.cfg.CancelNotice)
	}
	if err := s.validateWindow(newStart, newEnd, now); err != nil {
		return Reservation{}, Reservation{}, nil, err
	}
	if s.res.overlapCount(r.CourtID, newStart, newEnd, id) > 0 {
		return Reservation{}, Reservation{}, nil, fmt.Errorf("%w: new window overlaps another reservation on court %d", ErrConflict, r.CourtID)
	}

	s.res.setTimes(id, newStart, newEnd)
	if err := s.persist(ctx); err != nil {
		s.res.setTimes(id, r.StartTime, r.EndTime)
		return Reservation{}, Reservation{}, nil, err
	}

	metrics.IncBookingRescheduled()
	updated, _ := s.res.get(id)
	evts := []events.Event{{
		Type:          events.BookingRescheduled,
		CourtID:       r.CourtID,
		UserID:        r.UserID,
		ReservationID: id,
		StartTime:     newStart,
		EndTime:       newEnd,
	}}
	return updated, r, evts, nil
}

// HardDeleteReservation removes a reservation record entirely. This is the
// administrative counterpart of the logical cancelled flag.
func (s *Scheduler) HardDeleteReservation(ctx context.Context, id int64) error {
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return err
	}
	defer s.gate.release()

	r, ok := s.res.get(id)
	if !ok {
		return fmt.Errorf("%w: reservation %d", ErrNotFound, id)
	}
	s.res.remove(id)
	if err := s.persist(ctx); err != nil {
		s.res.add(r)
		return err
	}
	return nil
}

// Reservation looks up a reservation by id.
func (s *Scheduler) Reservation(ctx context.Context, id int64) (Reservation, error) {
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return Reservation{}, err
	}
	defer s.gate.release()

	r, ok := s.res.get(id)
	if !ok {
		return Reservation{}, fmt.Errorf("%w: reservation %d", ErrNotFound, id)
	}
	return r, nil
}

// ReservationsByUser copies out the user's reservations, newest id last.
func (s *Scheduler) ReservationsByUser(ctx context.Context, userID int64) ([]Reservation, error) {
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return nil, err
	}
	defer s.gate.release()
	return s.res.byUser(userID), nil
}

// IsAvailable reports whether the interval has spare capacity.
func (s *Scheduler) IsAvailable(ctx context.Context, courtID int64, start, end time.Time) (bool, error) {
	if err := validateInterval(start, end); err != nil {
		return false, err
	}
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return false, err
	}
	defer s.gate.release()

	court, ok := s.courts.get(courtID)
	if !ok {
		return false, fmt.Errorf("%w: court %d", ErrNotFound, courtID)
	}
	return s.res.overlapCount(courtID, start, end, 0) < court.MaxAttendees, nil
}

// Occupancy returns the raw overlap count for the interval.
func (s *Scheduler) Occupancy(ctx context.Context, courtID int64, start, end time.Time) (int, error) {
	if err := validateInterval(start, end); err != nil {
		return 0, err
	}
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return 0, err
	}
	defer s.gate.release()

	if _, ok := s.courts.get(courtID); !ok {
		return 0, fmt.Errorf("%w: court %d", ErrNotFound, courtID)
	}
	return s.res.overlapCount(courtID, start, end, 0), nil
}

// SlotAvailability is the remaining-spots view of one canonical slot.
type SlotAvailability struct {
	Slot      string    `json:"slot"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Occupied  int       `json:"occupied"`
	Remaining int       `json:"remaining"`
}

// DailyAvailability lists the court's canonical slots for a date with their
// occupancy. Slots already in the past are skipped when the date is today.
func (s *Scheduler) DailyAvailability(ctx context.Context, courtID int64, date time.Time) ([]SlotAvailability, error) {
	if err := s.gate.acquire(s.cfg.GateWait); err != nil {
		return nil, err
	}
	defer s.gate.release()

	court, ok := s.courts.get(courtID)
	if !ok {
		return nil, fmt.Errorf("%w: court %d", ErrNotFound, courtID)
	}

	now := s.clock.Now()
	out := make([]SlotAvailability, 0, len(court.TimeSlots))
	for _, slot := range court.TimeSlots {
		start, end, err := slotWindow(date, slot, s.cfg.SlotDuration)
		if err != nil {
			return nil, err
		}
		if sameDate(date, now) && start.Before(now) {
			continue
		}
		occupied := s.res.overlapCount(courtID, start, end, 0)
		remaining := court.MaxAttendees - occupied
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, SlotAvailability{
			Slot:      slot,
			StartTime: start,
			EndTime:   end,
			Occupied:  occupied,
			Remaining: remaining,
		})
	}
	return out, nil
}
