package booking

import (
	"fmt"
	"sort"
	"time"
)

// catalog owns court definitions. It is mutated only while the scheduler's
// gate is held.
type catalog struct {
	courts map[int64]*Court
}

func newCatalog() *catalog {
	return &catalog{courts: make(map[int64]*Court)}
}

func (c *catalog) load(courts []Court) {
	for i := range courts {
		court := courts[i]
		c.courts[court.ID] = &court
	}
}

// create assigns the next identifier and normalizes capacity and slots.
// Candidates that already carry an identifier are rejected.
func (c *catalog) create(court Court) (Court, error) {
	if court.ID != 0 {
		return Court{}, fmt.Errorf("%w: court already has an identifier", ErrInvalidInput)
	}
	if court.Name == "" {
		return Court{}, fmt.Errorf("%w: court name is required", ErrInvalidInput)
	}
	if court.PricePerHour < 0 {
		return Court{}, fmt.Errorf("%w: price per hour must not be negative", ErrInvalidInput)
	}
	if court.MaxAttendees < 1 {
		court.MaxAttendees = DefaultMaxAttendees
	}
	if len(court.TimeSlots) == 0 {
		court.TimeSlots = DefaultTimeSlots()
	} else {
		normalized, err := normalizeTimeSlots(court.TimeSlots)
		if err != nil {
			return Court{}, err
		}
		court.TimeSlots = normalized
	}

	court.ID = c.nextID()
	c.courts[court.ID] = &court
	return court, nil
}

func (c *catalog) nextID() int64 {
	var max int64
	for id := range c.courts {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func (c *catalog) update(court Court) error {
	existing, ok := c.courts[court.ID]
	if !ok {
		return fmt.Errorf("%w: court %d", ErrNotFound, court.ID)
	}
	if court.Name == "" {
		return fmt.Errorf("%w: court name is required", ErrInvalidInput)
	}
	if court.PricePerHour < 0 {
		return fmt.Errorf("%w: price per hour must not be negative", ErrInvalidInput)
	}
	if court.MaxAttendees < 1 {
		court.MaxAttendees = DefaultMaxAttendees
	}
	if len(court.TimeSlots) == 0 {
		court.TimeSlots = existing.TimeSlots
	} else {
		normalized, err := normalizeTimeSlots(court.TimeSlots)
		if err != nil {
			return err
		}
		court.TimeSlots = normalized
	}

	*existing = court
	return nil
}

func (c *catalog) delete(id int64) error {
	if _, ok := c.courts[id]; !ok {
		return fmt.Errorf("%w: court %d", ErrNotFound, id)
	}
	delete(c.courts, id)
	return nil
}

func (c *catalog) get(id int64) (Court, bool) {
	court, ok := c.courts[id]
	if !ok {
		return Court{}, false
	}
	return *court, true
}

func (c *catalog) list() []Court {
	out := make([]Court, 0, len(c.courts))
	for _, court := range c.courts {
		out = append(out, *court)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *catalog) byLocation(location string) []Court {
	var out []Court
	for _, court := range c.courts {
		if court.Location == location {
			out = append(out, *court)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *catalog) addSlot(id int64, slot string) error {
	court, ok := c.courts[id]
	if !ok {
		return fmt.Errorf("%w: court %d", ErrNotFound, id)
	}
	normalized, err := normalizeTimeSlot(slot)
	if err != nil {
		return err
	}
	for _, existing := range court.TimeSlots {
		if existing == normalized {
			return fmt.Errorf("%w: slot %s already present", ErrConflict, normalized)
		}
	}
	court.TimeSlots = append(court.TimeSlots, normalized)
	sort.Strings(court.TimeSlots)
	return nil
}

func (c *catalog) removeSlot(id int64, slot string) error {
	court, ok := c.courts[id]
	if !ok {
		return fmt.Errorf("%w: court %d", ErrNotFound, id)
	}
	normalized, err := normalizeTimeSlot(slot)
	if err != nil {
		return err
	}
	for i, existing := range court.TimeSlots {
		if existing == normalized {
			court.TimeSlots = append(court.TimeSlots[:i], court.TimeSlots[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: slot %s", ErrNotFound, normalized)
}

func (c *catalog) snapshot() []Court {
	out := c.list()
	for i := range out {
		out[i].Features = append([]string(nil), out[i].Features...)
		out[i].TimeSlots = append([]string(nil), out[i].TimeSlots...)
	}
	return out
}

func normalizeTimeSlot(slot string) (string, error) {
	parsed, err := time.Parse("15:04", slot)
	if err != nil {
		return "", fmt.Errorf("%w: slot %q must be HH:MM", ErrInvalidInput, slot)
	}
	return parsed.Format("15:04"), nil
}

func normalizeTimeSlots(slots []string) ([]string, error) {
	out := make([]string, 0, len(slots))
	seen := make(map[string]bool, len(slots))
	for _, slot := range slots {
		normalized, err := normalizeTimeSlot(slot)
		if err != nil {
			return nil, err
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	sort.Strings(out)
	return out, nil
}

// slotWindow resolves a canonical "HH:MM" slot to a concrete interval on
// the given date.
func slotWindow(date time.Time, slot string, duration time.Duration) (time.Time, time.Time, error) {
	parsed, err := time.Parse("15:04", slot)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: slot %q must be HH:MM", ErrInvalidInput, slot)
	}
	start := time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, date.Location())
	return start, start.Add(duration), nil
}
