package booking

import (
	"fmt"
	"time"
)

const vipDiscount = 0.85

// price computes the booking price from the court's hourly rate and the
// interval duration. The VIP discount multiplies the base price and does
// not stack with any other discount.
func price(ratePerHour float64, start, end time.Time, vip bool) float64 {
	hours := end.Sub(start).Hours()
	p := ratePerHour * hours
	if vip {
		p *= vipDiscount
	}
	return p
}

// validateWindow enforces the reschedule window rules: valid timestamps,
// end strictly after start, start strictly in the future, start within the
// booking horizon, duration exactly one slot, and start aligned to :00 or
// :30. Creation deliberately enforces fewer of these.
func (s *Scheduler) validateWindow(start, end, now time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end times are required", ErrInvalidInput)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidInput)
	}
	if !start.After(now) {
		return fmt.Errorf("%w: start time must be in the future", ErrInvalidInput)
	}
	if start.After(now.AddDate(0, s.cfg.HorizonMonths, 0)) {
		return fmt.Errorf("%w: start time is more than %d months ahead", ErrInvalidInput, s.cfg.HorizonMonths)
	}
	if end.Sub(start) != s.cfg.SlotDuration {
		return fmt.Errorf("%w: duration must be exactly %s", ErrInvalidInput, s.cfg.SlotDuration)
	}
	if minute := start.Minute(); (minute != 0 && minute != 30) || start.Second() != 0 || start.Nanosecond() != 0 {
		return fmt.Errorf("%w: start time must be aligned to :00 or :30", ErrInvalidInput)
	}
	return nil
}

func validateInterval(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end times are required", ErrInvalidInput)
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: start time must be before end time", ErrInvalidInput)
	}
	return nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
