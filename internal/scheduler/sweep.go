package scheduler

import (
	"context"

	"courtbook/internal/booking"
)

const sweepJobName = "waitlist-sweep"

// RegisterSweep schedules the periodic waitlist sweep: every run offers
// today's and tomorrow's open canonical slots to the waitlists.
func (s *Service) RegisterSweep(bookings *booking.Scheduler, cronExpr string) error {
	_, err := s.AddJob(sweepJobName, cronExpr, func() {
		bookings.SweepOnce(context.Background())
	})
	return err
}
