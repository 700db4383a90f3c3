package booking

import "time"

// gate is the single mutual-exclusion point for scheduler state. It is a
// one-slot semaphore so acquisition can carry a time budget: callers fail
// with ErrSystemBusy instead of parking indefinitely. Once held, an
// operation runs to completion; timeouts apply to acquisition only.
type gate struct {
	slot chan struct{}
}

func newGate() *gate {
	return &gate{slot: make(chan struct{}, 1)}
}

// acquire blocks at most budget and reports ErrSystemBusy on expiry.
func (g *gate) acquire(budget time.Duration) error {
	select {
	case g.slot <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case g.slot <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrSystemBusy
	}
}

func (g *gate) release() {
	<-g.slot
}
