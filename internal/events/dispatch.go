package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Dispatcher decouples event producers from sinks: Notify enqueues and a
// single goroutine delivers. A full queue drops the event rather than
// blocking the caller.
type Dispatcher struct {
	ch        chan Event
	sink      Sink
	closeOnce sync.Once
	done      chan struct{}
}

func NewDispatcher(sink Sink, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	d := &Dispatcher{
		ch:   make(chan Event, buffer),
		sink: sink,
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.ch {
		d.sink.Notify(e)
	}
}

func (d *Dispatcher) Notify(e Event) {
	select {
	case d.ch <- e:
	default:
		log.Warn().Str("event", string(e.Type)).Msg("Event queue full, dropping notification")
	}
}

// Close stops delivery after draining queued events.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.ch)
		<-d.done
	})
}
