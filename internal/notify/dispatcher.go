package notify

import (
	"context"
	"log"
	"time"
)

// Sink delivers events to one external channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, e Event) error
}

// Dispatcher fans events out to sinks from a single goroutine. Publish never
// blocks: when the queue is full the event is dropped and logged.
type Dispatcher struct {
	sinks   []Sink
	queue   chan Event
	timeout time.Duration
}

// NewDispatcher creates a Dispatcher with a queue of size events and a
// per-sink delivery timeout.
func NewDispatcher(size int, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if size <= 0 {
		size = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		sinks:   sinks,
		queue:   make(chan Event, size),
		timeout: timeout,
	}
}

func (d *Dispatcher) Publish(e Event) {
	select {
	case d.queue <- e:
	default:
		log.Printf("WARN: notify queue full, dropping %s for order %s", e.Type, e.OrderID)
	}
}

// Run delivers queued events until ctx is done, then flushes what is
// already queued and returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.flush()
			return nil
		case e := <-d.queue:
			d.deliver(ctx, e)
		}
	}
}

func (d *Dispatcher) flush() {
	for {
		select {
		case e := <-d.queue:
			d.deliver(context.Background(), e)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e Event) {
	for _, s := range d.sinks {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		if err := s.Send(sctx, e); err != nil {
			log.Printf("ERROR: notify %s: %s for order %s: %v", s.Name(), e.Type, e.OrderID, err)
		}
		cancel()
	}
}
