package service

import (
	"context"
	"log"
	"time"
)

// Notifier delivers allocation events to the outside world.  queue.Publisher
// is the production implementation.
type Notifier interface {
	Notify(ctx context.Context, event string, payload interface{}) error
}

// dispatcher sends notifications on behalf of a service.  Delivery failures
// are logged and never reach the caller.
type dispatcher struct {
	n       Notifier
	log     *log.Logger
	timeout time.Duration
}

func newDispatcher(n Notifier, logger *log.Logger) dispatcher {
	return dispatcher{n: n, log: logger, timeout: 3 * time.Second}
}

func (d dispatcher) send(ctx context.Context, event string, payload interface{}) {
	if d.n == nil {
		return
	}
	// The request may be finishing; the event should still go out.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	if err := d.n.Notify(ctx, event, payload); err != nil {
		d.log.Printf("notify: %s dropped: %v", event, err)
	}
}
