package device

import (
	"context"
	"sync/atomic"

	"github.com/ajitpratap0/quasar/pkg/errors"
)

// Event is a completion token: it becomes signaled once all work submitted
// to its stream before the Record call has finished. Consumers on other
// execution contexts wait on the event before touching memory produced by
// that work; this is the sole cross-context ordering guarantee.
//
// Destroy is idempotent and safe to call from a different goroutine than
// the one that recorded the event.
type Event struct {
	ch        chan struct{}
	destroyed atomic.Bool
}

// Record creates an event and records it against the stream. An event
// recorded on the nil stream is born signaled (host/test substitute for an
// accelerator event).
func Record(s *Stream) (*Event, error) {
	e := &Event{ch: make(chan struct{})}
	if s == nil {
		close(e.ch)
		return e, nil
	}
	if err := s.Submit(func() { close(e.ch) }); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSync, "failed to record completion event")
	}
	return e, nil
}

// Wait blocks until the event is signaled or the context is done.
func (e *Event) Wait(ctx context.Context) error {
	if e.destroyed.Load() {
		return errors.New(errors.ErrorTypeSync, "wait on destroyed event")
	}
	select {
	case <-e.ch:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.ErrorTypeSync, "wait on completion event")
	}
}

// Signaled reports whether the recorded work has completed.
func (e *Event) Signaled() bool {
	select {
	case <-e.ch:
		return true
	default:
		return false
	}
}

// Destroy releases the event. The second and later calls are no-ops; it
// reports whether this call performed the destruction.
func (e *Event) Destroy() bool {
	return e.destroyed.CompareAndSwap(false, true)
}
