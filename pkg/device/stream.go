package device

import (
	"sync"

	"github.com/ajitpratap0/quasar/pkg/errors"
)

// Stream is an ordered asynchronous execution queue bound to a device.
// Submitted work runs in submission order on a dedicated goroutine. The nil
// stream is valid and executes work synchronously on the caller (host path).
type Stream struct {
	kind Type
	dev  ID

	mu     sync.Mutex
	tasks  chan func()
	done   chan struct{}
	closed bool
}

// NewStream creates a stream on the given device and starts its executor.
func NewStream(kind Type, dev ID) *Stream {
	s := &Stream{
		kind:  kind,
		dev:   dev,
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Stream) run() {
	for fn := range s.tasks {
		fn()
	}
	close(s.done)
}

// DeviceType returns the device kind the stream executes on. The nil stream
// reports TypeCPU.
func (s *Stream) DeviceType() Type {
	if s == nil {
		return TypeCPU
	}
	return s.kind
}

// DeviceID returns the device the stream is bound to. The nil stream
// reports device 0.
func (s *Stream) DeviceID() ID {
	if s == nil {
		return 0
	}
	return s.dev
}

// Submit enqueues fn behind all previously submitted work. On the nil
// stream fn runs synchronously before Submit returns.
func (s *Stream) Submit(fn func()) error {
	if s == nil {
		fn()
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New(errors.ErrorTypeSync, "submit on closed stream")
	}
	s.tasks <- fn
	return nil
}

// Synchronize blocks until all work submitted before the call has completed.
func (s *Stream) Synchronize() error {
	if s == nil {
		return nil
	}
	marker := make(chan struct{})
	if err := s.Submit(func() { close(marker) }); err != nil {
		return err
	}
	<-marker
	return nil
}

// Close drains the stream and stops its executor. Submitting to a closed
// stream fails; closing twice is a no-op.
func (s *Stream) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.tasks)
	s.mu.Unlock()
	<-s.done
}
