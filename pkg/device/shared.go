package device

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Shared is the single controller instance handed to every session, the
// HTTP API and the MQTT bridge. All calls into the wrapped controller are
// serialized through one mutex so a command is committed completely before
// the next one starts. Shared also fans committed state out to subscribers.
type Shared struct {
	mu          sync.Mutex
	ctrl        Controller
	initialized bool
	closed      bool

	subscribers   []chan StateEvent
	subsClosed    bool
	subscribersMu sync.Mutex
}

// NewShared wraps ctrl. ctrl must not be used directly afterwards.
func NewShared(ctrl Controller) *Shared {
	return &Shared{ctrl: ctrl}
}

// Initialize acquires the display. Calls after the first successful one are
// no-ops.
func (s *Shared) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.initialized {
		return nil
	}
	if err := s.ctrl.Initialize(ctx); err != nil {
		return err
	}
	s.initialized = true
	return nil
}

// Apply applies cmd under the controller lock and publishes the resulting
// pixel buffer to subscribers.
func (s *Shared) Apply(cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if !s.initialized {
		return ErrNotInitialized
	}
	if err := s.ctrl.Apply(cmd); err != nil {
		return err
	}

	s.publish(StateEvent{Command: cmd, Pixels: s.ctrl.Pixels()})
	return nil
}

// Pixels returns a copy of the committed pixel buffer.
func (s *Shared) Pixels() []RGB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Pixels()
}

// Ready reports whether the display is initialized and not shut down.
func (s *Shared) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized && !s.closed
}

// Shutdown blanks and releases the display, then closes all subscriber
// channels. Only the first call has an effect.
func (s *Shared) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.ctrl.Shutdown()
	s.mu.Unlock()

	s.subscribersMu.Lock()
	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
	s.subsClosed = true
	s.subscribersMu.Unlock()

	log.Info().Msg("Display shut down")
}

// --- EventSubscriber ---

func (s *Shared) Subscribe() chan StateEvent {
	ch := make(chan StateEvent, 16)

	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()
	if s.subsClosed {
		close(ch)
		return ch
	}
	s.subscribers = append(s.subscribers, ch)
	return ch
}

func (s *Shared) Unsubscribe(ch chan StateEvent) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// publish is called with s.mu held so events reach subscribers in commit
// order. Slow subscribers miss events instead of stalling the display.
func (s *Shared) publish(evt StateEvent) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}
