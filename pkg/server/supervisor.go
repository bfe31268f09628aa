package server

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultDrainTimeout bounds how long shutdown waits for sessions.
const DefaultDrainTimeout = 2 * time.Second

// Lifecycle is the display as seen by the supervisor.
type Lifecycle interface {
	Display
	Initialize(ctx context.Context) error
	Shutdown()
}

// Beacon is a bound-then-served socket such as the discovery responder.
type Beacon interface {
	Listen() error
	Serve() error
	Close() error
}

// Component is an auxiliary service run alongside the command server, such
// as the HTTP API or the MQTT bridge. Run blocks until ctx ends.
type Component interface {
	Name() string
	Run(ctx context.Context) error
}

// Supervisor owns the service lifecycle: it initializes the display, binds
// the sockets, runs everything concurrently and tears it down in order.
type Supervisor struct {
	display      Lifecycle
	server       *Server
	beacon       Beacon
	components   []Component
	drainTimeout time.Duration
	ready        chan struct{}
	started      atomic.Bool
}

// SupervisorOption customizes a Supervisor.
type SupervisorOption func(*Supervisor)

// WithBeacon runs b next to the command server.
func WithBeacon(b Beacon) SupervisorOption {
	return func(s *Supervisor) { s.beacon = b }
}

// WithComponents adds auxiliary components.
func WithComponents(c ...Component) SupervisorOption {
	return func(s *Supervisor) { s.components = append(s.components, c...) }
}

// WithDrainTimeout sets the session drain grace period.
func WithDrainTimeout(d time.Duration) SupervisorOption {
	return func(s *Supervisor) { s.drainTimeout = d }
}

// NewSupervisor creates a supervisor for display and srv.
func NewSupervisor(display Lifecycle, srv *Server, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		display:      display,
		server:       srv,
		drainTimeout: DefaultDrainTimeout,
		ready:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts the service and blocks until ctx is cancelled or a part fails.
// The display is shut down on every return path.
//
// A Supervisor runs once. Later calls return ErrAlreadyStarted and leave the
// display alone.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer s.display.Shutdown()

	if err := s.display.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize display: %w", err)
	}
	log.Info().Msg("Display initialized")

	if s.beacon != nil {
		if err := s.beacon.Listen(); err != nil {
			return err
		}
	}
	if err := s.server.Listen(); err != nil {
		s.closeBeacon()
		return err
	}

	close(s.ready)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return stopped(gctx, "command server", s.server.Serve())
	})
	if s.beacon != nil {
		g.Go(func() error {
			return stopped(gctx, "discovery responder", s.beacon.Serve())
		})
	}
	for _, c := range s.components {
		g.Go(func() error {
			err := c.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", c.Name(), err)
			}
			return stopped(gctx, c.Name(), nil)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")

		drainCtx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
		defer cancel()
		if err := s.server.Shutdown(drainCtx); err != nil {
			log.Warn().Err(err).Msg("Command server drain incomplete")
		}
		s.closeBeacon()
		return nil
	})

	err := g.Wait()
	if err != nil {
		log.Error().Err(err).Msg("Service stopped with error")
	}
	return err
}

// Ready is closed once every socket is bound.
func (s *Supervisor) Ready() <-chan struct{} {
	return s.ready
}

func (s *Supervisor) closeBeacon() {
	if s.beacon == nil {
		return
	}
	if err := s.beacon.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close discovery socket")
	}
}

// stopped turns a clean return before shutdown into an error so the group
// tears everything else down.
func stopped(ctx context.Context, name string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if ctx.Err() == nil {
		return fmt.Errorf("%s stopped unexpectedly", name)
	}
	return nil
}
