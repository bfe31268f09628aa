// Package server runs the TCP command port and supervises the service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/treelights/pkg/device"
	"github.com/urmzd/treelights/pkg/metrics"
	"github.com/urmzd/treelights/pkg/protocol"
)

// DefaultPort is the TCP command port.
const DefaultPort = 65436

// Config configures the command server.
type Config struct {
	Host string
	Port int

	// IdleTimeout closes sessions that send nothing for this long. Zero
	// disables it.
	IdleTimeout time.Duration

	// AllowedCIDRs restricts clients by source address. Empty allows all.
	AllowedCIDRs []string
}

// Address returns host:port.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Display is the part of the shared controller a session needs.
type Display interface {
	Apply(cmd device.Command) error
}

// Option customizes a Server.
type Option func(*Server)

// WithRecorder records every processed command.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithCodec replaces the default command codec.
func WithCodec(c *protocol.Codec) Option {
	return func(s *Server) { s.codec = c }
}

// Server accepts command connections and runs one session per connection.
type Server struct {
	cfg      Config
	display  Display
	codec    *protocol.Codec
	recorder metrics.Recorder
	allowed  []*net.IPNet

	listener net.Listener
	stopChan chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	sessions map[net.Conn]struct{}
	draining bool
	wg       sync.WaitGroup
}

// New creates a command server dispatching to display.
func New(cfg Config, display Display, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		display:  display,
		codec:    protocol.NewCodec(nil),
		recorder: metrics.Nop{},
		stopChan: make(chan struct{}),
		sessions: make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, c := range cfg.AllowedCIDRs {
		_, network, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidCIDR, c, err)
		}
		s.allowed = append(s.allowed, network)
	}
	return s, nil
}

// Listen binds the command port.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("%w: tcp %s: %v", ErrBind, s.cfg.Address(), err)
	}
	s.listener = ln
	log.Info().Str("address", ln.Addr().String()).Msg("Command server listening")
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until the server is shut down. It returns nil
// after Shutdown or Close.
func (s *Server) Serve() error {
	if s.listener == nil {
		return ErrNotListening
	}

	var backoff time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopChan:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			// Resource exhaustion (EMFILE and friends); back off and retry.
			backoff = min(max(2*backoff, 5*time.Millisecond), time.Second)
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("Accept failed")
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		if !s.isAllowedConnection(conn) {
			log.Warn().Str("remote", conn.RemoteAddr().String()).Msg("Rejected connection (not in allowed CIDRs)")
			_ = conn.Close()
			continue
		}

		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		go s.serveSession(conn)
	}
}

// Shutdown stops accepting, lets sessions finish the commands they have
// already received, and force-closes whatever is left when ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.beginDrain()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	if n := s.closeSessions(); n > 0 {
		log.Warn().Int("sessions", n).Msg("Drain timed out, closed remaining sessions")
	}
	<-done
	return ctx.Err()
}

// Close stops the server and closes every session immediately.
func (s *Server) Close() error {
	s.beginDrain()
	s.closeSessions()
	s.wg.Wait()
	return nil
}

// beginDrain closes the listener and expires every session's read deadline.
func (s *Server) beginDrain() {
	s.stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draining = true
	for conn := range s.sessions {
		_ = conn.SetReadDeadline(time.Now())
	}
}

func (s *Server) closeSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.sessions {
		_ = conn.Close()
	}
	return len(s.sessions)
}

// ActiveSessions returns the number of open sessions.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.listener != nil {
			if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				log.Warn().Err(err).Msg("Failed to close command listener")
			}
		}
	})
}

// track registers conn as a session. It fails once shutdown has begun.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		return false
	}
	s.sessions[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.sessions, conn)
	s.mu.Unlock()
	s.wg.Done()
}

// isAllowedConnection checks the peer against the CIDR allow-list.
func (s *Server) isAllowedConnection(conn net.Conn) bool {
	if len(s.allowed) == 0 {
		return true
	}

	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, network := range s.allowed {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
