package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/treelights/pkg/device"
	"github.com/urmzd/treelights/pkg/metrics"
	"github.com/urmzd/treelights/pkg/protocol"
)

const lingerTimeout = 500 * time.Millisecond

// serveSession reads frames from conn and answers each with one reply line,
// in order, until the peer goes away, a transport error occurs or the server
// shuts down.
func (s *Server) serveSession(conn net.Conn) {
	defer s.untrack(conn)
	defer func() { _ = conn.Close() }()

	remote := conn.RemoteAddr().String()
	logger := log.With().Str("remote", remote).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Session panic recovered, closing session")
		}
	}()
	logger.Info().Msg("Client connected")

	sc := protocol.NewScanner(conn)
	for {
		s.armReadDeadline(conn)
		if !sc.Scan() {
			break
		}
		frame := sc.Bytes()
		if protocol.IsBlank(frame) {
			continue
		}

		resp := s.handleFrame(frame)
		if !resp.OK {
			logger.Debug().Str("reply", resp.String()).Msg("Command rejected")
		}
		if _, err := conn.Write(protocol.Encode(resp)); err != nil {
			logger.Warn().Err(err).Msg("Failed to write reply, closing session")
			return
		}
	}

	err := sc.Err()
	var ne net.Error
	switch {
	case err == nil, errors.Is(err, io.EOF):
		logger.Info().Msg("Client disconnected")
	case errors.Is(err, bufio.ErrTooLong):
		logger.Warn().Int("limit", protocol.MaxFrameSize).Msg("Frame too large, closing session")
		_, _ = conn.Write(protocol.Encode(protocol.ErrorResponse(protocol.ErrFrameTooLarge.Error())))
		lingerClose(conn)
	case errors.As(err, &ne) && ne.Timeout():
		if s.isDraining() {
			logger.Info().Msg("Session closed for shutdown")
		} else {
			logger.Info().Dur("idle_timeout", s.cfg.IdleTimeout).Msg("Session idle, closing")
		}
	case errors.Is(err, net.ErrClosed):
		logger.Info().Msg("Session closed")
	default:
		logger.Warn().Err(err).Msg("Read failed, closing session")
	}
}

// handleFrame decodes and applies one command.
func (s *Server) handleFrame(frame []byte) protocol.Response {
	start := time.Now()

	cmd, err := s.codec.Decode(frame)
	if err == nil {
		err = s.display.Apply(cmd)
	}
	if err != nil && !protocol.IsProtocolError(err) {
		log.Debug().Err(err).Stringer("command", cmd).Msg("Device rejected command")
	}

	s.recorder.RecordCommand(metrics.SourceTCP, cmd, err, time.Since(start))
	return protocol.ResponseFor(err)
}

// armReadDeadline sets the idle deadline for the next read. Once the server
// is draining the past deadline set by Shutdown stays in place, so buffered
// frames are still answered and the next read fails.
func (s *Server) armReadDeadline(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.draining && s.cfg.IdleTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
	}
}

// lingerClose half-closes conn and discards input for a moment so the peer
// reads the last reply before any reset caused by unread data.
func lingerClose(conn net.Conn) {
	cw, ok := conn.(interface{ CloseWrite() error })
	if !ok {
		return
	}
	_ = cw.CloseWrite()
	_ = conn.SetReadDeadline(time.Now().Add(lingerTimeout))
	_, _ = io.Copy(io.Discard, conn)
}

func (s *Server) isDraining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draining
}

var _ Display = (*device.Shared)(nil)
