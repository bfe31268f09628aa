// Package discovery implements the UDP beacon clients use to find the tree
// on the LAN, the matching client-side probe, and the mDNS advertisement.
package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultPort is the fixed discovery port.
	DefaultPort = 65435

	// RequestToken is the probe payload.
	RequestToken = "RGB_TREE_DISCOVERY"

	// ResponseToken is sent back to the prober.
	ResponseToken = "RGB_TREE_HERE"

	maxDatagram = 1024
)

// ErrBind indicates the discovery socket could not be bound.
var ErrBind = errors.New("failed to bind discovery socket")

// IsRequest reports whether payload is exactly the discovery probe.
func IsRequest(payload []byte) bool {
	return bytes.Equal(payload, []byte(RequestToken))
}

// DefaultAddress returns the wildcard address on DefaultPort.
func DefaultAddress() string {
	return net.JoinHostPort("", strconv.Itoa(DefaultPort))
}

// Responder answers discovery probes. It keeps no per-sender state.
type Responder struct {
	addr string

	conn      net.PacketConn
	closeOnce sync.Once
	closed    chan struct{}
}

// NewResponder creates a responder for addr, usually DefaultAddress().
func NewResponder(addr string) *Responder {
	return &Responder{addr: addr, closed: make(chan struct{})}
}

// Listen binds the UDP socket with broadcast and address reuse enabled.
func (r *Responder) Listen() error {
	lc := net.ListenConfig{Control: broadcastControl}
	conn, err := lc.ListenPacket(context.Background(), "udp4", r.addr)
	if err != nil {
		return fmt.Errorf("%w: udp %s: %v", ErrBind, r.addr, err)
	}
	r.conn = conn
	log.Info().Str("address", conn.LocalAddr().String()).Msg("Discovery responder listening")
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (r *Responder) Addr() net.Addr {
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Serve answers probes until Close. It returns nil once closed.
func (r *Responder) Serve() error {
	if r.conn == nil {
		return errors.New("discovery responder is not listening")
	}

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := r.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-r.closed:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn().Err(err).Msg("Discovery read failed")
			continue
		}

		if !IsRequest(buf[:n]) {
			log.Debug().Str("from", from.String()).Int("bytes", n).Msg("Ignoring discovery datagram")
			continue
		}

		if _, err := r.conn.WriteTo([]byte(ResponseToken), from); err != nil {
			log.Warn().Err(err).Str("to", from.String()).Msg("Failed to answer discovery probe")
			continue
		}
		log.Debug().Str("from", from.String()).Msg("Answered discovery probe")
	}
}

// Close closes the socket, unblocking Serve.
func (r *Responder) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.closed)
		if r.conn != nil {
			err = r.conn.Close()
		}
	})
	return err
}
