package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"
)

// BroadcastAddress is the limited-broadcast probe target.
var BroadcastAddress = net.JoinHostPort("255.255.255.255", strconv.Itoa(DefaultPort))

// Discover sends one probe to target and collects the addresses that answer
// within wait. Each responder is listed once, in order of first reply.
func Discover(ctx context.Context, target string, wait time.Duration) ([]netip.Addr, error) {
	dst, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", target, err)
	}

	lc := net.ListenConfig{Control: broadcastControl}
	pc, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("open probe socket: %w", err)
	}
	conn := pc.(*net.UDPConn)
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(wait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	if _, err := conn.WriteToUDP([]byte(RequestToken), dst); err != nil {
		return nil, fmt.Errorf("send probe: %w", err)
	}

	var found []netip.Addr
	seen := make(map[netip.Addr]bool)
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return found, ctx.Err()
			}
			return found, err
		}
		if !bytes.Equal(buf[:n], []byte(ResponseToken)) {
			continue
		}
		addr := from.Addr().Unmap()
		if !seen[addr] {
			seen[addr] = true
			found = append(found, addr)
		}
	}
}
