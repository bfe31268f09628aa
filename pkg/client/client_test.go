package client

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/urmzd/treelights/pkg/device"
	"github.com/urmzd/treelights/pkg/protocol"
	"github.com/urmzd/treelights/pkg/server"
)

func startTree(t *testing.T) (*device.Shared, string) {
	t.Helper()
	display := device.NewShared(device.NewVirtualController(25))
	if err := display.Initialize(t.Context()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(display.Shutdown)

	srv, err := server.New(server.Config{Host: "127.0.0.1"}, display)
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() { _ = srv.Close() })
	return display, srv.Addr().String()
}

func dialTree(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := Dial(t.Context(), addr)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_Commands(t *testing.T) {
	display, addr := startTree(t)
	c := dialTree(t, addr)
	ctx := t.Context()

	if err := c.SetPixel(ctx, 2, device.RGB{0, 1, 0}); err != nil {
		t.Fatalf("SetPixel() error = %v", err)
	}
	if p := display.Pixels()[2]; p != (device.RGB{0, 1, 0}) {
		t.Errorf("pixel 2 = %v", p)
	}

	if err := c.SetAll(ctx, device.RGB{0.2, 0.4, 0.6}); err != nil {
		t.Fatalf("SetAll() error = %v", err)
	}
	if p := display.Pixels()[24]; p != (device.RGB{0.2, 0.4, 0.6}) {
		t.Errorf("pixel 24 = %v", p)
	}

	if err := c.Off(ctx); err != nil {
		t.Fatalf("Off() error = %v", err)
	}
	if p := display.Pixels()[2]; p != device.Black {
		t.Errorf("pixel 2 after Off = %v", p)
	}
}

func TestClient_RemoteError(t *testing.T) {
	_, addr := startTree(t)
	c := dialTree(t, addr)

	err := c.SetPixel(t.Context(), 30, device.RGB{1, 1, 1})
	var remote *protocol.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("SetPixel(30) error = %v, want RemoteError", err)
	}

	// Connection survives a rejected command.
	if err := c.Off(t.Context()); err != nil {
		t.Errorf("Off() after rejection error = %v", err)
	}
}

func TestClient_SendRawMalformed(t *testing.T) {
	_, addr := startTree(t)
	c := dialTree(t, addr)

	resp, err := c.SendRaw(t.Context(), []byte(`not json`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.OK || resp.Message != "Invalid JSON format" {
		t.Errorf("SendRaw() = %+v", resp)
	}
}

func TestClient_Timeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(time.Second)
		}
	}()

	c := dialTree(t, ln.Addr().String())
	c.SetTimeout(50 * time.Millisecond)

	var ne net.Error
	if err := c.Off(t.Context()); !errors.As(err, &ne) || !ne.Timeout() {
		t.Errorf("Off() error = %v, want timeout", err)
	}
	if err := c.Off(t.Context()); !errors.Is(err, ErrClosed) {
		t.Errorf("Off() after timeout error = %v, want ErrClosed", err)
	}
}

func TestClient_ContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(time.Second)
		}
	}()

	c := dialTree(t, ln.Addr().String())
	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	if err := c.Off(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Off() error = %v, want DeadlineExceeded", err)
	}
}

func TestClient_Closed(t *testing.T) {
	_, addr := startTree(t)
	c := dialTree(t, addr)

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Off(t.Context()); !errors.Is(err, ErrClosed) {
		t.Errorf("Off() after Close error = %v, want ErrClosed", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestCommandAddress(t *testing.T) {
	if got := CommandAddress(netip.MustParseAddr("192.168.1.40")); got != "192.168.1.40:65436" {
		t.Errorf("CommandAddress() = %q", got)
	}
}
