// Package client talks to a running tree over the TCP command protocol.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/urmzd/treelights/pkg/device"
	"github.com/urmzd/treelights/pkg/discovery"
	"github.com/urmzd/treelights/pkg/protocol"
)

const (
	// DefaultTimeout bounds one request/reply exchange.
	DefaultTimeout = 5 * time.Second

	// DefaultCommandPort is the TCP command port servers listen on.
	DefaultCommandPort = 65436
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("client closed")

// Client is one command connection. It is safe for concurrent use;
// requests are sent one at a time.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
	closed  bool
}

// Dial connects to the command port at addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return New(conn), nil
}

// New wraps an established connection.
func New(conn net.Conn) *Client {
	return &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: DefaultTimeout,
	}
}

// SetTimeout changes the per-request timeout. Zero disables it.
func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// Send writes cmd and waits for its reply. A server-side rejection is
// returned as *protocol.RemoteError and the connection stays usable. After a
// transport error or timeout the client is closed.
func (c *Client) Send(ctx context.Context, cmd device.Command) error {
	payload, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	resp, err := c.SendRaw(ctx, payload)
	if err != nil {
		return err
	}
	return resp.Err()
}

// SendRaw writes one frame as-is and returns the parsed reply.
func (c *Client) SendRaw(ctx context.Context, payload []byte) (protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return protocol.Response{}, ErrClosed
	}

	deadline := time.Time{}
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return protocol.Response{}, err
	}
	stop := context.AfterFunc(ctx, func() { _ = c.conn.SetDeadline(time.Now()) })
	defer stop()

	frame := make([]byte, 0, len(payload)+1)
	frame = append(append(frame, payload...), '\n')
	if _, err := c.conn.Write(frame); err != nil {
		c.abort()
		return protocol.Response{}, ioError(ctx, "write", err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.abort()
		return protocol.Response{}, ioError(ctx, "read", err)
	}
	return protocol.ParseResponse(line)
}

// abort drops a connection whose reply stream can no longer be trusted; the
// caller holds c.mu.
func (c *Client) abort() {
	c.closed = true
	_ = c.conn.Close()
}

func ioError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	// The socket deadline can fire just before the context timer.
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		return fmt.Errorf("%s: %w", op, context.DeadlineExceeded)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// SetPixel sets one pixel.
func (c *Client) SetPixel(ctx context.Context, index uint, color device.RGB) error {
	return c.Send(ctx, device.SetPixel(index, color))
}

// SetAll sets every pixel to color.
func (c *Client) SetAll(ctx context.Context, color device.RGB) error {
	return c.Send(ctx, device.SetAll(color))
}

// Off turns every pixel off.
func (c *Client) Off(ctx context.Context) error {
	return c.Send(ctx, device.Off())
}

// RemoteAddr returns the server address.
func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// Discover probes target (usually discovery.BroadcastAddress) and returns the
// command addresses of the trees that answer within wait.
func Discover(ctx context.Context, target string, wait time.Duration) ([]string, error) {
	found, err := discovery.Discover(ctx, target, wait)
	addrs := make([]string, 0, len(found))
	for _, a := range found {
		addrs = append(addrs, CommandAddress(a))
	}
	return addrs, err
}

// CommandAddress returns the command port address on host a.
func CommandAddress(a netip.Addr) string {
	return net.JoinHostPort(a.String(), strconv.Itoa(DefaultCommandPort))
}
