// Package rgbtree drives the 3D RGB Xmas tree HAT: a chain of APA102 pixels
// on the Raspberry Pi SPI bus.
package rgbtree

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/treelights/pkg/device"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// DefaultPixels is the pixel count of the tree HAT.
	DefaultPixels = 25

	// DefaultBrightness matches the HAT's stock brightness.
	DefaultBrightness = 0.5

	busSpeed = 8 * physic.MegaHertz
)

// Options configures the tree.
type Options struct {
	// Port is the SPI port name; empty selects the first one registered.
	Port       string
	Pixels     int
	Brightness float64
}

// Controller implements device.Controller for an APA102 chain.
type Controller struct {
	opts Options

	mu     sync.Mutex
	port   spi.PortCloser
	conn   spi.Conn
	pixels []device.RGB
	closed bool
}

// NewController creates a tree controller. No hardware is touched until
// Initialize.
func NewController(opts Options) *Controller {
	if opts.Pixels <= 0 {
		opts.Pixels = DefaultPixels
	}
	if opts.Brightness <= 0 {
		opts.Brightness = DefaultBrightness
	}
	return &Controller{
		opts:   opts,
		pixels: make([]device.RGB, opts.Pixels),
	}
}

func (c *Controller) Initialize(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("%w: periph host init: %v", device.ErrUnavailable, err)
	}
	port, err := spireg.Open(c.opts.Port)
	if err != nil {
		return fmt.Errorf("%w: open SPI port %q: %v", device.ErrUnavailable, c.opts.Port, err)
	}
	conn, err := port.Connect(busSpeed, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return fmt.Errorf("%w: connect SPI: %v", device.ErrUnavailable, err)
	}
	c.port = port
	c.conn = conn

	log.Info().
		Str("port", c.opts.Port).
		Int("pixels", c.opts.Pixels).
		Float64("brightness", c.opts.Brightness).
		Msg("RGB tree initialized")

	return c.flush(c.pixels)
}

func (c *Controller) Apply(cmd device.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return device.ErrClosed
	}
	if c.conn == nil {
		return device.ErrNotInitialized
	}

	next := make([]device.RGB, len(c.pixels))
	copy(next, c.pixels)
	if err := device.ApplyTo(next, cmd); err != nil {
		return err
	}
	if err := c.flush(next); err != nil {
		return err
	}
	c.pixels = next
	return nil
}

func (c *Controller) Pixels() []device.RGB {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]device.RGB, len(c.pixels))
	copy(out, c.pixels)
	return out
}

func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	for i := range c.pixels {
		c.pixels[i] = device.Black
	}
	if c.conn == nil {
		return
	}
	if err := c.flush(c.pixels); err != nil {
		log.Warn().Err(err).Msg("Failed to blank RGB tree")
	}
	if err := c.port.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close SPI port")
	}
	c.conn = nil
	c.port = nil
}

// flush writes a full frame; the caller holds c.mu.
func (c *Controller) flush(pixels []device.RGB) error {
	frame := encodeFrame(pixels, c.opts.Brightness)
	if err := c.conn.Tx(frame, nil); err != nil {
		return fmt.Errorf("%w: SPI write: %v", device.ErrUnavailable, err)
	}
	return nil
}
