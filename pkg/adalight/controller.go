// Package adalight drives an LED strip behind a serial microcontroller
// running the Adalight sketch.
package adalight

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/treelights/pkg/device"
)

// DefaultBaud is the Adalight sketch's default speed.
const DefaultBaud = 115200

// Options configures a strip.
type Options struct {
	PortPath string
	Baud     int
	Pixels   int
}

// OpenFunc opens the port a strip is written to.
type OpenFunc func(portPath string, baud int) (Port, error)

// Controller implements device.Controller for an Adalight strip.
type Controller struct {
	opts Options
	open OpenFunc

	mu     sync.Mutex
	port   Port
	pixels []device.RGB
	closed bool
}

// NewController creates a strip controller using the system serial ports.
func NewController(opts Options) *Controller {
	return NewControllerWithPort(opts, OpenSerial)
}

// NewControllerWithPort creates a strip controller that opens its port with
// open.
func NewControllerWithPort(opts Options, open OpenFunc) *Controller {
	if opts.Baud <= 0 {
		opts.Baud = DefaultBaud
	}
	return &Controller{
		opts:   opts,
		open:   open,
		pixels: make([]device.RGB, opts.Pixels),
	}
}

func (c *Controller) Initialize(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port != nil {
		return nil
	}
	if c.opts.PortPath == "" {
		return fmt.Errorf("%w: no serial port configured", device.ErrUnavailable)
	}
	if len(c.pixels) == 0 {
		return fmt.Errorf("%w: strip has no pixels", device.ErrUnavailable)
	}

	port, err := c.open(c.opts.PortPath, c.opts.Baud)
	if err != nil {
		return fmt.Errorf("%w: %v", device.ErrUnavailable, err)
	}
	c.port = port

	log.Info().
		Str("port", c.opts.PortPath).
		Int("pixels", len(c.pixels)).
		Msg("Adalight strip initialized")

	return c.flush(c.pixels)
}

func (c *Controller) Apply(cmd device.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return device.ErrClosed
	}
	if c.port == nil {
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
	if c.port == nil {
		return
	}
	if err := c.flush(c.pixels); err != nil {
		log.Warn().Err(err).Msg("Failed to blank strip")
	}
	if err := c.port.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close serial port")
	}
	c.port = nil
}

func (c *Controller) flush(pixels []device.RGB) error {
	if _, err := c.port.Write(encodeFrame(pixels)); err != nil {
		return fmt.Errorf("%w: serial write: %v", device.ErrUnavailable, err)
	}
	return nil
}
