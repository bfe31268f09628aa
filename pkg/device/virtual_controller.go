package device

import (
	"context"
	"sync"
)

// VirtualController keeps the pixel buffer in memory only. It is used for
// development machines without LED hardware and as the reference
// implementation in tests.
type VirtualController struct {
	mu          sync.Mutex
	pixels      []RGB
	initialized bool
	closed      bool
}

// NewVirtualController creates a display with count pixels, all Black.
func NewVirtualController(count int) *VirtualController {
	return &VirtualController{pixels: make([]RGB, count)}
}

func (c *VirtualController) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.initialized = true
	return nil
}

func (c *VirtualController) Apply(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.initialized {
		return ErrNotInitialized
	}
	return ApplyTo(c.pixels, cmd)
}

func (c *VirtualController) Pixels() []RGB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.pixels)
}

func (c *VirtualController) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fill(c.pixels, Black)
	c.closed = true
}

// Len returns the number of pixels.
func (c *VirtualController) Len() int {
	return len(c.pixels)
}
