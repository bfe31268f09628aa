package device

import (
	"context"
	"fmt"
)

// Controller defines the interface for driving an addressable-LED display.
// Implementations exist per device type (SPI tree, serial strip, in-memory);
// the service selects one at startup and never inspects its concrete type.
type Controller interface {
	// Initialize acquires the display resource. It is called exactly once,
	// before any Apply.
	Initialize(ctx context.Context) error

	// Apply performs the single state change described by cmd.
	Apply(cmd Command) error

	// Pixels returns a copy of the committed pixel buffer
	Pixels() []RGB

	// Shutdown writes Black to every pixel and releases the resource.
	// It is idempotent.
	Shutdown()
}

// EventSubscriber defines the interface for observing committed state changes
type EventSubscriber interface {
	// Subscribe returns a channel that receives a StateEvent per applied command
	Subscribe() chan StateEvent

	// Unsubscribe removes a subscription and closes its channel
	Unsubscribe(ch chan StateEvent)
}

// ApplyTo applies cmd to buf in place. An out-of-range SetPixel leaves buf
// untouched and returns ErrInvalidIndex.
func ApplyTo(buf []RGB, cmd Command) error {
	switch cmd.Kind {
	case KindSetPixel:
		if cmd.Pixel >= uint(len(buf)) {
			return fmt.Errorf("%w: %d (display has %d pixels)", ErrInvalidIndex, cmd.Pixel, len(buf))
		}
		buf[cmd.Pixel] = cmd.Color
	case KindSetAll:
		fill(buf, cmd.Color)
	case KindOff:
		fill(buf, Black)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, string(cmd.Kind))
	}
	return nil
}

func fill(buf []RGB, c RGB) {
	for i := range buf {
		buf[i] = c
	}
}

func clone(buf []RGB) []RGB {
	out := make([]RGB, len(buf))
	copy(out, buf)
	return out
}
