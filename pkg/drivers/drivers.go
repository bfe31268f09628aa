// Package drivers selects the device controller for a display definition.
package drivers

import (
	"errors"
	"fmt"

	"github.com/urmzd/treelights/pkg/adalight"
	"github.com/urmzd/treelights/pkg/device"
	"github.com/urmzd/treelights/pkg/rgbtree"
)

// ErrUnknownType indicates a display type with no driver.
var ErrUnknownType = errors.New("unknown display type")

// Settings selects and configures a driver.
type Settings struct {
	Type       string
	Pixels     int
	Brightness float64
	SPIPort    string
	SerialPort string
	BaudRate   int
}

// Types lists the supported display types.
func Types() []string {
	return []string{device.TypeRGBTree, device.TypeAdalight, device.TypeVirtual}
}

// New returns an uninitialized controller for s.
func New(s Settings) (device.Controller, error) {
	switch s.Type {
	case device.TypeRGBTree:
		return rgbtree.NewController(rgbtree.Options{
			Port:       s.SPIPort,
			Pixels:     s.Pixels,
			Brightness: s.Brightness,
		}), nil
	case device.TypeAdalight:
		if s.Pixels <= 0 {
			return nil, fmt.Errorf("adalight display needs a pixel count, got %d", s.Pixels)
		}
		return adalight.NewController(adalight.Options{
			PortPath: s.SerialPort,
			Baud:     s.BaudRate,
			Pixels:   s.Pixels,
		}), nil
	case device.TypeVirtual:
		n := s.Pixels
		if n <= 0 {
			n = rgbtree.DefaultPixels
		}
		return device.NewVirtualController(n), nil
	default:
		return nil, fmt.Errorf("%w %q (supported: %v)", ErrUnknownType, s.Type, Types())
	}
}
