package device

import "fmt"

// RGB is a pixel color as three channel intensities, nominally in [0.0, 1.0].
// Values outside that range are stored as given; clamping is left to the
// hardware encoders.
type RGB [3]float64

// Black is the zero color written by Off and on shutdown.
var Black = RGB{0, 0, 0}

// Kind selects the Command variant.
type Kind string

// Command kinds, matching the wire "type" discriminator.
const (
	KindSetPixel Kind = "set_pixel"
	KindSetAll   Kind = "set_all"
	KindOff      Kind = "off"
)

// Command is a single state change for the display.
//
// Pixel is only meaningful for KindSetPixel and Color for KindSetPixel and
// KindSetAll.
type Command struct {
	Kind  Kind
	Pixel uint
	Color RGB
}

// SetPixel builds a command that writes one pixel.
func SetPixel(index uint, color RGB) Command {
	return Command{Kind: KindSetPixel, Pixel: index, Color: color}
}

// SetAll builds a command that writes every pixel.
func SetAll(color RGB) Command {
	return Command{Kind: KindSetAll, Color: color}
}

// Off builds a command that writes every pixel to Black.
func Off() Command {
	return Command{Kind: KindOff}
}

func (c Command) String() string {
	switch c.Kind {
	case KindSetPixel:
		return fmt.Sprintf("set_pixel(%d, %v)", c.Pixel, c.Color)
	case KindSetAll:
		return fmt.Sprintf("set_all(%v)", c.Color)
	case KindOff:
		return "off"
	default:
		return fmt.Sprintf("unknown(%q)", string(c.Kind))
	}
}

// StateEvent carries the committed pixel buffer after a command was applied.
type StateEvent struct {
	Command Command `json:"-"`
	Pixels  []RGB   `json:"pixels"`
}

// Device type selectors recognized by the drivers package.
const (
	TypeRGBTree  = "rgbtree"
	TypeAdalight = "adalight"
	TypeVirtual  = "virtual"
)
