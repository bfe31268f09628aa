package rgbtree

import (
	"math"

	"github.com/urmzd/treelights/pkg/device"
)

// encodeFrame renders pixels as an APA102 SPI frame: a 32-bit zero start
// frame, one 4-byte LED frame per pixel (brightness header, blue, green,
// red), and an end frame of at least n/2 clock edges.
func encodeFrame(pixels []device.RGB, brightness float64) []byte {
	endLen := (len(pixels) + 15) / 16
	if endLen < 4 {
		endLen = 4
	}
	frame := make([]byte, 4+4*len(pixels)+endLen)

	header := 0xE0 | brightnessBits(brightness)
	off := 4
	for _, p := range pixels {
		frame[off] = header
		frame[off+1] = channelByte(p[2])
		frame[off+2] = channelByte(p[1])
		frame[off+3] = channelByte(p[0])
		off += 4
	}
	for i := off; i < len(frame); i++ {
		frame[i] = 0xFF
	}
	return frame
}

// brightnessBits maps [0,1] onto the 5-bit global brightness field.
func brightnessBits(b float64) byte {
	return byte(math.Round(clamp(b) * 31))
}

func channelByte(v float64) byte {
	return byte(math.Round(clamp(v) * 255))
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
