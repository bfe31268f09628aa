package adalight

import (
	"math"

	"github.com/urmzd/treelights/pkg/device"
)

// encodeFrame renders pixels in the Adalight wire format: the magic "Ada",
// the LED count minus one as a big-endian word, a checksum byte, then one
// RGB triple per pixel.
func encodeFrame(pixels []device.RGB) []byte {
	frame := make([]byte, 6+3*len(pixels))

	n := len(pixels) - 1
	if n < 0 {
		n = 0
	}
	hi, lo := byte(n>>8), byte(n)
	frame[0], frame[1], frame[2] = 'A', 'd', 'a'
	frame[3], frame[4], frame[5] = hi, lo, hi^lo^0x55

	off := 6
	for _, p := range pixels {
		frame[off] = channelByte(p[0])
		frame[off+1] = channelByte(p[1])
		frame[off+2] = channelByte(p[2])
		off += 3
	}
	return frame
}

func channelByte(v float64) byte {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return byte(math.Round(v * 255))
	}
}
