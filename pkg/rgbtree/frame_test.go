package rgbtree

import (
	"bytes"
	"testing"

	"github.com/urmzd/treelights/pkg/device"
)

func TestEncodeFrame_Layout(t *testing.T) {
	pixels := []device.RGB{{1, 0, 0}, {0, 0.5, 1}}
	frame := encodeFrame(pixels, 1)

	want := []byte{
		0, 0, 0, 0,
		0xFF, 0x00, 0x00, 0xFF,
		0xFF, 0xFF, 0x80, 0x00,
		0xFF, 0xFF, 0xFF, 0xFF,
	}
	if !bytes.Equal(frame, want) {
		t.Errorf("encodeFrame() = % x\nwant % x", frame, want)
	}
}

func TestEncodeFrame_Brightness(t *testing.T) {
	frame := encodeFrame([]device.RGB{{0, 0, 0}}, DefaultBrightness)
	// 0.5 * 31 rounds to 16.
	if frame[4] != 0xE0|16 {
		t.Errorf("header = %#x, want %#x", frame[4], 0xE0|16)
	}

	frame = encodeFrame([]device.RGB{{0, 0, 0}}, 0)
	if frame[4] != 0xE0 {
		t.Errorf("header at zero brightness = %#x", frame[4])
	}
}

func TestEncodeFrame_ClampsChannels(t *testing.T) {
	frame := encodeFrame([]device.RGB{{2.5, -1, 300}}, 1)
	if frame[5] != 0xFF || frame[6] != 0x00 || frame[7] != 0xFF {
		t.Errorf("LED frame = % x, want clamped channels", frame[4:8])
	}
}

func TestEncodeFrame_EndFrameLength(t *testing.T) {
	frame := encodeFrame(make([]device.RGB, DefaultPixels), DefaultBrightness)
	if got, want := len(frame), 4+4*DefaultPixels+4; got != want {
		t.Errorf("len = %d, want %d", got, want)
	}

	frame = encodeFrame(make([]device.RGB, 100), DefaultBrightness)
	if got, want := len(frame), 4+4*100+7; got != want {
		t.Errorf("len(100 pixels) = %d, want %d", got, want)
	}
}

func TestController_ApplyBeforeInitialize(t *testing.T) {
	c := NewController(Options{})
	if err := c.Apply(device.Off()); err != device.ErrNotInitialized {
		t.Errorf("Apply() error = %v, want ErrNotInitialized", err)
	}
	if n := len(c.Pixels()); n != DefaultPixels {
		t.Errorf("Pixels() len = %d, want %d", n, DefaultPixels)
	}

	c.Shutdown()
	if err := c.Apply(device.Off()); err != device.ErrClosed {
		t.Errorf("Apply() after Shutdown error = %v, want ErrClosed", err)
	}
}
