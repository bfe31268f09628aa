package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// MaxFrameSize bounds a single command frame.
const MaxFrameSize = 64 * 1024

// SplitFrames is a bufio.SplitFunc for the command stream.
//
// A frame normally ends at '\n'. Older clients write one bare JSON object
// per send and block on the reply, so an unterminated buffer is also emitted
// once it holds a complete JSON object. Anything else waits for its newline.
// Returned tokens may be empty or whitespace-only; callers skip those.
func SplitFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, bytes.TrimRight(data[:i], "\r"), nil
	}
	if atEOF {
		if len(data) == 0 {
			return 0, nil, nil
		}
		return len(data), data, nil
	}
	if n, ok := unterminatedFrame(data); ok {
		return n, data[:n], nil
	}
	// Request more data.
	return 0, nil, nil
}

// unterminatedFrame reports the length of a complete JSON object at the
// start of data, which has no newline yet.
func unterminatedFrame(data []byte) (int, bool) {
	trimmed := bytes.TrimLeft(data, " \t\r")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return 0, false
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		// Incomplete or malformed; the newline decides.
		return 0, false
	}
	return int(dec.InputOffset()), true
}

// NewScanner returns a scanner that yields command frames from r.
func NewScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), MaxFrameSize)
	sc.Split(SplitFrames)
	return sc
}

// IsBlank reports whether a frame carries no command.
func IsBlank(frame []byte) bool {
	return len(bytes.TrimSpace(frame)) == 0
}
