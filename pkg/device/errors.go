package device

import "errors"

var (
	// ErrInvalidIndex indicates a pixel index beyond the display's pixel count
	ErrInvalidIndex = errors.New("invalid pixel index")

	// ErrUnavailable indicates the display hardware could not be acquired or written
	ErrUnavailable = errors.New("device unavailable")

	// ErrNotInitialized indicates Apply was called before Initialize
	ErrNotInitialized = errors.New("device not initialized")

	// ErrClosed indicates the controller has been shut down
	ErrClosed = errors.New("device shut down")

	// ErrUnknownCommand indicates a command kind the controller cannot apply
	ErrUnknownCommand = errors.New("unknown command kind")
)
