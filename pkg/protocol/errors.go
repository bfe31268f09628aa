package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed indicates the payload is not a well-formed JSON object
	ErrMalformed = errors.New("malformed payload")

	// ErrUnknownType indicates the "type" discriminator is absent or unrecognized
	ErrUnknownType = errors.New("unknown command type")

	// ErrMissingField indicates a required variant field is absent or has the wrong shape
	ErrMissingField = errors.New("missing or invalid field")

	// ErrFrameTooLarge indicates a client sent more than MaxFrameSize bytes without a delimiter
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

// Error is a per-command decode failure. It wraps one of ErrMalformed,
// ErrUnknownType or ErrMissingField and carries the text sent back to the
// client.
type Error struct {
	Kind   error
	Field  string
	Type   string
	Detail error
}

func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Detail != nil:
		return fmt.Sprintf("%v %q: %v", e.Kind, e.Field, e.Detail)
	case e.Field != "":
		return fmt.Sprintf("%v %q", e.Kind, e.Field)
	case e.Type != "":
		return fmt.Sprintf("%v %q", e.Kind, e.Type)
	case e.Detail != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Detail)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Message returns the client-facing description of the failure.
func (e *Error) Message() string {
	switch e.Kind {
	case ErrMalformed:
		return "Invalid JSON format"
	case ErrUnknownType:
		if e.Type == "" {
			return "Missing command type"
		}
		return fmt.Sprintf("Unknown command type: %s", e.Type)
	case ErrMissingField:
		return fmt.Sprintf("Missing or invalid field: %s", e.Field)
	default:
		return e.Error()
	}
}

// IsProtocolError reports whether err is a per-command decode failure.
func IsProtocolError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}
