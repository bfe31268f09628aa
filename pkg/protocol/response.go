package protocol

import (
	"errors"
	"fmt"
	"strings"
)

const (
	okLine      = "OK"
	errorPrefix = "ERROR: "
)

// Response is the single reply to a command.
type Response struct {
	OK      bool
	Message string
}

// OK is the success reply.
var OK = Response{OK: true}

// ErrorResponse builds a failure reply.
func ErrorResponse(message string) Response {
	return Response{Message: message}
}

// ResponseFor maps the outcome of decoding and applying a command to its
// reply. Protocol errors use their client-facing message; any other error
// uses its text.
func ResponseFor(err error) Response {
	if err == nil {
		return OK
	}
	var pe *Error
	if errors.As(err, &pe) {
		return ErrorResponse(pe.Message())
	}
	return ErrorResponse(err.Error())
}

func (r Response) String() string {
	if r.OK {
		return okLine
	}
	// One reply is one line.
	msg := strings.NewReplacer("\r", " ", "\n", " ").Replace(r.Message)
	return errorPrefix + msg
}

// Encode renders r as a newline-terminated reply line.
func Encode(r Response) []byte {
	return []byte(r.String() + "\n")
}

// ParseResponse parses a reply line as written by Encode.
func ParseResponse(line string) (Response, error) {
	line = strings.TrimRight(line, "\r\n")
	switch {
	case line == okLine:
		return OK, nil
	case strings.HasPrefix(line, errorPrefix):
		return ErrorResponse(strings.TrimPrefix(line, errorPrefix)), nil
	default:
		return Response{}, fmt.Errorf("%w: unexpected reply %q", ErrMalformed, line)
	}
}

// Err returns nil for OK and an error carrying the message otherwise.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	return &RemoteError{Message: r.Message}
}

// RemoteError is a failure reported by the server.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "server: " + e.Message
}
