package server

import "errors"

var (
	// ErrBind indicates a listening socket could not be bound
	ErrBind = errors.New("failed to bind listener")

	// ErrNotListening indicates Serve was called before Listen
	ErrNotListening = errors.New("server is not listening")

	// ErrInvalidCIDR indicates an unparsable entry in the allow-list
	ErrInvalidCIDR = errors.New("invalid CIDR")

	// ErrAlreadyStarted indicates Run was called on a used Supervisor
	ErrAlreadyStarted = errors.New("supervisor already started")
)
