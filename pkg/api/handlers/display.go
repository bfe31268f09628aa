package handlers

import "github.com/urmzd/treelights/pkg/device"

// Display is the shared controller as used by the HTTP handlers.
type Display interface {
	device.EventSubscriber
	Apply(cmd device.Command) error
	Pixels() []device.RGB
	Ready() bool
}

var _ Display = (*device.Shared)(nil)
