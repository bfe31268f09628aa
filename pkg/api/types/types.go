package types

import (
	"time"

	"github.com/urmzd/treelights/pkg/device"
)

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Display   string    `json:"display"`
	Timestamp time.Time `json:"timestamp"`
}

// PixelsResponse is returned from GET /pixels
type PixelsResponse struct {
	Count     int          `json:"count"`
	Pixels    []device.RGB `json:"pixels" swaggertype:"array,number"`
	Timestamp time.Time    `json:"timestamp"`
}

// CommandResponse is returned from POST /commands
type CommandResponse struct {
	Status  string `json:"status"`
	Command string `json:"command"`
}

// StreamMessage is pushed over the pixel stream websocket
type StreamMessage struct {
	Type      string       `json:"type"`
	Command   string       `json:"command,omitempty"`
	Pixels    []device.RGB `json:"pixels"`
	Timestamp time.Time    `json:"timestamp"`
}

// Stream message types
const (
	StreamSnapshot = "snapshot"
	StreamUpdate   = "update"
)
