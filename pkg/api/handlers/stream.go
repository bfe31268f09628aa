package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/treelights/pkg/api/types"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// StreamHandler pushes pixel state over a websocket
type StreamHandler struct {
	display Display
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(display Display) *StreamHandler {
	return &StreamHandler{display: display}
}

// Stream handles GET /stream
// @Summary      Stream pixel state
// @Description  WebSocket that sends a snapshot on connect and the full buffer after every applied command
// @Tags         pixels
// @Success      101  {object}  types.StreamMessage  "Switching protocols"
// @Router       /stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	events := h.display.Subscribe()
	defer h.display.Unsubscribe(events)

	remote := conn.RemoteAddr().String()
	log.Debug().Str("remote", remote).Msg("Stream client connected")
	defer log.Debug().Str("remote", remote).Msg("Stream client disconnected")

	// The read pump only handles control frames and notices the close.
	gone := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg types.StreamMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg) == nil
	}

	if !send(types.StreamMessage{Type: types.StreamSnapshot, Pixels: h.display.Pixels(), Timestamp: time.Now()}) {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "display shut down"),
					time.Now().Add(writeWait))
				return
			}
			if !send(types.StreamMessage{
				Type:      types.StreamUpdate,
				Command:   ev.Command.String(),
				Pixels:    ev.Pixels,
				Timestamp: time.Now(),
			}) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
