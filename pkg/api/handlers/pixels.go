package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/treelights/pkg/api/types"
	"github.com/urmzd/treelights/pkg/metrics"
	"github.com/urmzd/treelights/pkg/protocol"
)

// PixelsHandler handles pixel read-back and command endpoints
type PixelsHandler struct {
	display  Display
	codec    *protocol.Codec
	recorder metrics.Recorder
}

// NewPixelsHandler creates a new pixels handler
func NewPixelsHandler(display Display, codec *protocol.Codec, recorder metrics.Recorder) *PixelsHandler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &PixelsHandler{display: display, codec: codec, recorder: recorder}
}

// GetPixels handles GET /pixels
// @Summary      Read the pixel buffer
// @Description  Returns the committed color of every pixel
// @Tags         pixels
// @Produce      json
// @Success      200  {object}  types.PixelsResponse
// @Router       /pixels [get]
func (h *PixelsHandler) GetPixels(c *gin.Context) {
	px := h.display.Pixels()
	c.JSON(http.StatusOK, types.PixelsResponse{
		Count:     len(px),
		Pixels:    px,
		Timestamp: time.Now(),
	})
}

// PostCommand handles POST /commands
// @Summary      Apply a command
// @Description  Applies one command in the same JSON format as the TCP command port
// @Tags         pixels
// @Accept       json
// @Produce      json
// @Param        request  body      object  true  "Command, e.g. {\"type\":\"set_all\",\"color\":[1,0,0]}"
// @Success      200      {object}  types.CommandResponse
// @Failure      400      {object}  types.ErrorResponse  "Malformed or invalid command"
// @Failure      413      {object}  types.ErrorResponse  "Command too large"
// @Failure      422      {object}  types.ErrorResponse  "Display rejected the command"
// @Router       /commands [post]
func (h *PixelsHandler) PostCommand(c *gin.Context) {
	start := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, protocol.MaxFrameSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{
				Error:   "too_large",
				Message: protocol.ErrFrameTooLarge.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to read request body",
		})
		return
	}

	cmd, err := h.codec.Decode(body)
	if err != nil {
		h.recorder.RecordCommand(metrics.SourceHTTP, cmd, err, time.Since(start))
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "protocol_error",
			Message: protocol.ResponseFor(err).Message,
		})
		return
	}

	err = h.display.Apply(cmd)
	h.recorder.RecordCommand(metrics.SourceHTTP, cmd, err, time.Since(start))
	if err != nil {
		log.Debug().Err(err).Stringer("command", cmd).Msg("Device rejected command")
		c.JSON(http.StatusUnprocessableEntity, types.ErrorResponse{
			Error:   "device_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.CommandResponse{
		Status:  "ok",
		Command: cmd.String(),
	})
}
