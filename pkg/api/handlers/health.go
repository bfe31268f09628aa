package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/treelights/pkg/api/types"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	display Display
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(display Display) *HealthHandler {
	return &HealthHandler{display: display}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Returns the health of the service and whether the display accepts commands
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Service is healthy"
// @Failure      503  {object}  types.HealthResponse  "Display is not ready"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	status, display, code := "healthy", "ready", http.StatusOK
	if !h.display.Ready() {
		status, display, code = "degraded", "unavailable", http.StatusServiceUnavailable
	}

	c.JSON(code, types.HealthResponse{
		Status:    status,
		Display:   display,
		Timestamp: time.Now(),
	})
}
