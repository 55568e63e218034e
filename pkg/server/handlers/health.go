// Package handlers implements the gin handlers of the HTTP API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/mnemo"
	"github.com/soundprediction/mnemo/pkg/server/dto"
)

// HealthHandler handles liveness and readiness requests.
type HealthHandler struct {
	engine mnemo.HealthChecker
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(engine mnemo.HealthChecker) *HealthHandler {
	return &HealthHandler{engine: engine}
}

// LivenessCheck handles GET /live; it answers as long as the process
// runs.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "alive"})
}

// HealthCheck handles GET /health, probing the graph backend.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if err := h.engine.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{
			Status: "unhealthy",
			Detail: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "healthy"})
}

// ReadinessCheck handles GET /ready.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if err := h.engine.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{
			Status: "not ready",
			Detail: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ready"})
}
