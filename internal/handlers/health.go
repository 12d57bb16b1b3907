package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swapstay/swapsync/internal/monitoring"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	health *monitoring.HealthManager
}

// NewHealthHandler creates a health handler backed by the supplied manager.
func NewHealthHandler(health *monitoring.HealthManager) *HealthHandler {
	return &HealthHandler{health: health}
}

// Liveness reports whether the agent process is alive.
// GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	report := h.health.EvaluateLiveness(c.Request.Context())
	c.JSON(statusFor(report), report)
}

// Readiness reports whether the agent can serve its surfaces.
// GET /readyz
func (h *HealthHandler) Readiness(c *gin.Context) {
	report := h.health.EvaluateReadiness(c.Request.Context())
	c.JSON(statusFor(report), report)
}

func statusFor(report monitoring.HealthReport) int {
	if report.Success {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}
