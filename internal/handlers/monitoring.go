package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/swapstay/swapsync/internal/monitoring"
	synccore "github.com/swapstay/swapsync/internal/sync"
	"github.com/swapstay/swapsync/pkg/logger"
	"github.com/swapstay/swapsync/pkg/response"
)

// MonitoringHandler serves the diagnostics surface: the aggregated summary,
// channel diagnostics, the log tail, and the on-demand connection probe.
type MonitoringHandler struct {
	core    *synccore.Core
	logTail int
}

// NewMonitoringHandler creates a monitoring handler.
func NewMonitoringHandler(core *synccore.Core, logTail int) *MonitoringHandler {
	if logTail <= 0 {
		logTail = 200
	}
	return &MonitoringHandler{core: core, logTail: logTail}
}

// Summary returns the aggregated monitoring summary.
// GET /api/v1/monitoring/summary
func (h *MonitoringHandler) Summary(c *gin.Context) {
	response.Success(c, http.StatusOK, monitoring.Snapshot())
}

// Diagnostics returns a point-in-time view of the sync core.
// GET /api/v1/monitoring/diagnostics
func (h *MonitoringHandler) Diagnostics(c *gin.Context) {
	payload := gin.H{
		"connection": h.core.Connection().Health(),
	}
	if optimistic := h.core.Optimistic(); optimistic != nil {
		payload["pending_updates"] = optimistic.PendingCount()
		payload["audit_trail"] = optimistic.AuditTrail()
	}
	if store := h.core.Notifications(); store != nil {
		payload["unread_notifications"] = store.Unread()
	}
	payload["active_toasts"] = h.core.Toasts().Active()

	response.Success(c, http.StatusOK, payload)
}

// Logs returns the most recent log entries, newest first.
// GET /api/v1/monitoring/logs?limit=100
func (h *MonitoringHandler) Logs(c *gin.Context) {
	limit := h.logTail
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed < limit {
			limit = parsed
		}
	}
	response.Success(c, http.StatusOK, gin.H{"entries": logger.Tail(limit)})
}

// ConnectionTest measures round-trip latency to the event stream.
// POST /api/v1/monitoring/connection-test
func (h *MonitoringHandler) ConnectionTest(c *gin.Context) {
	latency, err := h.core.Connection().TestConnection(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"latency_ms": latency.Milliseconds(),
	})
}
