package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/swapstay/swapsync/internal/app"
	"github.com/swapstay/swapsync/internal/models"
	"github.com/swapstay/swapsync/internal/monitoring"
	synccore "github.com/swapstay/swapsync/internal/sync"
)

func setupRouter(t *testing.T) (*gin.Engine, *synccore.Core) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core := synccore.NewCore(synccore.Options{UserID: "user-1"})
	module, err := monitoring.NewModule(monitoring.Options{
		DisableGoCollector:      true,
		DisableProcessCollector: true,
	})
	require.NoError(t, err)

	cfg := &app.Config{}
	cfg.Monitoring.Health.Enabled = true
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Monitoring.Prometheus.Endpoint = "/metrics"
	cfg.Monitoring.LogTail = 100

	router, err := NewRouter(core, module, cfg)
	require.NoError(t, err)
	return router, core
}

func perform(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := setupRouter(t)

	require.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/healthz").Code)
	require.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/readyz").Code)
}

func TestNotificationRoutes(t *testing.T) {
	router, core := setupRouter(t)
	core.Notifications().Add(models.Notification{
		ID:        "n-1",
		Type:      models.NotificationSwapAccepted,
		Title:     "Swap Accepted",
		Status:    models.NotificationDelivered,
		CreatedAt: time.Now(),
	})

	rec := perform(router, http.MethodGet, "/api/v1/notifications")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Meta    struct {
			Total  int `json:"total"`
			Unread int `json:"unread"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, 1, body.Meta.Total)
	require.Equal(t, 1, body.Meta.Unread)

	require.Equal(t, http.StatusOK, perform(router, http.MethodPost, "/api/v1/notifications/n-1/read").Code)
	require.Equal(t, http.StatusNotFound, perform(router, http.MethodPost, "/api/v1/notifications/missing/read").Code)
	require.Equal(t, http.StatusOK, perform(router, http.MethodPost, "/api/v1/notifications/read-all").Code)
}

func TestToastRoutes(t *testing.T) {
	router, core := setupRouter(t)
	core.Notifications().Add(models.Notification{
		ID:        "n-1",
		Type:      models.NotificationSwapProposal,
		Title:     "New Swap Proposal",
		Status:    models.NotificationDelivered,
		CreatedAt: time.Now(),
	})

	rec := perform(router, http.MethodGet, "/api/v1/toasts")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "n-1")

	require.Equal(t, http.StatusOK, perform(router, http.MethodDelete, "/api/v1/toasts/n-1").Code)
	require.Equal(t, http.StatusNotFound, perform(router, http.MethodDelete, "/api/v1/toasts/n-1").Code)
}

func TestMonitoringRoutes(t *testing.T) {
	router, _ := setupRouter(t)

	require.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/api/v1/monitoring/summary").Code)
	require.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/api/v1/monitoring/diagnostics").Code)
	require.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/api/v1/monitoring/logs").Code)
	require.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/metrics").Code)
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	router, _ := setupRouter(t)

	rec := perform(router, http.MethodGet, "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
}
