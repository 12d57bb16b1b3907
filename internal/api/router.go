package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/swapstay/swapsync/internal/app"
	"github.com/swapstay/swapsync/internal/handlers"
	"github.com/swapstay/swapsync/internal/middleware"
	"github.com/swapstay/swapsync/internal/monitoring"
	synccore "github.com/swapstay/swapsync/internal/sync"
)

// NewRouter builds the Gin engine serving the agent's local diagnostics
// surface: notification state, toast state, monitoring, and health probes.
func NewRouter(core *synccore.Core, module *monitoring.Module, cfg *app.Config) (*gin.Engine, error) {
	if core == nil {
		return nil, fmt.Errorf("sync core must be provided")
	}
	if module == nil {
		return nil, fmt.Errorf("monitoring module must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())

	if cfg.Monitoring.Health.Enabled {
		healthHandler := handlers.NewHealthHandler(module.Health())
		r.GET("/healthz", healthHandler.Liveness)
		r.GET("/readyz", healthHandler.Readiness)
	}

	monitoringHandler := handlers.NewMonitoringHandler(core, cfg.Monitoring.LogTail)
	notificationHandler := handlers.NewNotificationHandler(core)

	api := r.Group("/api/v1")
	{
		api.GET("/notifications", notificationHandler.List)
		api.POST("/notifications/load-more", notificationHandler.LoadMore)
		api.POST("/notifications/:id/read", notificationHandler.MarkRead)
		api.POST("/notifications/read-all", notificationHandler.MarkAllRead)

		api.GET("/toasts", notificationHandler.Toasts)
		api.DELETE("/toasts/:id", notificationHandler.DismissToast)

		api.GET("/monitoring/summary", monitoringHandler.Summary)
		api.GET("/monitoring/diagnostics", monitoringHandler.Diagnostics)
		api.GET("/monitoring/logs", monitoringHandler.Logs)
		api.POST("/monitoring/connection-test", monitoringHandler.ConnectionTest)
	}

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(module.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)
	return r, nil
}
