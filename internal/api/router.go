package api

import (
	"net/http"

	"agrisense/internal/config"
	"agrisense/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(deps Deps, logger *logging.Logger, cfg config.Config) *gin.Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	h := NewHandler(deps, logger)
	basePath := cfg.API.BasePath
	if basePath == "" {
		basePath = "/api/v0"
	}
	api := r.Group(basePath)
	{
		// Pipeline
		api.GET("/snapshot", h.GetSnapshot)
		api.GET("/advisories", h.GetAdvisories)
		api.GET("/vegetation", h.GetVegetation)
		api.GET("/alerts", h.GetAlerts)
		api.GET("/report", h.GetReport)
		api.GET("/report/latest", h.GetLatestReport)
		api.POST("/refresh", h.Refresh)

		// Location
		api.GET("/location", h.GetLocation)
		api.PUT("/location", h.SetLocation)

		// Notifications
		api.GET("/notifications", h.ListNotifications)
		api.POST("/notifications", h.SendNotification)
		api.POST("/notifications/read", h.MarkAllRead)
		api.POST("/notifications/:id/read", h.MarkRead)
		api.DELETE("/notifications", h.ClearNotifications)
		api.GET("/permission", h.GetPermission)
		api.POST("/permission", h.RequestPermission)

		// Advisory history
		api.GET("/history", h.ListHistory)

		api.GET("/ws", h.ServeWS)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return r
}
