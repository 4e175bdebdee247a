package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"accountability.app/coachflow/internal/changefeed"
	"accountability.app/coachflow/internal/http/handler"
	"accountability.app/coachflow/internal/http/middleware"
	"accountability.app/coachflow/internal/service"
)

type RouterConfig struct {
	// Feed backs the change stream. Nil answers the stream with 503.
	Feed changefeed.Reader
	// AnalysisEnabled exposes POST /sessions/analyze.
	AnalysisEnabled bool
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		if cfg.Ready != nil {
			if err := cfg.Ready(c.Request.Context()); err != nil {
				slog.WarnContext(c.Request.Context(), "readiness check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.DeclaredActor())
	{
		var analysis service.AnalysisService
		if cfg.AnalysisEnabled {
			analysis = services.Analysis()
		}
		sessionHandler := handler.NewSessionHandler(services.Sessions(), analysis)
		actionHandler := handler.NewActionHandler(services.Escalation(), services.Sessions())
		planHandler := handler.NewPlanHandler(services.Plans())
		SessionRouter(v1.Group("/sessions"), sessionHandler, actionHandler, planHandler)
		CoachingRouter(v1.Group("/coaching"), planHandler)

		notificationHandler := handler.NewNotificationHandler(services.Notifications())
		NotificationRouter(v1.Group("/notifications"), notificationHandler)

		changesHandler := handler.NewChangesHandler(cfg.Feed)
		ChangesRouter(v1.Group("/changes"), changesHandler)
	}
}
