package router

import (
	"github.com/gin-gonic/gin"

	"accountability.app/coachflow/internal/http/handler"
	"accountability.app/coachflow/internal/http/middleware"
)

// SessionRouter sets up session routes
// - reads and ingestion are open; GET /:session_id adds available actions for a declared actor
// - workflow actions and plan updates require a declared actor
func SessionRouter(rg *gin.RouterGroup, sessions *handler.SessionHandler, actions *handler.ActionHandler, plans *handler.PlanHandler) {
	rg.POST("", sessions.Create)
	rg.GET("", sessions.List)
	rg.POST("/analyze", sessions.Analyze)
	rg.GET("/:session_id", sessions.Get)

	acting := rg.Group("/:session_id")
	acting.Use(middleware.RequireActor())
	{
		acting.POST("/recommendations/:entity_id/actions", actions.Recommendation)
		acting.POST("/insights/:entity_id/actions", actions.Insight)
		acting.PUT("/recommendations/:entity_id/progress", plans.UpdateProgress)
		acting.POST("/recommendations/:entity_id/check-ins", plans.AddCheckIn)
	}
}
