package router

import (
	"github.com/gin-gonic/gin"

	"accountability.app/coachflow/internal/http/handler"
	"accountability.app/coachflow/internal/http/middleware"
)

func CoachingRouter(rg *gin.RouterGroup, h *handler.PlanHandler) {
	rg.GET("/declined-areas", h.DeclinedAreas)
	rg.GET("/active-plans", h.ActivePlans)
}

func NotificationRouter(rg *gin.RouterGroup, h *handler.NotificationHandler) {
	rg.GET("/counts", middleware.RequireActor(), h.Counts)
}

func ChangesRouter(rg *gin.RouterGroup, h *handler.ChangesHandler) {
	rg.GET("/stream", h.Stream)
}
