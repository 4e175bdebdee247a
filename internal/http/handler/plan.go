package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"accountability.app/coachflow/internal/http/dto"
	"accountability.app/coachflow/internal/http/middleware"
	"accountability.app/coachflow/internal/service"
)

type PlanHandler struct {
	plans service.PlanService
}

func NewPlanHandler(plans service.PlanService) *PlanHandler {
	return &PlanHandler{plans: plans}
}

func (h *PlanHandler) UpdateProgress(c *gin.Context) {
	var req dto.UpdateProgressRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.plans.UpdateProgress(c.Request.Context(), planTarget(c, req.ExpectedVersion), *req.Progress)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{Session: session})
}

func (h *PlanHandler) AddCheckIn(c *gin.Context) {
	var req dto.CheckInRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.plans.AddCheckIn(c.Request.Context(), service.CheckInParams{
		PlanTarget: planTarget(c, req.ExpectedVersion),
		Notes:      req.Notes,
		Rating:     req.Rating,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.SessionResponse{Session: session})
}

func (h *PlanHandler) DeclinedAreas(c *gin.Context) {
	supervisor := c.Query("supervisor")
	areas, err := h.plans.DeclinedAreas(c.Request.Context(), supervisor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DeclinedAreasResponse{Supervisor: supervisor, Areas: areas})
}

func (h *PlanHandler) ActivePlans(c *gin.Context) {
	supervisor := c.Query("supervisor")
	plans, err := h.plans.ActivePlans(c.Request.Context(), supervisor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ActivePlansResponse{Supervisor: supervisor, Plans: plans})
}

func planTarget(c *gin.Context, expectedVersion *int64) service.PlanTarget {
	actor, _ := middleware.ActorFrom(c)
	return service.PlanTarget{
		SessionID:        c.Param("session_id"),
		RecommendationID: c.Param("entity_id"),
		Actor:            actor,
		ExpectedVersion:  expectedVersion,
	}
}
