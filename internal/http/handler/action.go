package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"accountability.app/coachflow/internal/http/dto"
	"accountability.app/coachflow/internal/http/middleware"
	"accountability.app/coachflow/internal/model"
	"accountability.app/coachflow/internal/service"
)

type ActionHandler struct {
	escalation service.EscalationService
	sessions   service.SessionService
}

func NewActionHandler(escalation service.EscalationService, sessions service.SessionService) *ActionHandler {
	return &ActionHandler{escalation: escalation, sessions: sessions}
}

func (h *ActionHandler) Recommendation(c *gin.Context) {
	h.perform(c, model.EntityRecommendation)
}

func (h *ActionHandler) Insight(c *gin.Context) {
	h.perform(c, model.EntityInsight)
}

func (h *ActionHandler) perform(c *gin.Context, kind model.EntityKind) {
	actor, _ := middleware.ActorFrom(c)

	var req dto.ActionRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.escalation.Perform(c.Request.Context(), service.ActionParams{
		SessionID:       c.Param("session_id"),
		Kind:            kind,
		EntityID:        c.Param("entity_id"),
		Action:          req.Action,
		Actor:           actor,
		Payload:         req.Payload,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToActionResponse(result, h.sessions.AvailableActions(*result.Session, actor)))
}
