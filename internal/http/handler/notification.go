package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"accountability.app/coachflow/internal/http/middleware"
	"accountability.app/coachflow/internal/service"
)

type NotificationHandler struct {
	notifications service.NotificationService
}

func NewNotificationHandler(notifications service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) Counts(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	summary, err := h.notifications.Counts(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
