package dto

import (
	"accountability.app/coachflow/internal/escalation"
	"accountability.app/coachflow/internal/model"
	"accountability.app/coachflow/internal/service"
)

type ActionRequest struct {
	Action model.Action `json:"action" binding:"required"`
	escalation.Payload
	ExpectedVersion *int64 `json:"expected_version"`
}

type ActionResponse struct {
	Session          *model.Session           `json:"session"`
	From             string                   `json:"from"`
	To               string                   `json:"to"`
	Event            model.AuditEvent         `json:"event"`
	AvailableActions service.AvailableActions `json:"available_actions"`
}

func ToActionResponse(result *service.ActionResult, actions service.AvailableActions) *ActionResponse {
	return &ActionResponse{
		Session:          result.Session,
		From:             result.From,
		To:               result.To,
		Event:            result.Event,
		AvailableActions: actions,
	}
}
