package dto

import (
	"accountability.app/coachflow/internal/model"
	"accountability.app/coachflow/internal/service"
)

type UpdateProgressRequest struct {
	Progress        *int   `json:"progress" binding:"required"`
	ExpectedVersion *int64 `json:"expected_version"`
}

type CheckInRequest struct {
	Notes           string               `json:"notes"`
	Rating          *model.CheckInRating `json:"rating"`
	ExpectedVersion *int64               `json:"expected_version"`
}

type DeclinedAreasResponse struct {
	Supervisor string   `json:"supervisor"`
	Areas      []string `json:"areas"`
}

type ActivePlansResponse struct {
	Supervisor string               `json:"supervisor"`
	Plans      []service.ActivePlan `json:"plans"`
}
