package dto

import (
	"time"

	"accountability.app/coachflow/internal/analysis"
	"accountability.app/coachflow/internal/model"
	"accountability.app/coachflow/internal/service"
)

// CreateSessionRequest ingests an analysis produced elsewhere. Any status,
// id or audit fields in the body are ignored.
type CreateSessionRequest struct {
	SupervisorName  string                             `json:"supervisor_name" binding:"required,max=255"`
	EmployeeName    string                             `json:"employee_name" binding:"required,max=255"`
	Date            *time.Time                         `json:"date"`
	Summary         string                             `json:"summary"`
	Recommendations []analysis.GeneratedRecommendation `json:"coaching_recommendations"`
	Insight         *analysis.GeneratedInsight         `json:"critical_insight"`
}

func (r CreateSessionRequest) ToParams() service.NewSessionParams {
	params := service.NewSessionParams{
		SupervisorName: r.SupervisorName,
		EmployeeName:   r.EmployeeName,
		Result: analysis.Result{
			Summary:         r.Summary,
			Recommendations: r.Recommendations,
			Insight:         r.Insight,
		},
	}
	if r.Date != nil {
		params.Date = *r.Date
	}
	return params
}

type AnalyzeSessionRequest struct {
	SupervisorName string     `json:"supervisor_name" binding:"required,max=255"`
	EmployeeName   string     `json:"employee_name" binding:"required,max=255"`
	Date           *time.Time `json:"date"`
	Notes          string     `json:"notes"`
	Transcript     string     `json:"transcript"`
}

func (r AnalyzeSessionRequest) ToRequest() service.AnalysisRequest {
	req := service.AnalysisRequest{
		SupervisorName: r.SupervisorName,
		EmployeeName:   r.EmployeeName,
		Notes:          r.Notes,
		Transcript:     r.Transcript,
	}
	if r.Date != nil {
		req.Date = *r.Date
	} else {
		req.Date = time.Now().UTC()
	}
	return req
}

// AnalyzeSessionResponse is returned with 202. The session appears under
// SessionID once the worker finishes.
type AnalyzeSessionResponse struct {
	JobID     string `json:"job_id"`
	SessionID string `json:"session_id"`
}

type SessionResponse struct {
	Session          *model.Session            `json:"session"`
	AvailableActions *service.AvailableActions `json:"available_actions,omitempty"`
}

type SessionListResponse struct {
	Sessions []model.Session `json:"sessions"`
}
