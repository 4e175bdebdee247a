package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"accountability.app/coachflow/internal/http/dto"
	"accountability.app/coachflow/internal/http/middleware"
	"accountability.app/coachflow/internal/model"
	"accountability.app/coachflow/internal/service"
	"accountability.app/coachflow/internal/store"
)

type SessionHandler struct {
	sessions service.SessionService
	analysis service.AnalysisService
}

func NewSessionHandler(sessions service.SessionService, analysis service.AnalysisService) *SessionHandler {
	return &SessionHandler{sessions: sessions, analysis: analysis}
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), req.ToParams())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.SessionResponse{Session: session})
}

// Analyze queues a recorded session for analysis.
func (h *SessionHandler) Analyze(c *gin.Context) {
	if h.analysis == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis queue not configured"})
		return
	}

	var req dto.AnalyzeSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	jobID, err := h.analysis.Submit(c.Request.Context(), req.ToRequest())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.AnalyzeSessionResponse{JobID: jobID, SessionID: jobID})
}

func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context(), store.SessionFilter{
		SupervisorName: c.Query("supervisor"),
		EmployeeName:   c.Query("employee"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}

	c.JSON(http.StatusOK, dto.SessionListResponse{Sessions: sessions})
}

// Get returns the session and, for a declared actor, what they may do next.
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.SessionResponse{Session: session}
	if actor, ok := middleware.ActorFrom(c); ok {
		actions := h.sessions.AvailableActions(*session, actor)
		resp.AvailableActions = &actions
	}
	c.JSON(http.StatusOK, resp)
}
