package handler_test

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"accountability.app/coachflow/internal/escalation"
	"accountability.app/coachflow/internal/http/handler"
	"accountability.app/coachflow/internal/model"
	"accountability.app/coachflow/internal/service"
	"accountability.app/coachflow/internal/store"
)

var _ = Describe("SessionHandler", func() {
	var (
		router   *gin.Engine
		sessions *mockSessionService
		analysis *mockAnalysisService
	)

	BeforeEach(func() {
		router = newRouter()
		sessions = &mockSessionService{}
		analysis = &mockAnalysisService{}
		h := handler.NewSessionHandler(sessions, analysis)
		router.POST("/sessions", h.Create)
		router.GET("/sessions", h.List)
		router.POST("/sessions/analyze", h.Analyze)
		router.GET("/sessions/:session_id", h.Get)
	})

	Describe("Create", func() {
		It("returns 201 with the stored session", func() {
			var captured service.NewSessionParams
			sessions.createFn = func(_ context.Context, params service.NewSessionParams) (*model.Session, error) {
				captured = params
				return &model.Session{ID: "sess-9", SupervisorName: params.SupervisorName, Version: 1}, nil
			}

			w := doJSON(router, http.MethodPost, "/sessions", map[string]any{
				"supervisor_name": "Dana Reyes",
				"employee_name":   "Sam Patel",
				"coaching_recommendations": []map[string]any{{
					"area": "Delegation", "recommendation": "Hand off reporting", "type": "Book", "status": "accepted",
				}},
				"critical_insight": map[string]any{"summary": "Burnout", "severity": "high"},
			}, nil)

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(captured.Result.Recommendations).To(HaveLen(1))
			Expect(captured.Result.Insight).NotTo(BeNil())
			resp := decode(w)
			Expect(resp["session"]).To(HaveKeyWithValue("id", "sess-9"))
		})

		It("returns 400 when a participant is missing", func() {
			w := doJSON(router, http.MethodPost, "/sessions", map[string]any{"supervisor_name": "Dana"}, nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 422 when the analysis is invalid", func() {
			sessions.createFn = func(context.Context, service.NewSessionParams) (*model.Session, error) {
				return nil, escalation.ErrValidationFailed
			}

			w := doJSON(router, http.MethodPost, "/sessions", map[string]any{
				"supervisor_name": "Dana", "employee_name": "Sam",
			}, nil)

			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
			Expect(decode(w)["error"]).To(Equal("validation_failed"))
		})
	})

	Describe("Analyze", func() {
		It("returns 202 with the job id", func() {
			var captured service.AnalysisRequest
			analysis.submitFn = func(_ context.Context, req service.AnalysisRequest) (string, error) {
				captured = req
				return "job-42", nil
			}

			w := doJSON(router, http.MethodPost, "/sessions/analyze", map[string]any{
				"supervisor_name": "Dana", "employee_name": "Sam", "transcript": "hello",
			}, nil)

			Expect(w.Code).To(Equal(http.StatusAccepted))
			Expect(captured.Transcript).To(Equal("hello"))
			Expect(captured.Date.IsZero()).To(BeFalse())
			Expect(decode(w)).To(HaveKeyWithValue("job_id", "job-42"))
		})

		It("returns 503 when no analysis queue is configured", func() {
			router = newRouter()
			router.POST("/sessions/analyze", handler.NewSessionHandler(sessions, nil).Analyze)

			w := doJSON(router, http.MethodPost, "/sessions/analyze", map[string]any{
				"supervisor_name": "Dana", "employee_name": "Sam", "notes": "x",
			}, nil)

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Describe("List", func() {
		It("passes the filters and never returns null", func() {
			var captured store.SessionFilter
			sessions.listFn = func(_ context.Context, filter store.SessionFilter) ([]model.Session, error) {
				captured = filter
				return nil, nil
			}

			w := doJSON(router, http.MethodGet, "/sessions?supervisor=Dana&employee=Sam", nil, nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(captured).To(Equal(store.SessionFilter{SupervisorName: "Dana", EmployeeName: "Sam"}))
			Expect(decode(w)["sessions"]).To(BeEmpty())
			Expect(decode(w)["sessions"]).NotTo(BeNil())
		})

		It("returns 500 and hides store errors", func() {
			sessions.listFn = func(context.Context, store.SessionFilter) ([]model.Session, error) {
				return nil, errors.New("pq: connection refused")
			}

			w := doJSON(router, http.MethodGet, "/sessions", nil, nil)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).NotTo(ContainSubstring("pq"))
		})
	})

	Describe("Get", func() {
		It("returns 404 for an unknown session", func() {
			sessions.getFn = func(context.Context, string) (*model.Session, error) {
				return nil, escalation.ErrNotFound
			}

			w := doJSON(router, http.MethodGet, "/sessions/missing", nil, nil)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("omits available actions for an anonymous caller", func() {
			w := doJSON(router, http.MethodGet, "/sessions/sess-1", nil, nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)).NotTo(HaveKey("available_actions"))
		})

		It("includes the declared actor's available actions", func() {
			var viewer model.Actor
			sessions.actionsFn = func(_ model.Session, v model.Actor) service.AvailableActions {
				viewer = v
				return service.AvailableActions{
					Recommendations: map[string][]model.Action{"rec-1": {model.ActionAccept}},
					Insight:         []model.Action{},
				}
			}

			w := doJSON(router, http.MethodGet, "/sessions/sess-1", nil, supervisor)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(viewer).To(Equal(*supervisor))
			Expect(decode(w)["available_actions"]).To(HaveKeyWithValue("recommendations",
				HaveKeyWithValue("rec-1", ConsistOf("accept"))))
		})

		It("rejects an unknown declared role", func() {
			w := doJSON(router, http.MethodGet, "/sessions/sess-1", nil, &model.Actor{Role: "CEO"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
