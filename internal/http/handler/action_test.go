package handler_test

import (
	"context"
	"fmt"
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

var _ = Describe("ActionHandler", func() {
	var (
		router *gin.Engine
		svc    *mockEscalationService
	)

	BeforeEach(func() {
		router = newRouter()
		svc = &mockEscalationService{}
		h := handler.NewActionHandler(svc, &mockSessionService{})
		router.POST("/sessions/:session_id/recommendations/:entity_id/actions", h.Recommendation)
		router.POST("/sessions/:session_id/insights/:entity_id/actions", h.Insight)
	})

	It("passes the path, actor, payload and expected version through", func() {
		var captured service.ActionParams
		svc.performFn = func(_ context.Context, params service.ActionParams) (*service.ActionResult, error) {
			captured = params
			return &service.ActionResult{
				Session: &model.Session{ID: params.SessionID, Version: 4},
				From:    "pending",
				To:      "pending_am_review",
			}, nil
		}

		w := doJSON(router, http.MethodPost, "/sessions/s1/recommendations/r1/actions", map[string]any{
			"action":           "decline",
			"reason":           "Covered last quarter",
			"expected_version": 3,
		}, supervisor)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(captured.SessionID).To(Equal("s1"))
		Expect(captured.EntityID).To(Equal("r1"))
		Expect(captured.Kind).To(Equal(model.EntityRecommendation))
		Expect(captured.Action).To(Equal(model.ActionDecline))
		Expect(captured.Actor).To(Equal(*supervisor))
		Expect(captured.Payload.Reason).To(Equal("Covered last quarter"))
		Expect(captured.ExpectedVersion).To(HaveValue(Equal(int64(3))))

		resp := decode(w)
		Expect(resp["to"]).To(Equal("pending_am_review"))
		Expect(resp).To(HaveKey("available_actions"))
	})

	It("routes insight actions to the insight kind", func() {
		var kind model.EntityKind
		svc.performFn = func(_ context.Context, params service.ActionParams) (*service.ActionResult, error) {
			kind = params.Kind
			return &service.ActionResult{Session: &model.Session{ID: params.SessionID}}, nil
		}

		w := doJSON(router, http.MethodPost, "/sessions/s1/insights/i1/actions", map[string]any{
			"action": "escalate", "notes": "needs manager",
		}, amActor)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(kind).To(Equal(model.EntityInsight))
	})

	It("returns 400 without an action", func() {
		w := doJSON(router, http.MethodPost, "/sessions/s1/recommendations/r1/actions", map[string]any{}, supervisor)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	DescribeTable("maps workflow errors to status codes",
		func(err error, status int, label string) {
			svc.performFn = func(context.Context, service.ActionParams) (*service.ActionResult, error) {
				return nil, err
			}

			w := doJSON(router, http.MethodPost, "/sessions/s1/recommendations/r1/actions", map[string]any{"action": "accept"}, supervisor)

			Expect(w.Code).To(Equal(status))
			Expect(decode(w)["error"]).To(Equal(label))
		},
		Entry("not found", fmt.Errorf("session s1: %w", escalation.ErrNotFound), http.StatusNotFound, "not_found"),
		Entry("unauthorized", escalation.ErrUnauthorized, http.StatusForbidden, "unauthorized"),
		Entry("invalid transition", escalation.ErrInvalidTransition, http.StatusConflict, "invalid_transition"),
		Entry("validation failed", escalation.ErrValidationFailed, http.StatusUnprocessableEntity, "validation_failed"),
		Entry("conflict", fmt.Errorf("%w: %w", escalation.ErrConflict, store.ErrConflict), http.StatusConflict, "conflict"),
		Entry("anything else", fmt.Errorf("boom"), http.StatusInternalServerError, "internal server error"),
	)
})
