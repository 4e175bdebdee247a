package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"accountability.app/coachflow/internal/changefeed"
	"accountability.app/coachflow/internal/escalation"
	"accountability.app/coachflow/internal/model"
	"accountability.app/coachflow/internal/service"
	"accountability.app/coachflow/internal/store"
)

var _ = Describe("EscalationService", func() {
	var (
		ctx       context.Context
		sessions  *mockSessionStore
		publisher *mockPublisher
		svc       service.EscalationService
		seeded    *model.Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		sessions = newMockSessionStore()
		publisher = &mockPublisher{}
		svc = service.NewEscalationService(sessions, escalation.New(), publisher, nil)
		seeded = seedSession(ctx, sessions, "sess-1")
	})

	recParams := func(action model.Action, actor model.Actor, p escalation.Payload) service.ActionParams {
		return service.ActionParams{
			SessionID: seeded.ID,
			Kind:      model.EntityRecommendation,
			EntityID:  seeded.Recommendations[0].ID,
			Action:    action,
			Actor:     actor,
			Payload:   p,
		}
	}

	insightParams := func(action model.Action, actor model.Actor, p escalation.Payload) service.ActionParams {
		return service.ActionParams{
			SessionID: seeded.ID,
			Kind:      model.EntityInsight,
			EntityID:  seeded.Insight.ID,
			Action:    action,
			Actor:     actor,
			Payload:   p,
		}
	}

	Describe("Perform", func() {
		Context("when the action is allowed", func() {
			It("should persist the new status with a bumped version", func() {
				result, err := svc.Perform(ctx, recParams(model.ActionDecline, supervisor, escalation.Payload{Reason: "Already covered"}))

				Expect(err).NotTo(HaveOccurred())
				Expect(result.From).To(Equal(string(model.RecommendationPending)))
				Expect(result.To).To(Equal(string(model.RecommendationPendingAMReview)))
				Expect(result.Event.Actor).To(Equal(model.RoleTeamLead))
				Expect(result.Session.Version).To(Equal(seeded.Version + 1))

				stored, err := sessions.GetByID(ctx, seeded.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(stored.Recommendations[0].Status).To(Equal(model.RecommendationPendingAMReview))
				Expect(stored.Recommendations[0].AuditTrail).To(HaveLen(1))
				Expect(stored.Recommendations[0].RejectionReason).To(HaveValue(Equal("Already covered")))
			})

			It("should publish a change for the actor and the next assignee", func() {
				result, err := svc.Perform(ctx, recParams(model.ActionDecline, supervisor, escalation.Payload{Reason: "Already covered"}))
				Expect(err).NotTo(HaveOccurred())

				changes := publisher.published()
				Expect(changes).To(HaveLen(1))
				Expect(changes[0].SessionID).To(Equal(seeded.ID))
				Expect(changes[0].Action).To(Equal(model.ActionDecline))
				Expect(changes[0].Version).To(Equal(result.Session.Version))
				Expect(changes[0].VisibleTo(model.RoleTeamLead)).To(BeTrue())
				Expect(changes[0].VisibleTo(model.RoleAM)).To(BeTrue())
				Expect(changes[0].VisibleTo(model.RoleEmployee)).To(BeFalse())
			})

			It("should succeed even when publishing fails", func() {
				publisher.publishFn = func(context.Context, changefeed.Change) error {
					return errors.New("redis unavailable")
				}

				_, err := svc.Perform(ctx, insightParams(model.ActionRespond, supervisor, escalation.Payload{Response: "We will rebalance"}))

				Expect(err).NotTo(HaveOccurred())
				stored, _ := sessions.GetByID(ctx, seeded.ID)
				Expect(stored.Insight.Status).To(Equal(model.InsightPendingEmployeeAcknowledgement))
			})

			It("should accept a matching expected version", func() {
				params := recParams(model.ActionAccept, supervisor, escalation.Payload{})
				params.ExpectedVersion = int64Ptr(seeded.Version)

				result, err := svc.Perform(ctx, params)

				Expect(err).NotTo(HaveOccurred())
				Expect(result.Session.Recommendations[0].Status).To(Equal(model.RecommendationAccepted))
				Expect(result.Session.Recommendations[0].StartDate).NotTo(BeNil())
			})
		})

		Context("when the action is rejected", func() {
			It("should return not found for an unknown session", func() {
				params := recParams(model.ActionAccept, supervisor, escalation.Payload{})
				params.SessionID = "missing"

				_, err := svc.Perform(ctx, params)

				Expect(err).To(MatchError(escalation.ErrNotFound))
			})

			It("should return invalid transition for an action outside the current status", func() {
				_, err := svc.Perform(ctx, recParams(model.ActionUphold, am, escalation.Payload{Notes: "ok"}))

				Expect(err).To(MatchError(escalation.ErrInvalidTransition))
			})

			It("should return unauthorized for the wrong role", func() {
				_, err := svc.Perform(ctx, recParams(model.ActionAccept, manager, escalation.Payload{}))

				Expect(err).To(MatchError(escalation.ErrUnauthorized))
			})

			It("should return validation failed when a required field is missing", func() {
				_, err := svc.Perform(ctx, recParams(model.ActionDecline, supervisor, escalation.Payload{Reason: "  "}))

				Expect(err).To(MatchError(escalation.ErrValidationFailed))
			})

			It("should leave the stored session untouched and publish nothing", func() {
				_, err := svc.Perform(ctx, recParams(model.ActionAccept, hrHead, escalation.Payload{}))
				Expect(err).To(HaveOccurred())

				stored, _ := sessions.GetByID(ctx, seeded.ID)
				Expect(stored.Version).To(Equal(seeded.Version))
				Expect(stored.Recommendations[0].AuditTrail).To(BeEmpty())
				Expect(publisher.published()).To(BeEmpty())
			})
		})

		Context("when the session changed concurrently", func() {
			It("should reject a stale expected version", func() {
				params := recParams(model.ActionAccept, supervisor, escalation.Payload{})
				params.ExpectedVersion = int64Ptr(seeded.Version - 1)

				_, err := svc.Perform(ctx, params)

				Expect(err).To(MatchError(escalation.ErrConflict))
			})

			It("should map a store version conflict to a conflict error", func() {
				sessions.updateFn = func(context.Context, *model.Session, int64) error {
					return store.ErrConflict
				}

				_, err := svc.Perform(ctx, recParams(model.ActionAccept, supervisor, escalation.Payload{}))

				Expect(err).To(MatchError(escalation.ErrConflict))
				Expect(publisher.published()).To(BeEmpty())
			})

			It("should let only the first of two racing writers through", func() {
				first := recParams(model.ActionAccept, supervisor, escalation.Payload{})
				first.ExpectedVersion = int64Ptr(seeded.Version)
				second := recParams(model.ActionDecline, supervisor, escalation.Payload{Reason: "No time"})
				second.ExpectedVersion = int64Ptr(seeded.Version)

				_, err := svc.Perform(ctx, first)
				Expect(err).NotTo(HaveOccurred())
				_, err = svc.Perform(ctx, second)
				Expect(err).To(MatchError(escalation.ErrConflict))
			})
		})

		Context("when the store fails", func() {
			It("should wrap the error without mapping it to a workflow error", func() {
				sessions.getByIDFn = func(context.Context, string) (*model.Session, error) {
					return nil, errors.New("connection reset")
				}

				_, err := svc.Perform(ctx, recParams(model.ActionAccept, supervisor, escalation.Payload{}))

				Expect(err).To(MatchError(ContainSubstring("connection reset")))
				Expect(errors.Is(err, escalation.ErrNotFound)).To(BeFalse())
			})
		})
	})

	Describe("a full insight escalation", func() {
		It("should walk a disputed insight up to the HR Head's final decision", func() {
			steps := []struct {
				action model.Action
				actor  model.Actor
				p      escalation.Payload
				want   model.InsightStatus
			}{
				{model.ActionRespond, supervisor, escalation.Payload{Response: "Rebalanced tickets"}, model.InsightPendingEmployeeAcknowledgement},
				{model.ActionDispute, employee, escalation.Payload{Acknowledgement: "Nothing changed"}, model.InsightPendingAMReview},
				{model.ActionEscalate, am, escalation.Payload{Notes: "Needs manager"}, model.InsightPendingManagerReview},
				{model.ActionResolve, manager, escalation.Payload{Notes: "Hiring a contractor"}, model.InsightPendingEmployeeAcknowledgement},
				{model.ActionDispute, employee, escalation.Payload{Acknowledgement: "Still overloaded"}, model.InsightPendingHRReview},
				{model.ActionResolve, hrHead, escalation.Payload{Notes: "Workload audit scheduled"}, model.InsightPendingEmployeeAcknowledgement},
				{model.ActionDispute, employee, escalation.Payload{Acknowledgement: "Audit is not enough"}, model.InsightPendingFinalHRAction},
				{model.ActionFinalDecision, hrHead, escalation.Payload{Decision: escalation.DecisionOmbudsman, Notes: "Referred"}, model.InsightResolved},
			}

			for _, step := range steps {
				result, err := svc.Perform(ctx, insightParams(step.action, step.actor, step.p))
				Expect(err).NotTo(HaveOccurred(), "action %s by %s", step.action, step.actor.Role)
				Expect(result.Session.Insight.Status).To(Equal(step.want))
			}

			stored, err := sessions.GetByID(ctx, seeded.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Insight.AuditTrail).To(HaveLen(len(steps)))
			Expect(stored.Insight.FinalDisposition).To(HaveValue(Equal(escalation.DecisionOmbudsman)))
			Expect(stored.Insight.CheckConsistency()).To(Succeed())
			Expect(publisher.published()).To(HaveLen(len(steps)))
		})
	})
})
