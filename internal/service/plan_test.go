package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"accountability.app/coachflow/internal/escalation"
	"accountability.app/coachflow/internal/model"
	"accountability.app/coachflow/internal/service"
)

var _ = Describe("PlanService", func() {
	var (
		ctx       context.Context
		sessions  *mockSessionStore
		publisher *mockPublisher
		actions   service.EscalationService
		svc       service.PlanService
		seeded    *model.Session
		recID     string
	)

	perform := func(action model.Action, actor model.Actor, p escalation.Payload) {
		_, err := actions.Perform(ctx, service.ActionParams{
			SessionID: seeded.ID,
			Kind:      model.EntityRecommendation,
			EntityID:  recID,
			Action:    action,
			Actor:     actor,
			Payload:   p,
		})
		Expect(err).NotTo(HaveOccurred())
	}

	target := func(actor model.Actor) service.PlanTarget {
		return service.PlanTarget{SessionID: seeded.ID, RecommendationID: recID, Actor: actor}
	}

	BeforeEach(func() {
		ctx = context.Background()
		sessions = newMockSessionStore()
		publisher = &mockPublisher{}
		actions = service.NewEscalationService(sessions, escalation.New(), nil, nil)
		svc = service.NewPlanService(sessions, publisher)
		seeded = seedSession(ctx, sessions, "sess-plan")
		recID = seeded.Recommendations[0].ID
	})

	Describe("UpdateProgress", func() {
		It("should record progress on an accepted plan", func() {
			perform(model.ActionAccept, supervisor, escalation.Payload{})

			session, err := svc.UpdateProgress(ctx, target(supervisor), 40)

			Expect(err).NotTo(HaveOccurred())
			rec := session.Recommendations[0]
			Expect(rec.Progress).To(HaveValue(Equal(40)))
			Expect(rec.Status).To(Equal(model.RecommendationAccepted))
			Expect(rec.AuditTrail).To(HaveLen(1))
			Expect(rec.CheckConsistency()).To(Succeed())

			changes := publisher.published()
			Expect(changes).To(HaveLen(1))
			Expect(changes[0].Action).To(Equal(service.ActionUpdateProgress))
			Expect(changes[0].Version).To(Equal(session.Version))
		})

		It("should reject progress outside 0..100", func() {
			perform(model.ActionAccept, supervisor, escalation.Payload{})

			_, err := svc.UpdateProgress(ctx, target(supervisor), 101)

			Expect(err).To(MatchError(escalation.ErrValidationFailed))
		})

		It("should refuse a recommendation that was never accepted", func() {
			_, err := svc.UpdateProgress(ctx, target(supervisor), 10)

			Expect(err).To(MatchError(escalation.ErrInvalidTransition))
		})

		It("should refuse anyone but the session's supervisor", func() {
			perform(model.ActionAccept, supervisor, escalation.Payload{})

			_, err := svc.UpdateProgress(ctx, target(am), 10)
			Expect(err).To(MatchError(escalation.ErrUnauthorized))

			_, err = svc.UpdateProgress(ctx, target(model.Actor{Role: model.RoleTeamLead, Name: "Other Lead"}), 10)
			Expect(err).To(MatchError(escalation.ErrUnauthorized))
		})

		It("should return not found for an unknown recommendation", func() {
			t := target(supervisor)
			t.RecommendationID = "nope"

			_, err := svc.UpdateProgress(ctx, t, 10)

			Expect(err).To(MatchError(escalation.ErrNotFound))
		})

		It("should reject a stale expected version", func() {
			perform(model.ActionAccept, supervisor, escalation.Payload{})
			t := target(supervisor)
			t.ExpectedVersion = int64Ptr(seeded.Version)

			_, err := svc.UpdateProgress(ctx, t, 10)

			Expect(err).To(MatchError(escalation.ErrConflict))
		})
	})

	Describe("AddCheckIn", func() {
		It("should append a check-in with an id and the optional rating", func() {
			perform(model.ActionAccept, supervisor, escalation.Payload{})
			rating := model.RatingNeedsSupport

			session, err := svc.AddCheckIn(ctx, service.CheckInParams{
				PlanTarget: target(supervisor),
				Notes:      "  Read two chapters  ",
				Rating:     &rating,
			})

			Expect(err).NotTo(HaveOccurred())
			checkIns := session.Recommendations[0].CheckIns
			Expect(checkIns).To(HaveLen(1))
			Expect(checkIns[0].ID).NotTo(BeEmpty())
			Expect(checkIns[0].Notes).To(Equal("Read two chapters"))
			Expect(checkIns[0].Rating).To(HaveValue(Equal(model.RatingNeedsSupport)))
		})

		It("should require notes", func() {
			perform(model.ActionAccept, supervisor, escalation.Payload{})

			_, err := svc.AddCheckIn(ctx, service.CheckInParams{PlanTarget: target(supervisor), Notes: " "})

			Expect(err).To(MatchError(escalation.ErrValidationFailed))
		})

		It("should reject an unknown rating", func() {
			perform(model.ActionAccept, supervisor, escalation.Payload{})
			rating := model.CheckInRating("Great")

			_, err := svc.AddCheckIn(ctx, service.CheckInParams{PlanTarget: target(supervisor), Notes: "ok", Rating: &rating})

			Expect(err).To(MatchError(escalation.ErrValidationFailed))
		})
	})

	Describe("DeclinedAreas", func() {
		It("should list areas declined or awaiting manager acknowledgement once each", func() {
			perform(model.ActionDecline, supervisor, escalation.Payload{Reason: "Not relevant"})
			perform(model.ActionApproveDecline, am, escalation.Payload{Notes: "Fine"})

			second := seedSession(ctx, sessions, "sess-plan-2")
			_, err := actions.Perform(ctx, service.ActionParams{
				SessionID: second.ID,
				Kind:      model.EntityRecommendation,
				EntityID:  second.Recommendations[0].ID,
				Action:    model.ActionDecline,
				Actor:     supervisor,
				Payload:   escalation.Payload{Reason: "Again"},
			})
			Expect(err).NotTo(HaveOccurred())

			areas, err := svc.DeclinedAreas(ctx, "DANA REYES")

			Expect(err).NotTo(HaveOccurred())
			Expect(areas).To(Equal([]string{"Active listening"}))
		})

		It("should require a supervisor", func() {
			_, err := svc.DeclinedAreas(ctx, "")
			Expect(err).To(MatchError(escalation.ErrValidationFailed))
		})
	})

	Describe("ActivePlans", func() {
		It("should list accepted recommendations with their progress", func() {
			perform(model.ActionAccept, supervisor, escalation.Payload{})
			_, err := svc.UpdateProgress(ctx, target(supervisor), 25)
			Expect(err).NotTo(HaveOccurred())

			plans, err := svc.ActivePlans(ctx, supervisor.Name)

			Expect(err).NotTo(HaveOccurred())
			Expect(plans).To(HaveLen(1))
			Expect(plans[0].RecommendationID).To(Equal(recID))
			Expect(plans[0].EmployeeName).To(Equal(employee.Name))
			Expect(plans[0].Progress).To(Equal(25))
			Expect(plans[0].StartDate).NotTo(BeNil())
			Expect(plans[0].EndDate).NotTo(BeNil())
		})

		It("should be empty for a supervisor with no plans", func() {
			plans, err := svc.ActivePlans(ctx, "Nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(plans).To(BeEmpty())
		})
	})
})
