package escalation

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"accountability.app/coachflow/internal/model"
)

type participant int

const (
	anyHolder participant = iota
	sessionSupervisor
	sessionEmployee
)

type transitionKey struct {
	from   string
	action model.Action
}

// edge is one allowed transition. Either to or route is set.
type edge[E any] struct {
	role        model.Role
	participant participant
	required    []field
	event       string
	to          string
	route       func(trail []model.AuditEvent) string
	label       func(p Payload) string
	details     func(p Payload) string
	describe    func(entity *E) string
	// guard runs with the payload checks, before anything is applied.
	guard func(p Payload, now time.Time) error
	apply func(entity *E, p Payload, now time.Time)
}

func (e edge[E]) target(trail []model.AuditEvent) string {
	if e.route != nil {
		return e.route(trail)
	}
	return e.to
}

func (e edge[E]) eventLabel(p Payload) string {
	if e.label != nil {
		return e.label(p)
	}
	return e.event
}

func (e edge[E]) eventDetails(entity *E, p Payload) string {
	switch {
	case e.describe != nil:
		return e.describe(entity)
	case e.details != nil:
		return e.details(p)
	}
	return ""
}

func (e edge[E]) authorize(session model.Session, actor model.Actor) error {
	if actor.Role != e.role {
		return fmt.Errorf("requires role %s", e.role)
	}
	switch e.participant {
	case sessionSupervisor:
		if !sameName(actor.Name, session.SupervisorName) {
			return fmt.Errorf("only the session supervisor %q may act", session.SupervisorName)
		}
	case sessionEmployee:
		if !sameName(actor.Name, session.EmployeeName) {
			return fmt.Errorf("only the session employee %q may act", session.EmployeeName)
		}
	}
	return nil
}

func sameName(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

func notes(p Payload) string { return strings.TrimSpace(p.Notes) }

type recommendationEdge = edge[model.CoachingRecommendation]

type insightEdge = edge[model.CriticalInsight]

var recommendationTable = map[transitionKey]recommendationEdge{
	{string(model.RecommendationPending), model.ActionAccept}: {
		role:        model.RoleTeamLead,
		participant: sessionSupervisor,
		event:       "Accepted",
		to:          string(model.RecommendationAccepted),
		describe: func(r *model.CoachingRecommendation) string {
			return fmt.Sprintf("Plan set from %s to %s.", formatDate(r.StartDate), formatDate(r.EndDate))
		},
		guard: func(p Payload, now time.Time) error {
			_, _, err := planWindow(p.StartDate, p.EndDate, now)
			return err
		},
		apply: func(r *model.CoachingRecommendation, p Payload, now time.Time) {
			startPlan(r, p.StartDate, p.EndDate, now)
		},
	},
	{string(model.RecommendationPending), model.ActionDecline}: {
		role:        model.RoleTeamLead,
		participant: sessionSupervisor,
		required:    []field{fieldReason},
		event:       "Declined, pending AM review",
		to:          string(model.RecommendationPendingAMReview),
		details:     func(p Payload) string { return p.Reason },
		apply: func(r *model.CoachingRecommendation, p Payload, _ time.Time) {
			reason := p.Reason
			r.RejectionReason = &reason
		},
	},
	{string(model.RecommendationPendingAMReview), model.ActionUphold}: {
		role:     model.RoleAM,
		required: []field{fieldNotes},
		event:    "Decline Upheld by AM",
		to:       string(model.RecommendationDeclined),
		details:  notes,
	},
	{string(model.RecommendationPendingAMReview), model.ActionApproveDecline}: {
		role:     model.RoleAM,
		required: []field{fieldNotes},
		event:    "Decline Approved by AM",
		to:       string(model.RecommendationPendingManagerAcknowledgement),
		details:  notes,
	},
	{string(model.RecommendationPendingAMReview), model.ActionDenyDecline}: {
		role:     model.RoleAM,
		required: []field{fieldNotes},
		event:    "Decline Denied by AM",
		to:       string(model.RecommendationAccepted),
		details: func(p Payload) string {
			return "Mandatory development plan created. Notes: " + notes(p)
		},
		apply: func(r *model.CoachingRecommendation, _ Payload, now time.Time) {
			startPlan(r, nil, nil, now)
		},
	},
	{string(model.RecommendationPendingManagerAcknowledgement), model.ActionAcknowledge}: {
		role:    model.RoleManager,
		event:   "Acknowledged by Manager",
		to:      string(model.RecommendationDeclined),
		details: notes,
	},
}

var insightTable = map[transitionKey]insightEdge{
	{string(model.InsightOpen), model.ActionRespond}: {
		role:        model.RoleTeamLead,
		participant: sessionSupervisor,
		required:    []field{fieldResponse},
		event:       "Responded",
		to:          string(model.InsightPendingEmployeeAcknowledgement),
		details:     func(p Payload) string { return p.Response },
		apply: func(i *model.CriticalInsight, p Payload, _ time.Time) {
			response := p.Response
			i.SupervisorResponse = &response
		},
	},
	{string(model.InsightPendingEmployeeAcknowledgement), model.ActionAcknowledge}: {
		role:        model.RoleEmployee,
		participant: sessionEmployee,
		required:    []field{fieldAcknowledgement},
		event:       "Acknowledged",
		to:          string(model.InsightResolved),
		details:     Payload.fullAcknowledgement,
		apply:       recordAcknowledgement,
	},
	{string(model.InsightPendingEmployeeAcknowledgement), model.ActionDispute}: {
		role:        model.RoleEmployee,
		participant: sessionEmployee,
		required:    []field{fieldAcknowledgement},
		event:       "Disputed",
		route:       disputeRoute,
		details:     Payload.fullAcknowledgement,
		apply:       recordAcknowledgement,
	},
	{string(model.InsightPendingAMReview), model.ActionCoachSupervisor}: {
		role:     model.RoleAM,
		required: []field{fieldNotes},
		event:    "AM Coaching Notes",
		to:       string(model.InsightPendingSupervisorRetry),
		details:  notes,
	},
	{string(model.InsightPendingAMReview), model.ActionRespondToEmployee}: {
		role:     model.RoleAM,
		required: []field{fieldNotes},
		event:    "AM Responded to Employee",
		to:       string(model.InsightPendingEmployeeAcknowledgement),
		details:  notes,
	},
	{string(model.InsightPendingAMReview), model.ActionEscalate}: {
		role:     model.RoleAM,
		required: []field{fieldNotes},
		event:    "Escalated by AM",
		to:       string(model.InsightPendingManagerReview),
		details: func(p Payload) string {
			return "Case escalated to Manager for direct intervention. Notes: " + notes(p)
		},
	},
	{string(model.InsightPendingSupervisorRetry), model.ActionRetry}: {
		role:        model.RoleTeamLead,
		participant: sessionSupervisor,
		required:    []field{fieldNotes},
		event:       "Supervisor Retry Action",
		to:          string(model.InsightPendingEmployeeAcknowledgement),
		details:     notes,
	},
	{string(model.InsightPendingManagerReview), model.ActionResolve}: {
		role:     model.RoleManager,
		required: []field{fieldNotes},
		event:    "Manager Resolution",
		to:       string(model.InsightPendingEmployeeAcknowledgement),
		details:  notes,
	},
	{string(model.InsightPendingHRReview), model.ActionResolve}: {
		role:     model.RoleHRHead,
		required: []field{fieldNotes},
		event:    "HR Resolution",
		to:       string(model.InsightPendingEmployeeAcknowledgement),
		details:  notes,
	},
	{string(model.InsightPendingFinalHRAction), model.ActionFinalDecision}: {
		role:     model.RoleHRHead,
		required: []field{fieldDecision, fieldNotes},
		to:       string(model.InsightResolved),
		label:    func(p Payload) string { return strings.TrimSpace(p.Decision) },
		details:  notes,
		apply: func(i *model.CriticalInsight, p Payload, _ time.Time) {
			decision := strings.TrimSpace(p.Decision)
			i.FinalDisposition = &decision
		},
	},
}

// disputeRoute picks the next reviewer after an employee disputes a response.
// Each tier that has already answered the employee hands the next dispute to
// the tier above it, so repeated disputes only ever move up.
func disputeRoute(trail []model.AuditEvent) string {
	tier := 0
	for _, ev := range trail {
		var t int
		switch {
		case ev.Action == model.ActionResolve && ev.Actor == model.RoleHRHead:
			t = 3
		case ev.Action == model.ActionResolve && ev.Actor == model.RoleManager:
			t = 2
		case ev.Action == model.ActionRespondToEmployee, ev.Action == model.ActionRetry:
			t = 1
		}
		tier = max(tier, t)
	}

	switch tier {
	case 3:
		return string(model.InsightPendingFinalHRAction)
	case 2:
		return string(model.InsightPendingHRReview)
	case 1:
		return string(model.InsightPendingManagerReview)
	default:
		return string(model.InsightPendingAMReview)
	}
}

func recordAcknowledgement(i *model.CriticalInsight, p Payload, _ time.Time) {
	ack := p.fullAcknowledgement()
	i.EmployeeAcknowledgement = &ack
}

// planWindow resolves a plan's dates: start defaults to now and end to
// start plus PlanLength. The resolved end may not precede the resolved start.
func planWindow(start, end *time.Time, now time.Time) (time.Time, time.Time, error) {
	s := now
	if start != nil {
		s = start.UTC()
	}
	e := s.Add(PlanLength)
	if end != nil {
		e = end.UTC()
	}
	if e.Before(s) {
		return s, e, fmt.Errorf("end_date %s precedes start_date %s", e.Format(time.DateOnly), s.Format(time.DateOnly))
	}
	return s, e, nil
}

// startPlan expects a window already accepted by planWindow.
func startPlan(r *model.CoachingRecommendation, start, end *time.Time, now time.Time) {
	s, e, _ := planWindow(start, end, now)
	progress := 0
	r.StartDate = &s
	r.EndDate = &e
	r.Progress = &progress
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.UTC().Format(time.DateOnly)
}

// ActionsFrom lists every action defined out of status for the entity kind,
// regardless of who may perform it. Terminal statuses return nothing.
func ActionsFrom(kind model.EntityKind, status string) []model.Action {
	var actions []model.Action
	switch kind {
	case model.EntityRecommendation:
		for k := range recommendationTable {
			if k.from == status {
				actions = append(actions, k.action)
			}
		}
	case model.EntityInsight:
		for k := range insightTable {
			if k.from == status {
				actions = append(actions, k.action)
			}
		}
	}
	slices.Sort(actions)
	return actions
}

// RequiredRole reports the role allowed to perform action from status.
func RequiredRole(kind model.EntityKind, status string, action model.Action) (model.Role, bool) {
	k := transitionKey{from: status, action: action}
	switch kind {
	case model.EntityRecommendation:
		if e, ok := recommendationTable[k]; ok {
			return e.role, true
		}
	case model.EntityInsight:
		if e, ok := insightTable[k]; ok {
			return e.role, true
		}
	}
	return "", false
}
