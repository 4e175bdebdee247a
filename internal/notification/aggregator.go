// Package notification derives per-role pending-action counts from sessions.
// Counts are recomputed from current state on every call.
package notification

import (
	"strings"

	"accountability.app/coachflow/internal/model"
)

// Summary splits a viewer's pending count by entity kind.
type Summary struct {
	Role            model.Role `json:"role"`
	Recommendations int        `json:"recommendations"`
	Insights        int        `json:"insights"`
	Total           int        `json:"total"`
}

var recommendationQueue = map[model.Role][]model.RecommendationStatus{
	model.RoleTeamLead: {model.RecommendationPending},
	model.RoleAM:       {model.RecommendationPendingAMReview},
	model.RoleManager:  {model.RecommendationPendingManagerAcknowledgement},
}

var insightQueue = map[model.Role][]model.InsightStatus{
	model.RoleTeamLead: {model.InsightOpen, model.InsightPendingSupervisorRetry},
	model.RoleAM:       {model.InsightPendingAMReview},
	model.RoleManager:  {model.InsightPendingManagerReview},
	model.RoleHRHead:   {model.InsightPendingHRReview, model.InsightPendingFinalHRAction},
	model.RoleEmployee: {model.InsightPendingEmployeeAcknowledgement},
}

// CountPending returns how many entities are waiting on viewer's role.
func CountPending(sessions []model.Session, viewer model.Actor) int {
	return Summarize(sessions, viewer).Total
}

// Summarize counts, per entity kind, the items whose status is one the
// viewer's role acts on next. Employees only see insights from their own
// sessions. A named team lead only sees their own sessions; an unnamed one
// sees every supervisor's queue.
func Summarize(sessions []model.Session, viewer model.Actor) Summary {
	out := Summary{Role: viewer.Role}
	recStatuses := recommendationQueue[viewer.Role]
	insStatuses := insightQueue[viewer.Role]

	for _, s := range sessions {
		if !visible(s, viewer) {
			continue
		}
		for _, r := range s.Recommendations {
			if containsStatus(recStatuses, r.Status) {
				out.Recommendations++
			}
		}
		if s.Insight != nil && containsStatus(insStatuses, s.Insight.Status) {
			out.Insights++
		}
	}
	out.Total = out.Recommendations + out.Insights
	return out
}

func visible(s model.Session, viewer model.Actor) bool {
	switch viewer.Role {
	case model.RoleEmployee:
		return matches(viewer.Name, s.EmployeeName)
	case model.RoleTeamLead:
		return strings.TrimSpace(viewer.Name) == "" || matches(viewer.Name, s.SupervisorName)
	}
	return true
}

func matches(viewer, participant string) bool {
	viewer = strings.TrimSpace(viewer)
	return viewer != "" && strings.EqualFold(viewer, strings.TrimSpace(participant))
}

func containsStatus[S ~string](set []S, status S) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// AssigneeFor reports which role owns the next step for an insight status.
// Resolved insights have no assignee.
func AssigneeFor(status model.InsightStatus) (model.Role, bool) {
	for role, statuses := range insightQueue {
		if containsStatus(statuses, status) {
			return role, true
		}
	}
	return "", false
}

// RecommendationAssignee reports which role owns the next step for a recommendation status.
func RecommendationAssignee(status model.RecommendationStatus) (model.Role, bool) {
	for role, statuses := range recommendationQueue {
		if containsStatus(statuses, status) {
			return role, true
		}
	}
	return "", false
}
