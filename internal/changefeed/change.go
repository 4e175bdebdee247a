// Package changefeed announces that session data changed so connected clients
// can refresh their views and counts.
package changefeed

import (
	"context"
	"slices"
	"time"

	"accountability.app/coachflow/internal/escalation"
	"accountability.app/coachflow/internal/model"
	"accountability.app/coachflow/internal/notification"
)

type Change struct {
	SessionID  string           `json:"session_id"`
	EntityKind model.EntityKind `json:"entity_kind,omitempty"`
	EntityID   string           `json:"entity_id,omitempty"`
	Action     model.Action     `json:"action,omitempty"`
	From       string           `json:"from,omitempty"`
	To         string           `json:"to,omitempty"`
	ActorRole  model.Role       `json:"actor_role,omitempty"`
	Audience   []model.Role     `json:"audience"`
	Version    int64            `json:"version"`
	At         time.Time        `json:"at"`
}

// VisibleTo reports whether a viewer in role should receive the change.
func (c Change) VisibleTo(role model.Role) bool {
	return slices.Contains(c.Audience, role)
}

type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Entry is one change read back from the feed with its stream position.
type Entry struct {
	ID     string
	Change Change
}

type Reader interface {
	// Read blocks up to block for changes after lastID. "$" means only
	// changes published after the call. An empty slice means the wait timed out.
	Read(ctx context.Context, lastID string, block time.Duration) ([]Entry, error)
}

// Discard drops every change. Used when no feed is configured.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, Change) error { return nil }

// FromOutcome describes a successful transition. The audience is the role
// that acted plus the role that now owns the entity, since both pending
// counts moved. Accepting a plan also tells the AM and Manager that a
// development plan started.
func FromOutcome(out *escalation.Outcome, actor model.Actor) Change {
	audience := []model.Role{actor.Role}
	switch out.Kind {
	case model.EntityRecommendation:
		if role, ok := notification.RecommendationAssignee(model.RecommendationStatus(out.To)); ok {
			audience = appendRole(audience, role)
		}
		if out.Action == model.ActionAccept || out.Action == model.ActionDenyDecline {
			audience = appendRole(audience, model.RoleAM)
			audience = appendRole(audience, model.RoleManager)
		}
	case model.EntityInsight:
		if role, ok := notification.AssigneeFor(model.InsightStatus(out.To)); ok {
			audience = appendRole(audience, role)
		}
	}

	return Change{
		SessionID:  out.Session.ID,
		EntityKind: out.Kind,
		EntityID:   out.EntityID,
		Action:     out.Action,
		From:       out.From,
		To:         out.To,
		ActorRole:  actor.Role,
		Audience:   audience,
		Version:    out.Session.Version,
		At:         out.Event.Timestamp,
	}
}

// SessionCreated describes a newly stored session. Its pending
// recommendations land with the Team Lead, an open insight too.
func SessionCreated(session *model.Session) Change {
	return Change{
		SessionID: session.ID,
		ActorRole: model.RoleSystem,
		Audience:  []model.Role{model.RoleTeamLead},
		Version:   session.Version,
		At:        session.CreatedAt,
	}
}

func appendRole(roles []model.Role, role model.Role) []model.Role {
	if role == "" || slices.Contains(roles, role) {
		return roles
	}
	return append(roles, role)
}
