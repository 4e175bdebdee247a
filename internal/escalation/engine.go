// Package escalation moves coaching recommendations and critical insights
// through their review workflows. Every action is looked up in a transition
// table keyed by (current status, action); the table names the role allowed
// to act, the required payload, the resulting status and the audit label.
//
// The engine never mutates its input. A successful action returns an updated
// copy of the session with exactly one audit event appended to the acted-on
// entity; a rejected action returns an *Error and no session.
package escalation

import (
	"time"

	"accountability.app/coachflow/internal/model"
)

// Request names the entity being acted on and who is acting.
type Request struct {
	Kind     model.EntityKind
	EntityID string
	Action   model.Action
	Actor    model.Actor
	Payload  Payload
}

// Outcome is the result of a successful action. Session is the updated copy
// that the caller is expected to persist.
type Outcome struct {
	Session  model.Session
	Kind     model.EntityKind
	EntityID string
	Action   model.Action
	From     string
	To       string
	Event    model.AuditEvent
}

type Engine struct {
	now func() time.Time
}

type Option func(*Engine)

// WithClock overrides the time source used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Perform validates and applies one action. Checks run in a fixed order:
// entity lookup (ErrNotFound), transition lookup (ErrInvalidTransition), role
// and participant (ErrUnauthorized), then payload (ErrValidationFailed).
func (e *Engine) Perform(session model.Session, req Request) (*Outcome, error) {
	switch req.Kind {
	case model.EntityRecommendation:
		return e.performRecommendation(session, req)
	case model.EntityInsight:
		return e.performInsight(session, req)
	default:
		return nil, reject(req, "", ErrValidationFailed, "unknown entity kind")
	}
}

func (e *Engine) performRecommendation(session model.Session, req Request) (*Outcome, error) {
	updated := session.Clone()
	idx := updated.FindRecommendation(req.EntityID)
	if idx < 0 {
		return nil, reject(req, "", ErrNotFound, "no such recommendation in session "+session.ID)
	}
	rec := &updated.Recommendations[idx]
	from := string(rec.Status)

	ed, ok := recommendationTable[transitionKey{from: from, action: req.Action}]
	if !ok {
		return nil, reject(req, from, ErrInvalidTransition, "")
	}
	now := e.now().UTC()
	if err := check(ed, session, req, from, now); err != nil {
		return nil, err
	}

	to := ed.target(rec.AuditTrail)
	if ed.apply != nil {
		ed.apply(rec, req.Payload, now)
	}
	rec.Status = model.RecommendationStatus(to)
	event := newEvent(ed, rec, req, to, now)
	rec.AuditTrail = append(rec.AuditTrail, event)
	updated.UpdatedAt = now

	return &Outcome{
		Session:  updated,
		Kind:     req.Kind,
		EntityID: req.EntityID,
		Action:   req.Action,
		From:     from,
		To:       to,
		Event:    event,
	}, nil
}

func (e *Engine) performInsight(session model.Session, req Request) (*Outcome, error) {
	updated := session.Clone()
	if updated.Insight == nil || updated.Insight.ID != req.EntityID {
		return nil, reject(req, "", ErrNotFound, "no such insight in session "+session.ID)
	}
	ins := updated.Insight
	from := string(ins.Status)

	ed, ok := insightTable[transitionKey{from: from, action: req.Action}]
	if !ok {
		return nil, reject(req, from, ErrInvalidTransition, "")
	}
	now := e.now().UTC()
	if err := check(ed, session, req, from, now); err != nil {
		return nil, err
	}

	to := ed.target(ins.AuditTrail)
	if ed.apply != nil {
		ed.apply(ins, req.Payload, now)
	}
	ins.Status = model.InsightStatus(to)
	event := newEvent(ed, ins, req, to, now)
	ins.AuditTrail = append(ins.AuditTrail, event)
	updated.UpdatedAt = now

	return &Outcome{
		Session:  updated,
		Kind:     req.Kind,
		EntityID: req.EntityID,
		Action:   req.Action,
		From:     from,
		To:       to,
		Event:    event,
	}, nil
}

func check[E any](ed edge[E], session model.Session, req Request, from string, now time.Time) error {
	if err := ed.authorize(session, req.Actor); err != nil {
		return reject(req, from, ErrUnauthorized, err.Error())
	}
	if err := req.Payload.validate(ed.required); err != nil {
		return reject(req, from, ErrValidationFailed, err.Error())
	}
	if ed.guard != nil {
		if err := ed.guard(req.Payload, now); err != nil {
			return reject(req, from, ErrValidationFailed, err.Error())
		}
	}
	return nil
}

func newEvent[E any](ed edge[E], entity *E, req Request, to string, now time.Time) model.AuditEvent {
	return model.AuditEvent{
		Event:           ed.eventLabel(req.Payload),
		Action:          req.Action,
		Actor:           req.Actor.Role,
		ActorName:       req.Actor.Name,
		Timestamp:       now,
		Details:         ed.eventDetails(entity, req.Payload),
		ResultingStatus: to,
	}
}

// Allowed lists the actions actor may take on the entity right now. It
// applies the same role and participant rules as Perform but ignores payload.
func (e *Engine) Allowed(session model.Session, kind model.EntityKind, entityID string, actor model.Actor) []model.Action {
	var allowed []model.Action
	switch kind {
	case model.EntityRecommendation:
		idx := session.FindRecommendation(entityID)
		if idx < 0 {
			return nil
		}
		from := string(session.Recommendations[idx].Status)
		for _, action := range ActionsFrom(kind, from) {
			if recommendationTable[transitionKey{from, action}].authorize(session, actor) == nil {
				allowed = append(allowed, action)
			}
		}
	case model.EntityInsight:
		if session.Insight == nil || session.Insight.ID != entityID {
			return nil
		}
		from := string(session.Insight.Status)
		for _, action := range ActionsFrom(kind, from) {
			if insightTable[transitionKey{from, action}].authorize(session, actor) == nil {
				allowed = append(allowed, action)
			}
		}
	}
	return allowed
}
