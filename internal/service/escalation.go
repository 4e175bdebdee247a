package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"accountability.app/coachflow/common/logger"
	"accountability.app/coachflow/internal/changefeed"
	"accountability.app/coachflow/internal/escalation"
	"accountability.app/coachflow/internal/model"
	"accountability.app/coachflow/internal/store"
)

// ActionParams is one caller-declared action on a recommendation or insight.
// ExpectedVersion, when set, must match the stored session version; it lets
// a client refuse to act on a view that is already stale.
type ActionParams struct {
	SessionID       string
	Kind            model.EntityKind
	EntityID        string
	Action          model.Action
	Actor           model.Actor
	Payload         escalation.Payload
	ExpectedVersion *int64
}

type ActionResult struct {
	Session *model.Session
	From    string
	To      string
	Event   model.AuditEvent
}

type EscalationService interface {
	Perform(ctx context.Context, params ActionParams) (*ActionResult, error)
}

type escalationService struct {
	sessions  store.SessionStore
	engine    *escalation.Engine
	publisher changefeed.Publisher
	metrics   *Metrics
}

func NewEscalationService(sessions store.SessionStore, engine *escalation.Engine, publisher changefeed.Publisher, metrics *Metrics) EscalationService {
	if publisher == nil {
		publisher = changefeed.Discard
	}
	return &escalationService{
		sessions:  sessions,
		engine:    engine,
		publisher: publisher,
		metrics:   metrics,
	}
}

func (s *escalationService) Perform(ctx context.Context, params ActionParams) (*ActionResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID:  logger.Ptr(params.SessionID),
		EntityKind: logger.Ptr(string(params.Kind)),
		EntityID:   logger.Ptr(params.EntityID),
		Action:     logger.Ptr(string(params.Action)),
		ActorRole:  logger.Ptr(string(params.Actor.Role)),
		Component:  "coachflow.service.escalation",
	})

	sc := logger.StartSpan(ctx, "escalation.perform")
	defer sc.End()
	ctx = sc.Context()
	sc.TagFromLogFields()

	req := escalation.Request{
		Kind:     params.Kind,
		EntityID: params.EntityID,
		Action:   params.Action,
		Actor:    params.Actor,
		Payload:  params.Payload,
	}

	result, err := s.perform(ctx, params, req)
	s.metrics.recordTransition(ctx, req, err)
	if err != nil {
		sc.RecordError(err)
		if isCallerError(err) {
			slog.InfoContext(ctx, "action rejected", "error", err)
		} else {
			slog.ErrorContext(ctx, "action failed", "error", err)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "action applied",
		"from", result.From,
		"to", result.To,
		"event", result.Event.Event,
		"version", result.Session.Version)
	return result, nil
}

func (s *escalationService) perform(ctx context.Context, params ActionParams, req escalation.Request) (*ActionResult, error) {
	session, err := loadSession(ctx, s.sessions, params.SessionID)
	if err != nil {
		return nil, err
	}
	if err := checkExpectedVersion(session, params.ExpectedVersion); err != nil {
		return nil, err
	}

	outcome, err := s.engine.Perform(*session, req)
	if err != nil {
		return nil, err
	}

	updated := outcome.Session
	if err := saveSession(ctx, s.sessions, &updated, session.Version); err != nil {
		return nil, err
	}

	change := changefeed.FromOutcome(outcome, params.Actor)
	change.Version = updated.Version
	publish(ctx, s.publisher, change)

	return &ActionResult{
		Session: &updated,
		From:    outcome.From,
		To:      outcome.To,
		Event:   outcome.Event,
	}, nil
}

func loadSession(ctx context.Context, sessions store.SessionStore, id string) (*model.Session, error) {
	session, err := sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("session %s: %w", id, escalation.ErrNotFound)
		}
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return session, nil
}

// saveSession writes session back if the stored version is still loaded.
func saveSession(ctx context.Context, sessions store.SessionStore, session *model.Session, loaded int64) error {
	if err := sessions.Update(ctx, session, loaded); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return fmt.Errorf("%w: %w", escalation.ErrConflict, err)
		case errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("session %s: %w", session.ID, escalation.ErrNotFound)
		default:
			return fmt.Errorf("saving session %s: %w", session.ID, err)
		}
	}
	return nil
}

func checkExpectedVersion(session *model.Session, expected *int64) error {
	if expected != nil && *expected != session.Version {
		return fmt.Errorf("%w: session %s is at version %d, caller expected %d",
			escalation.ErrConflict, session.ID, session.Version, *expected)
	}
	return nil
}

// publish announces a change. The write already succeeded, so a feed
// failure is logged and not returned.
func publish(ctx context.Context, publisher changefeed.Publisher, change changefeed.Change) {
	if err := publisher.Publish(ctx, change); err != nil {
		slog.WarnContext(ctx, "failed to publish change", "error", err, "session_id", change.SessionID)
	}
}

func isCallerError(err error) bool {
	return errors.Is(err, escalation.ErrNotFound) ||
		errors.Is(err, escalation.ErrInvalidTransition) ||
		errors.Is(err, escalation.ErrUnauthorized) ||
		errors.Is(err, escalation.ErrValidationFailed) ||
		errors.Is(err, escalation.ErrConflict)
}
