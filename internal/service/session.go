package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"accountability.app/coachflow/common/id"
	"accountability.app/coachflow/common/logger"
	"accountability.app/coachflow/internal/analysis"
	"accountability.app/coachflow/internal/changefeed"
	"accountability.app/coachflow/internal/escalation"
	"accountability.app/coachflow/internal/model"
	"accountability.app/coachflow/internal/store"
)

// NewSessionParams carries an analysis produced outside this service.
// Whatever statuses or ids the producer attached are discarded.
type NewSessionParams struct {
	SupervisorName string
	EmployeeName   string
	Date           time.Time
	Result         analysis.Result
}

// AvailableActions lists, per entity, what the viewer may do right now.
type AvailableActions struct {
	Recommendations map[string][]model.Action `json:"recommendations"`
	Insight         []model.Action            `json:"insight"`
}

type SessionService interface {
	Create(ctx context.Context, params NewSessionParams) (*model.Session, error)
	Get(ctx context.Context, id string) (*model.Session, error)
	List(ctx context.Context, filter store.SessionFilter) ([]model.Session, error)
	AvailableActions(session model.Session, viewer model.Actor) AvailableActions
}

type sessionService struct {
	sessions  store.SessionStore
	engine    *escalation.Engine
	publisher changefeed.Publisher
}

func NewSessionService(sessions store.SessionStore, engine *escalation.Engine, publisher changefeed.Publisher) SessionService {
	if publisher == nil {
		publisher = changefeed.Discard
	}
	return &sessionService{sessions: sessions, engine: engine, publisher: publisher}
}

func (s *sessionService) Create(ctx context.Context, params NewSessionParams) (*model.Session, error) {
	in := analysis.Input{
		SupervisorName: params.SupervisorName,
		EmployeeName:   params.EmployeeName,
		Date:           params.Date,
	}
	session, err := analysis.Normalize(in, &params.Result, id.NewString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", escalation.ErrValidationFailed, err)
	}
	if session.SupervisorName == "" || session.EmployeeName == "" {
		return nil, fmt.Errorf("%w: supervisor_name and employee_name are required", escalation.ErrValidationFailed)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: logger.Ptr(session.ID),
		Component: "coachflow.service.session",
	})

	if err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("%w: %w", escalation.ErrConflict, err)
		}
		return nil, fmt.Errorf("creating session: %w", err)
	}

	publish(ctx, s.publisher, changefeed.SessionCreated(session))

	slog.InfoContext(ctx, "session ingested",
		"recommendations", len(session.Recommendations),
		"has_insight", session.Insight != nil)
	return session, nil
}

func (s *sessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	return loadSession(ctx, s.sessions, id)
}

func (s *sessionService) List(ctx context.Context, filter store.SessionFilter) ([]model.Session, error) {
	sessions, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

func (s *sessionService) AvailableActions(session model.Session, viewer model.Actor) AvailableActions {
	out := AvailableActions{
		Recommendations: make(map[string][]model.Action, len(session.Recommendations)),
		Insight:         []model.Action{},
	}
	for _, rec := range session.Recommendations {
		actions := s.engine.Allowed(session, model.EntityRecommendation, rec.ID, viewer)
		if actions == nil {
			actions = []model.Action{}
		}
		out.Recommendations[rec.ID] = actions
	}
	if session.Insight != nil {
		if actions := s.engine.Allowed(session, model.EntityInsight, session.Insight.ID, viewer); actions != nil {
			out.Insight = actions
		}
	}
	return out
}
