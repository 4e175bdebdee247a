package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"accountability.app/coachflow/common/logger"
	"accountability.app/coachflow/internal/changefeed"
	"accountability.app/coachflow/internal/escalation"
	"accountability.app/coachflow/internal/model"
	"accountability.app/coachflow/internal/store"
)

// Plan updates are not workflow transitions; they are announced on the feed
// under these labels.
const (
	ActionUpdateProgress model.Action = "update_progress"
	ActionAddCheckIn     model.Action = "add_check_in"
)

type PlanTarget struct {
	SessionID        string
	RecommendationID string
	Actor            model.Actor
	ExpectedVersion  *int64
}

type CheckInParams struct {
	PlanTarget
	Notes  string
	Rating *model.CheckInRating
}

// ActivePlan is an accepted recommendation the supervisor is working through.
type ActivePlan struct {
	SessionID        string     `json:"session_id"`
	RecommendationID string     `json:"recommendation_id"`
	EmployeeName     string     `json:"employee_name"`
	Area             string     `json:"area"`
	Recommendation   string     `json:"recommendation"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	Progress         int        `json:"progress"`
	CheckIns         int        `json:"check_ins"`
}

type PlanService interface {
	UpdateProgress(ctx context.Context, target PlanTarget, progress int) (*model.Session, error)
	AddCheckIn(ctx context.Context, params CheckInParams) (*model.Session, error)
	DeclinedAreas(ctx context.Context, supervisor string) ([]string, error)
	ActivePlans(ctx context.Context, supervisor string) ([]ActivePlan, error)
}

type planService struct {
	sessions  store.SessionStore
	publisher changefeed.Publisher
	now       func() time.Time
}

func NewPlanService(sessions store.SessionStore, publisher changefeed.Publisher) PlanService {
	if publisher == nil {
		publisher = changefeed.Discard
	}
	return &planService{sessions: sessions, publisher: publisher, now: time.Now}
}

func (s *planService) UpdateProgress(ctx context.Context, target PlanTarget, progress int) (*model.Session, error) {
	if progress < 0 || progress > 100 {
		return nil, fmt.Errorf("%w: progress must be between 0 and 100, got %d", escalation.ErrValidationFailed, progress)
	}
	return s.mutate(ctx, target, ActionUpdateProgress, func(rec *model.CoachingRecommendation, _ time.Time) {
		rec.Progress = &progress
	})
}

func (s *planService) AddCheckIn(ctx context.Context, params CheckInParams) (*model.Session, error) {
	notes := strings.TrimSpace(params.Notes)
	if notes == "" {
		return nil, fmt.Errorf("%w: notes are required", escalation.ErrValidationFailed)
	}
	if params.Rating != nil && !validRating(*params.Rating) {
		return nil, fmt.Errorf("%w: unknown rating %q", escalation.ErrValidationFailed, *params.Rating)
	}
	return s.mutate(ctx, params.PlanTarget, ActionAddCheckIn, func(rec *model.CoachingRecommendation, now time.Time) {
		rec.CheckIns = append(rec.CheckIns, model.CheckIn{
			ID:     uuid.NewString(),
			Date:   now,
			Notes:  notes,
			Rating: params.Rating,
		})
	})
}

// mutate applies fn to an accepted recommendation owned by the session's
// supervisor and persists the result under the loaded version.
func (s *planService) mutate(ctx context.Context, target PlanTarget, action model.Action, fn func(*model.CoachingRecommendation, time.Time)) (*model.Session, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID:  logger.Ptr(target.SessionID),
		EntityKind: logger.Ptr(string(model.EntityRecommendation)),
		EntityID:   logger.Ptr(target.RecommendationID),
		Action:     logger.Ptr(string(action)),
		ActorRole:  logger.Ptr(string(target.Actor.Role)),
		Component:  "coachflow.service.plan",
	})

	session, err := loadSession(ctx, s.sessions, target.SessionID)
	if err != nil {
		return nil, err
	}
	if err := checkExpectedVersion(session, target.ExpectedVersion); err != nil {
		return nil, err
	}

	updated := session.Clone()
	idx := updated.FindRecommendation(target.RecommendationID)
	if idx < 0 {
		return nil, fmt.Errorf("recommendation %s: %w", target.RecommendationID, escalation.ErrNotFound)
	}
	rec := &updated.Recommendations[idx]
	if rec.Status != model.RecommendationAccepted {
		return nil, fmt.Errorf("%w: recommendation %s is %s, plans exist only once accepted",
			escalation.ErrInvalidTransition, rec.ID, rec.Status)
	}
	if target.Actor.Role != model.RoleTeamLead || !strings.EqualFold(strings.TrimSpace(target.Actor.Name), strings.TrimSpace(updated.SupervisorName)) {
		return nil, fmt.Errorf("%w: only the session's supervisor updates the plan", escalation.ErrUnauthorized)
	}

	now := s.now().UTC()
	fn(rec, now)
	updated.UpdatedAt = now

	if err := saveSession(ctx, s.sessions, &updated, session.Version); err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, changefeed.Change{
		SessionID:  updated.ID,
		EntityKind: model.EntityRecommendation,
		EntityID:   rec.ID,
		Action:     action,
		From:       string(rec.Status),
		To:         string(rec.Status),
		ActorRole:  target.Actor.Role,
		Audience:   []model.Role{model.RoleTeamLead, model.RoleAM, model.RoleManager},
		Version:    updated.Version,
		At:         now,
	})

	slog.InfoContext(ctx, "development plan updated", "version", updated.Version)
	return &updated, nil
}

func (s *planService) DeclinedAreas(ctx context.Context, supervisor string) ([]string, error) {
	sessions, err := s.supervisorSessions(ctx, supervisor)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	areas := []string{}
	for _, session := range sessions {
		for _, rec := range session.Recommendations {
			if rec.Status != model.RecommendationDeclined && rec.Status != model.RecommendationPendingManagerAcknowledgement {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(rec.Area))
			if _, ok := seen[key]; ok || key == "" {
				continue
			}
			seen[key] = struct{}{}
			areas = append(areas, rec.Area)
		}
	}
	return areas, nil
}

func (s *planService) ActivePlans(ctx context.Context, supervisor string) ([]ActivePlan, error) {
	sessions, err := s.supervisorSessions(ctx, supervisor)
	if err != nil {
		return nil, err
	}

	plans := []ActivePlan{}
	for _, session := range sessions {
		for _, rec := range session.Recommendations {
			if rec.Status != model.RecommendationAccepted {
				continue
			}
			plan := ActivePlan{
				SessionID:        session.ID,
				RecommendationID: rec.ID,
				EmployeeName:     session.EmployeeName,
				Area:             rec.Area,
				Recommendation:   rec.Recommendation,
				StartDate:        rec.StartDate,
				EndDate:          rec.EndDate,
				CheckIns:         len(rec.CheckIns),
			}
			if rec.Progress != nil {
				plan.Progress = *rec.Progress
			}
			plans = append(plans, plan)
		}
	}
	return plans, nil
}

func (s *planService) supervisorSessions(ctx context.Context, supervisor string) ([]model.Session, error) {
	if strings.TrimSpace(supervisor) == "" {
		return nil, fmt.Errorf("%w: supervisor is required", escalation.ErrValidationFailed)
	}
	sessions, err := s.sessions.List(ctx, store.SessionFilter{SupervisorName: supervisor})
	if err != nil {
		return nil, fmt.Errorf("listing sessions for %s: %w", supervisor, err)
	}
	return sessions, nil
}

func validRating(r model.CheckInRating) bool {
	switch r {
	case model.RatingOnTrack, model.RatingNeedsSupport, model.RatingBlocked:
		return true
	}
	return false
}
