package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"accountability.app/coachflow/core/db/sqlc"
	"accountability.app/coachflow/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const uniqueViolation = "23505"

type sessionStore struct {
	queries *sqlc.Queries
}

func newSessionStore(queries *sqlc.Queries) SessionStore {
	return &sessionStore{queries: queries}
}

func (s *sessionStore) Create(ctx context.Context, session *model.Session) error {
	recs, insight, err := marshalAnalysis(session)
	if err != nil {
		return err
	}

	row, err := s.queries.CreateCoachingSession(ctx, sqlc.CreateCoachingSessionParams{
		ID:              session.ID,
		SupervisorName:  session.SupervisorName,
		EmployeeName:    session.EmployeeName,
		SessionDate:     pgtype.Timestamptz{Time: session.Date, Valid: true},
		Summary:         session.Summary,
		Recommendations: recs,
		Insight:         insight,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("session %s already exists: %w", session.ID, ErrConflict)
		}
		return err
	}

	created, err := toSessionModel(row)
	if err != nil {
		return err
	}
	*session = *created
	return nil
}

func (s *sessionStore) GetByID(ctx context.Context, id string) (*model.Session, error) {
	row, err := s.queries.GetCoachingSession(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toSessionModel(row)
}

func (s *sessionStore) List(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
	rows, err := s.queries.ListCoachingSessions(ctx, sqlc.ListCoachingSessionsParams{
		SupervisorName: optional(filter.SupervisorName),
		EmployeeName:   optional(filter.EmployeeName),
	})
	if err != nil {
		return nil, err
	}

	sessions := make([]model.Session, 0, len(rows))
	for _, row := range rows {
		session, err := toSessionModel(row)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

func (s *sessionStore) Update(ctx context.Context, session *model.Session, expectedVersion int64) error {
	recs, insight, err := marshalAnalysis(session)
	if err != nil {
		return err
	}

	row, err := s.queries.UpdateCoachingSessionVersioned(ctx, sqlc.UpdateCoachingSessionVersionedParams{
		ID:              session.ID,
		Summary:         session.Summary,
		Recommendations: recs,
		Insight:         insight,
		Version:         expectedVersion,
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		// Zero rows: either the id is unknown or the version moved on.
		exists, existsErr := s.queries.CoachingSessionExists(ctx, session.ID)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return ErrNotFound
		}
		return fmt.Errorf("session %s is no longer at version %d: %w", session.ID, expectedVersion, ErrConflict)
	}

	updated, err := toSessionModel(row)
	if err != nil {
		return err
	}
	*session = *updated
	return nil
}

func marshalAnalysis(session *model.Session) ([]byte, []byte, error) {
	recs := session.Recommendations
	if recs == nil {
		recs = []model.CoachingRecommendation{}
	}
	recsJSON, err := json.Marshal(recs)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling recommendations: %w", err)
	}

	var insightJSON []byte
	if session.Insight != nil {
		insightJSON, err = json.Marshal(session.Insight)
		if err != nil {
			return nil, nil, fmt.Errorf("marshaling insight: %w", err)
		}
	}
	return recsJSON, insightJSON, nil
}

func toSessionModel(row sqlc.CoachingSession) (*model.Session, error) {
	session := &model.Session{
		ID:             row.ID,
		SupervisorName: row.SupervisorName,
		EmployeeName:   row.EmployeeName,
		Date:           row.SessionDate.Time,
		Summary:        row.Summary,
		Version:        row.Version,
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}

	if len(row.Recommendations) > 0 {
		if err := json.Unmarshal(row.Recommendations, &session.Recommendations); err != nil {
			return nil, fmt.Errorf("unmarshaling recommendations for session %s: %w", row.ID, err)
		}
	}
	if len(row.Insight) > 0 && string(row.Insight) != "null" {
		var insight model.CriticalInsight
		if err := json.Unmarshal(row.Insight, &insight); err != nil {
			return nil, fmt.Errorf("unmarshaling insight for session %s: %w", row.ID, err)
		}
		session.Insight = &insight
	}
	return session, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
