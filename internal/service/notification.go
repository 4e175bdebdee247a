package service

import (
	"context"
	"fmt"

	"accountability.app/coachflow/internal/escalation"
	"accountability.app/coachflow/internal/model"
	"accountability.app/coachflow/internal/notification"
	"accountability.app/coachflow/internal/store"
)

type NotificationService interface {
	Counts(ctx context.Context, viewer model.Actor) (notification.Summary, error)
}

type notificationService struct {
	sessions store.SessionStore
}

func NewNotificationService(sessions store.SessionStore) NotificationService {
	return &notificationService{sessions: sessions}
}

// Counts recomputes the viewer's pending items from the current sessions.
func (s *notificationService) Counts(ctx context.Context, viewer model.Actor) (notification.Summary, error) {
	if !viewer.Role.IsActing() {
		return notification.Summary{}, fmt.Errorf("%w: role %q has no queue", escalation.ErrValidationFailed, viewer.Role)
	}
	sessions, err := s.sessions.List(ctx, store.SessionFilter{})
	if err != nil {
		return notification.Summary{}, fmt.Errorf("listing sessions: %w", err)
	}
	return notification.Summarize(sessions, viewer), nil
}
