package service

import (
	"accountability.app/coachflow/internal/analysis"
	"accountability.app/coachflow/internal/changefeed"
	"accountability.app/coachflow/internal/escalation"
	"accountability.app/coachflow/internal/queue"
	"accountability.app/coachflow/internal/store"
)

// Deps are the collaborators shared by every service. Producer and
// Generator may be nil in processes that never submit or run analyses.
type Deps struct {
	Sessions  store.SessionStore
	Engine    *escalation.Engine
	Publisher changefeed.Publisher
	Producer  queue.Producer
	Generator analysis.Generator
	Metrics   *Metrics
}

type Services struct {
	deps Deps
}

func NewServices(deps Deps) *Services {
	if deps.Engine == nil {
		deps.Engine = escalation.New()
	}
	if deps.Publisher == nil {
		deps.Publisher = changefeed.Discard
	}
	return &Services{deps: deps}
}

func (s *Services) Escalation() EscalationService {
	return NewEscalationService(s.deps.Sessions, s.deps.Engine, s.deps.Publisher, s.deps.Metrics)
}

func (s *Services) Sessions() SessionService {
	return NewSessionService(s.deps.Sessions, s.deps.Engine, s.deps.Publisher)
}

func (s *Services) Plans() PlanService {
	return NewPlanService(s.deps.Sessions, s.deps.Publisher)
}

func (s *Services) Notifications() NotificationService {
	return NewNotificationService(s.deps.Sessions)
}

func (s *Services) Analysis() AnalysisService {
	return NewAnalysisService(
		s.deps.Sessions,
		s.Plans(),
		s.deps.Producer,
		s.deps.Generator,
		s.deps.Publisher,
		s.deps.Metrics,
	)
}
