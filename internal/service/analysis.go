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
	"accountability.app/coachflow/internal/queue"
	"accountability.app/coachflow/internal/store"
)

type AnalysisRequest struct {
	SupervisorName string
	EmployeeName   string
	Date           time.Time
	Notes          string
	Transcript     string
}

func (r AnalysisRequest) input() analysis.Input {
	return analysis.Input{
		SupervisorName: r.SupervisorName,
		EmployeeName:   r.EmployeeName,
		Date:           r.Date,
		Notes:          r.Notes,
		Transcript:     r.Transcript,
	}
}

type AnalysisService interface {
	// Submit validates the request and enqueues it. The returned job id is
	// also the id of the session the worker will create.
	Submit(ctx context.Context, req AnalysisRequest) (string, error)
	// Process runs the generator for a job and stores the new session.
	// Processing the same job twice returns the session stored the first time.
	Process(ctx context.Context, jobID string, req AnalysisRequest) (*model.Session, error)
}

type analysisService struct {
	sessions  store.SessionStore
	plans     PlanService
	producer  queue.Producer
	generator analysis.Generator
	publisher changefeed.Publisher
	metrics   *Metrics
}

func NewAnalysisService(
	sessions store.SessionStore,
	plans PlanService,
	producer queue.Producer,
	generator analysis.Generator,
	publisher changefeed.Publisher,
	metrics *Metrics,
) AnalysisService {
	if publisher == nil {
		publisher = changefeed.Discard
	}
	return &analysisService{
		sessions:  sessions,
		plans:     plans,
		producer:  producer,
		generator: generator,
		publisher: publisher,
		metrics:   metrics,
	}
}

func (s *analysisService) Submit(ctx context.Context, req AnalysisRequest) (string, error) {
	if err := req.input().Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", escalation.ErrValidationFailed, err)
	}
	if s.producer == nil {
		return "", errors.New("analysis queue is not configured")
	}

	jobID := id.NewString()
	err := s.producer.Enqueue(ctx, queue.Task{
		TaskType: queue.TaskTypeAnalysis,
		JobID:    jobID,
		Payload: queue.AnalysisJob{
			SupervisorName: req.SupervisorName,
			EmployeeName:   req.EmployeeName,
			Date:           req.Date,
			Notes:          req.Notes,
			Transcript:     req.Transcript,
		},
	})
	s.metrics.recordAnalysisJob(ctx, "submit", err)
	if err != nil {
		return "", fmt.Errorf("submitting analysis: %w", err)
	}
	return jobID, nil
}

func (s *analysisService) Process(ctx context.Context, jobID string, req AnalysisRequest) (*model.Session, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: logger.Ptr(jobID),
		Component: "coachflow.service.analysis",
	})

	session, err := s.process(ctx, jobID, req)
	s.metrics.recordAnalysisJob(ctx, "process", err)
	return session, err
}

func (s *analysisService) process(ctx context.Context, jobID string, req AnalysisRequest) (*model.Session, error) {
	if existing, err := s.sessions.GetByID(ctx, jobID); err == nil {
		slog.InfoContext(ctx, "analysis already stored, skipping")
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking for existing session: %w", err)
	}

	in := req.input()
	declined, err := s.plans.DeclinedAreas(ctx, req.SupervisorName)
	if err != nil {
		return nil, fmt.Errorf("loading declined areas: %w", err)
	}
	active, err := s.plans.ActivePlans(ctx, req.SupervisorName)
	if err != nil {
		return nil, fmt.Errorf("loading active plans: %w", err)
	}
	in.DeclinedAreas = declined
	for _, p := range active {
		in.ActivePlans = append(in.ActivePlans, analysis.PlanRef{Area: p.Area, Title: p.Recommendation})
	}

	result, err := s.generator.Generate(ctx, in)
	if err != nil {
		return nil, err
	}

	session, err := analysis.Normalize(in, result, jobScopedIDs(jobID))
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Another delivery of the same job won the race.
			return loadSession(ctx, s.sessions, jobID)
		}
		return nil, fmt.Errorf("storing analyzed session: %w", err)
	}

	publish(ctx, s.publisher, changefeed.SessionCreated(session))

	slog.InfoContext(ctx, "analysis stored",
		"recommendations", len(session.Recommendations),
		"has_insight", session.Insight != nil,
		"declined_areas", len(declined),
		"active_plans", len(active))
	return session, nil
}

// jobScopedIDs hands out the job id first, so the session id is stable
// across redeliveries, and fresh snowflake ids after that.
func jobScopedIDs(jobID string) func() string {
	first := true
	return func() string {
		if first {
			first = false
			return jobID
		}
		return id.NewString()
	}
}
