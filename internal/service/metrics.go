package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"accountability.app/coachflow/internal/escalation"
)

// Metrics holds the service-level instruments.
type Metrics struct {
	transitions  metric.Int64Counter
	analysisJobs metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	transitions, err := meter.Int64Counter("coachflow.escalation.transitions",
		metric.WithDescription("Escalation actions by entity kind, action and outcome"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	analysisJobs, err := meter.Int64Counter("coachflow.analysis.jobs",
		metric.WithDescription("Analysis jobs by stage and outcome"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating analysis jobs counter: %w", err)
	}

	return &Metrics{transitions: transitions, analysisJobs: analysisJobs}, nil
}

func (m *Metrics) recordTransition(ctx context.Context, req escalation.Request, err error) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(req.Kind)),
		attribute.String("action", string(req.Action)),
		attribute.String("outcome", outcomeLabel(err)),
	))
}

func (m *Metrics) recordAnalysisJob(ctx context.Context, stage string, err error) {
	if m == nil {
		return
	}
	m.analysisJobs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("outcome", outcomeLabel(err)),
	))
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, escalation.ErrNotFound):
		return "not_found"
	case errors.Is(err, escalation.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, escalation.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, escalation.ErrValidationFailed):
		return "validation_failed"
	case errors.Is(err, escalation.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
