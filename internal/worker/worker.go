package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"accountability.app/coachflow/common/logger"
	"accountability.app/coachflow/internal/analysis"
	"accountability.app/coachflow/internal/escalation"
	"accountability.app/coachflow/internal/queue"
	"accountability.app/coachflow/internal/service"
)

// errPermanent marks failures that another attempt cannot fix.
var errPermanent = errors.New("permanent failure")

type Config struct {
	MaxAttempts  int
	ErrorBackoff time.Duration
}

type Worker struct {
	consumer  Consumer
	processor AnalysisProcessor
	cfg       Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, processor AnalysisProcessor, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}
	return &Worker{
		consumer:  consumer,
		processor: processor,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "coachflow.worker.analysis",
	})
	slog.InfoContext(ctx, "worker started", "max_attempts", w.cfg.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
		}

		if err := w.processOneBatch(ctx); err != nil {
			slog.ErrorContext(ctx, "batch processing error", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.stopCh:
				return nil
			case <-time.After(w.cfg.ErrorBackoff):
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		w.Handle(ctx, msg)
	}
	return nil
}

// Handle processes msg and settles it: ack on success, DLQ on a permanent
// failure or the last attempt, requeue otherwise. The reclaimer reuses it.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: logger.Ptr(msg.ID),
		SessionID: logger.Ptr(msg.JobID),
	})

	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_analysis",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer sc.End()
	ctx = sc.Context()
	sc.TagFromLogFields()

	err := w.processMessageSafe(ctx, msg)
	if err == nil {
		if ackErr := w.consumer.Ack(ctx, msg); ackErr != nil {
			// The reclaimer will redeliver; Process is idempotent per job.
			slog.WarnContext(ctx, "failed to ACK message", "error", ackErr)
		}
		return
	}

	sc.RecordError(err)
	slog.ErrorContext(ctx, "message processing failed", "error", err, "attempt", msg.Attempt)
	w.handleFailedMessage(ctx, msg, err)
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.processMessage(ctx, msg)
}

func (w *Worker) processMessage(ctx context.Context, msg queue.Message) error {
	job, err := queue.DecodeAnalysisJob(msg)
	if err != nil {
		return fmt.Errorf("%w: %w", errPermanent, err)
	}

	slog.InfoContext(ctx, "processing analysis job",
		"job_id", msg.JobID,
		"attempt", msg.Attempt,
		"supervisor", job.SupervisorName)

	start := time.Now()
	session, err := w.processor.Process(ctx, msg.JobID, service.AnalysisRequest{
		SupervisorName: job.SupervisorName,
		EmployeeName:   job.EmployeeName,
		Date:           job.Date,
		Notes:          job.Notes,
		Transcript:     job.Transcript,
	})
	if err != nil {
		if errors.Is(err, analysis.ErrInvalidInput) || errors.Is(err, escalation.ErrValidationFailed) {
			return fmt.Errorf("%w: %w", errPermanent, err)
		}
		return err
	}

	slog.InfoContext(ctx, "analysis job completed",
		"session_id", session.ID,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if errors.Is(err, errPermanent) || msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "sending message to DLQ",
			"attempts", msg.Attempt,
			"permanent", errors.Is(err, errPermanent))
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message", "attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
