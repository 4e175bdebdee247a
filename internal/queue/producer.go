package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"accountability.app/coachflow/common/logger"
)

// Producer enqueues background tasks. The submitting request's trace id rides
// along with the task so the worker's span joins the same trace.
type Producer interface {
	Enqueue(ctx context.Context, task Task) error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, task Task) error {
	if task.JobID == "" {
		return fmt.Errorf("enqueue %s: missing job id", task.TaskType)
	}

	attempt := task.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", task.TaskType, err)
	}

	traceID := task.TraceID
	if traceID == "" {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			traceID = sc.TraceID().String()
		}
	}

	fields := messageValues(Message{
		TaskType: task.TaskType,
		JobID:    task.JobID,
		Payload:  payload,
		TraceID:  traceID,
	}, attempt)

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", task.TaskType, err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{SessionID: logger.Ptr(task.JobID)})
	p.logger.InfoContext(ctx, "enqueued task", "task_type", task.TaskType, "attempt", attempt, "traced", traceID != "")
	return nil
}
