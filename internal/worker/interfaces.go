package worker

import (
	"context"

	"accountability.app/coachflow/internal/model"
	"accountability.app/coachflow/internal/queue"
	"accountability.app/coachflow/internal/service"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// AnalysisProcessor runs one analysis job. service.AnalysisService satisfies it.
type AnalysisProcessor interface {
	Process(ctx context.Context, jobID string, req service.AnalysisRequest) (*model.Session, error)
}
