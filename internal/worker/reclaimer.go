package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"accountability.app/coachflow/common/logger"
	"accountability.app/coachflow/internal/queue"
)

// RedisReclaimerConfig controls how long a message may sit unacknowledged
// before another consumer takes it over.
type RedisReclaimerConfig struct {
	Stream    string
	Group     string
	Consumer  string
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
	// MaxDeliveries dead-letters a job once Redis has delivered it this many
	// times without an ack, which only happens when processing kills the
	// worker. Zero disables the cap.
	MaxDeliveries int64
}

// pendingClaimer is the slice of *redis.Client the reclaimer needs.
type pendingClaimer interface {
	XPendingExt(ctx context.Context, a *redis.XPendingExtArgs) *redis.XPendingExtCmd
	XClaim(ctx context.Context, a *redis.XClaimArgs) *redis.XMessageSliceCmd
}

// RedisReclaimer claims analysis jobs that a worker read but never settled,
// typically because it crashed between XREADGROUP and XACK, and hands them
// back to the worker.
type RedisReclaimer struct {
	client  pendingClaimer
	cfg     RedisReclaimerConfig
	acker   Consumer
	handler func(ctx context.Context, msg queue.Message)

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewRedisReclaimer builds a reclaimer that settles claimed messages through w.
func NewRedisReclaimer(client *redis.Client, cfg RedisReclaimerConfig, consumer Consumer, w *Worker) *RedisReclaimer {
	return newReclaimer(client, cfg, consumer, w.Handle)
}

func newReclaimer(client pendingClaimer, cfg RedisReclaimerConfig, consumer Consumer, handler func(context.Context, queue.Message)) *RedisReclaimer {
	return &RedisReclaimer{
		client:    client,
		cfg:       cfg,
		acker:     consumer,
		handler:   handler,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run blocks until ctx is done or Stop is called.
func (r *RedisReclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "coachflow.worker.reclaimer",
	})

	defer close(r.stoppedCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle,
		"stream", r.cfg.Stream,
		"group", r.cfg.Group)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if err := r.reclaimOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
			}
		}
	}
}

// Stop signals the reclaimer to stop and waits for Run to return.
func (r *RedisReclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// reclaimOnce performs one reclaim cycle.
func (r *RedisReclaimer) reclaimOnce(ctx context.Context) error {
	pending, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: r.cfg.Stream,
		Group:  r.cfg.Group,
		Idle:   r.cfg.MinIdle,
		Start:  "-",
		End:    "+",
		Count:  r.cfg.BatchSize,
	}).Result()
	if err != nil {
		return fmt.Errorf("xpending: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "found stale pending messages", "count", len(pending))

	for _, p := range pending {
		if err := r.reclaimMessage(ctx, p); err != nil {
			slog.ErrorContext(ctx, "failed to reclaim message",
				"error", err,
				"message_id", p.ID,
				"original_consumer", p.Consumer,
				"idle_time", p.Idle)
		}
	}

	return nil
}

// reclaimMessage claims a single stale message and either dead-letters it or
// hands it back to the handler.
func (r *RedisReclaimer) reclaimMessage(ctx context.Context, pending redis.XPendingExt) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: logger.Ptr(pending.ID),
	})

	slog.InfoContext(ctx, "reclaiming stale message",
		"original_consumer", pending.Consumer,
		"idle_time", pending.Idle,
		"retry_count", pending.RetryCount)

	messages, err := r.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   r.cfg.Stream,
		Group:    r.cfg.Group,
		Consumer: r.cfg.Consumer,
		MinIdle:  r.cfg.MinIdle,
		Messages: []string{pending.ID},
	}).Result()
	if err != nil {
		return fmt.Errorf("xclaim: %w", err)
	}

	if len(messages) == 0 {
		slog.DebugContext(ctx, "message already reclaimed by another worker")
		return nil
	}

	msg := messages[0]

	parsed, err := queue.ParseMessage(msg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse reclaimed message, acknowledging to prevent loop",
			"error", err)
		_ = r.acker.Ack(ctx, queue.Message{ID: msg.ID, Raw: msg})
		return nil
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{SessionID: logger.Ptr(parsed.JobID)})

	if r.cfg.MaxDeliveries > 0 && pending.RetryCount >= r.cfg.MaxDeliveries {
		reason := fmt.Sprintf("abandoned after %d deliveries without ack", pending.RetryCount)
		slog.WarnContext(ctx, "dead-lettering crash-looping job", "retry_count", pending.RetryCount)
		if err := r.acker.SendDLQ(ctx, parsed, reason); err != nil {
			return fmt.Errorf("dead-lettering %s: %w", msg.ID, err)
		}
		return nil
	}

	// A message idle this long has already cost one delivery.
	if pending.RetryCount > int64(parsed.Attempt) {
		parsed.Attempt = int(pending.RetryCount)
	}

	start := time.Now()
	r.handler(ctx, parsed)

	slog.InfoContext(ctx, "reclaimed message settled",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
