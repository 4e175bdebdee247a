package worker

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"accountability.app/coachflow/internal/queue"
)

type fakeClaimer struct {
	pending   []redis.XPendingExt
	claimed   map[string]redis.XMessage
	claimArgs []*redis.XClaimArgs
}

func (f *fakeClaimer) XPendingExt(ctx context.Context, a *redis.XPendingExtArgs) *redis.XPendingExtCmd {
	cmd := redis.NewXPendingExtCmd(ctx)
	cmd.SetVal(f.pending)
	return cmd
}

func (f *fakeClaimer) XClaim(ctx context.Context, a *redis.XClaimArgs) *redis.XMessageSliceCmd {
	f.claimArgs = append(f.claimArgs, a)
	var out []redis.XMessage
	for _, id := range a.Messages {
		if msg, ok := f.claimed[id]; ok {
			out = append(out, msg)
		}
	}
	cmd := redis.NewXMessageSliceCmd(ctx)
	cmd.SetVal(out)
	return cmd
}

type settlement struct {
	kind   string
	msg    queue.Message
	reason string
}

type recordingConsumer struct {
	settlements []settlement
	dlqErr      error
}

func (r *recordingConsumer) Read(context.Context) ([]queue.Message, error) { return nil, nil }

func (r *recordingConsumer) Ack(_ context.Context, msg queue.Message) error {
	r.settlements = append(r.settlements, settlement{kind: "ack", msg: msg})
	return nil
}

func (r *recordingConsumer) Requeue(_ context.Context, msg queue.Message, reason string) error {
	r.settlements = append(r.settlements, settlement{kind: "requeue", msg: msg, reason: reason})
	return nil
}

func (r *recordingConsumer) SendDLQ(_ context.Context, msg queue.Message, reason string) error {
	r.settlements = append(r.settlements, settlement{kind: "dlq", msg: msg, reason: reason})
	return r.dlqErr
}

func streamEntry(id string, attempt int) redis.XMessage {
	return redis.XMessage{ID: id, Values: map[string]any{
		"task_type": string(queue.TaskTypeAnalysis),
		"job_id":    "job-" + id,
		"payload":   `{"supervisor_name":"Dana","employee_name":"Sam","notes":"x"}`,
		"attempt":   attempt,
	}}
}

var _ = Describe("RedisReclaimer", func() {
	var (
		ctx      context.Context
		client   *fakeClaimer
		consumer *recordingConsumer
		handled  []queue.Message
		cfg      RedisReclaimerConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = &fakeClaimer{claimed: map[string]redis.XMessage{}}
		consumer = &recordingConsumer{}
		handled = nil
		cfg = RedisReclaimerConfig{
			Stream:        "analysis",
			Group:         "workers",
			Consumer:      "w1-reclaimer",
			MinIdle:       time.Minute,
			Interval:      time.Hour,
			BatchSize:     10,
			MaxDeliveries: 5,
		}
	})

	reclaimer := func() *RedisReclaimer {
		return newReclaimer(client, cfg, consumer, func(_ context.Context, msg queue.Message) {
			handled = append(handled, msg)
		})
	}

	It("hands idle messages back to the handler with the delivery count as attempt", func() {
		client.pending = []redis.XPendingExt{{ID: "1-0", Consumer: "w0", Idle: 10 * time.Minute, RetryCount: 2}}
		client.claimed["1-0"] = streamEntry("1-0", 1)

		Expect(reclaimer().reclaimOnce(ctx)).To(Succeed())

		Expect(handled).To(HaveLen(1))
		Expect(handled[0].JobID).To(Equal("job-1-0"))
		Expect(handled[0].Attempt).To(Equal(2))
		Expect(client.claimArgs).To(HaveLen(1))
		Expect(client.claimArgs[0].Consumer).To(Equal("w1-reclaimer"))
		Expect(consumer.settlements).To(BeEmpty())
	})

	It("keeps the stored attempt when it is ahead of the delivery count", func() {
		client.pending = []redis.XPendingExt{{ID: "2-0", RetryCount: 1}}
		client.claimed["2-0"] = streamEntry("2-0", 3)

		Expect(reclaimer().reclaimOnce(ctx)).To(Succeed())

		Expect(handled).To(HaveLen(1))
		Expect(handled[0].Attempt).To(Equal(3))
	})

	It("dead-letters a job that keeps killing the worker", func() {
		client.pending = []redis.XPendingExt{{ID: "3-0", RetryCount: 5}}
		client.claimed["3-0"] = streamEntry("3-0", 1)

		Expect(reclaimer().reclaimOnce(ctx)).To(Succeed())

		Expect(handled).To(BeEmpty())
		Expect(consumer.settlements).To(HaveLen(1))
		Expect(consumer.settlements[0].kind).To(Equal("dlq"))
		Expect(consumer.settlements[0].msg.JobID).To(Equal("job-3-0"))
		Expect(consumer.settlements[0].reason).To(ContainSubstring("5 deliveries"))
	})

	It("ignores the delivery cap when it is disabled", func() {
		cfg.MaxDeliveries = 0
		client.pending = []redis.XPendingExt{{ID: "4-0", RetryCount: 50}}
		client.claimed["4-0"] = streamEntry("4-0", 1)

		Expect(reclaimer().reclaimOnce(ctx)).To(Succeed())

		Expect(handled).To(HaveLen(1))
	})

	It("acks an unparseable message instead of looping on it", func() {
		client.pending = []redis.XPendingExt{{ID: "5-0", RetryCount: 1}}
		client.claimed["5-0"] = redis.XMessage{ID: "5-0", Values: map[string]any{"task_type": "unknown"}}

		Expect(reclaimer().reclaimOnce(ctx)).To(Succeed())

		Expect(handled).To(BeEmpty())
		Expect(consumer.settlements).To(HaveLen(1))
		Expect(consumer.settlements[0].kind).To(Equal("ack"))
		Expect(consumer.settlements[0].msg.ID).To(Equal("5-0"))
	})

	It("skips messages another worker claimed first", func() {
		client.pending = []redis.XPendingExt{{ID: "6-0", RetryCount: 1}}

		Expect(reclaimer().reclaimOnce(ctx)).To(Succeed())

		Expect(handled).To(BeEmpty())
		Expect(consumer.settlements).To(BeEmpty())
	})

	It("keeps going after one message fails to dead-letter", func() {
		consumer.dlqErr = errors.New("dlq unavailable")
		client.pending = []redis.XPendingExt{
			{ID: "7-0", RetryCount: 9},
			{ID: "8-0", RetryCount: 1},
		}
		client.claimed["7-0"] = streamEntry("7-0", 1)
		client.claimed["8-0"] = streamEntry("8-0", 1)

		Expect(reclaimer().reclaimOnce(ctx)).To(Succeed())

		Expect(handled).To(HaveLen(1))
		Expect(handled[0].JobID).To(Equal("job-8-0"))
	})

	It("stops when asked", func() {
		r := reclaimer()
		done := make(chan struct{})
		go func() {
			r.Run(ctx)
			close(done)
		}()

		r.Stop()
		Eventually(done).Should(BeClosed())
	})
})
