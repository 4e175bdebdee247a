package service_test

import (
	"context"
	"sync"

	"accountability.app/coachflow/internal/analysis"
	"accountability.app/coachflow/internal/changefeed"
	"accountability.app/coachflow/internal/model"
	"accountability.app/coachflow/internal/queue"
	"accountability.app/coachflow/internal/store"
)

// mockSessionStore delegates to a memory store unless a fn overrides the call.
type mockSessionStore struct {
	inner *store.MemorySessionStore

	createFn  func(ctx context.Context, session *model.Session) error
	getByIDFn func(ctx context.Context, id string) (*model.Session, error)
	listFn    func(ctx context.Context, filter store.SessionFilter) ([]model.Session, error)
	updateFn  func(ctx context.Context, session *model.Session, expectedVersion int64) error
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{inner: store.NewMemorySessionStore()}
}

func (m *mockSessionStore) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return m.inner.Create(ctx, session)
}

func (m *mockSessionStore) GetByID(ctx context.Context, id string) (*model.Session, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return m.inner.GetByID(ctx, id)
}

func (m *mockSessionStore) List(ctx context.Context, filter store.SessionFilter) ([]model.Session, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return m.inner.List(ctx, filter)
}

func (m *mockSessionStore) Update(ctx context.Context, session *model.Session, expectedVersion int64) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, session, expectedVersion)
	}
	return m.inner.Update(ctx, session, expectedVersion)
}

type mockPublisher struct {
	mu        sync.Mutex
	changes   []changefeed.Change
	publishFn func(ctx context.Context, change changefeed.Change) error
}

func (m *mockPublisher) Publish(ctx context.Context, change changefeed.Change) error {
	m.mu.Lock()
	m.changes = append(m.changes, change)
	m.mu.Unlock()
	if m.publishFn != nil {
		return m.publishFn(ctx, change)
	}
	return nil
}

func (m *mockPublisher) published() []changefeed.Change {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]changefeed.Change(nil), m.changes...)
}

type mockProducer struct {
	tasks     []queue.Task
	enqueueFn func(ctx context.Context, task queue.Task) error
}

func (m *mockProducer) Enqueue(ctx context.Context, task queue.Task) error {
	m.tasks = append(m.tasks, task)
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, task)
	}
	return nil
}

type mockGenerator struct {
	calls      []analysis.Input
	generateFn func(ctx context.Context, in analysis.Input) (*analysis.Result, error)
}

func (m *mockGenerator) Generate(ctx context.Context, in analysis.Input) (*analysis.Result, error) {
	m.calls = append(m.calls, in)
	if m.generateFn != nil {
		return m.generateFn(ctx, in)
	}
	return &analysis.Result{
		Summary: "Discussed deadlines",
		Recommendations: []analysis.GeneratedRecommendation{{
			Area:           "Delegation",
			Recommendation: "Hand off the weekly report",
			Type:           model.ResourceBook,
			Resource:       "The One Minute Manager",
			Justification:  "Supervisor kept all reporting work",
		}},
	}, nil
}
