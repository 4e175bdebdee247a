package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"accountability.app/coachflow/internal/model"
)

// MemorySessionStore keeps sessions in process memory. It honors the same
// versioning contract as the postgres store and is used for local runs and tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	now      func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]model.Session),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Create(_ context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists: %w", session.ID, ErrConflict)
	}

	now := s.now().UTC()
	stored := session.Clone()
	stored.Version = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.sessions[stored.ID] = stored

	*session = stored.Clone()
	return nil
}

func (s *MemorySessionStore) GetByID(_ context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := stored.Clone()
	return &out, nil
}

func (s *MemorySessionStore) List(_ context.Context, filter SessionFilter) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Session, 0, len(s.sessions))
	for _, stored := range s.sessions {
		if !nameMatches(filter.SupervisorName, stored.SupervisorName) || !nameMatches(filter.EmployeeName, stored.EmployeeName) {
			continue
		}
		result = append(result, stored.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *MemorySessionStore) Update(_ context.Context, session *model.Session, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[session.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("session %s is at version %d, not %d: %w", session.ID, stored.Version, expectedVersion, ErrConflict)
	}

	next := session.Clone()
	// Identity columns are fixed at creation, matching the postgres update.
	next.SupervisorName = stored.SupervisorName
	next.EmployeeName = stored.EmployeeName
	next.Date = stored.Date
	next.CreatedAt = stored.CreatedAt
	next.Version = stored.Version + 1
	next.UpdatedAt = s.now().UTC()
	s.sessions[next.ID] = next

	*session = next.Clone()
	return nil
}

func nameMatches(filter, value string) bool {
	filter = strings.TrimSpace(filter)
	return filter == "" || strings.EqualFold(filter, strings.TrimSpace(value))
}
