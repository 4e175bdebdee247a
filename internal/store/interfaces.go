package store

import (
	"context"
	"errors"

	"accountability.app/coachflow/internal/model"
)

// ErrNotFound is returned when a requested session does not exist
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write is based on a stale version, or a
// session with the same id already exists
var ErrConflict = errors.New("version conflict")

// SessionFilter narrows List. Empty fields match everything; names compare case-insensitively.
type SessionFilter struct {
	SupervisorName string
	EmployeeName   string
}

// SessionStore defines the contract for 1-on-1 session persistence.
//
// Update is the only way to change a stored session. It overwrites the whole
// record when expectedVersion matches the stored version and bumps the version;
// otherwise it returns ErrConflict and leaves the record untouched.
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	List(ctx context.Context, filter SessionFilter) ([]model.Session, error)
	Update(ctx context.Context, session *model.Session, expectedVersion int64) error
}
