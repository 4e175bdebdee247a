package escalation

import (
	"errors"
	"fmt"
	"strings"

	"accountability.app/coachflow/internal/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrValidationFailed  = errors.New("validation failed")

	// ErrConflict is returned by callers that persist an outcome when the
	// session changed between read and write.
	ErrConflict = errors.New("conflict")
)

// Error describes a rejected action. It wraps one of the sentinel errors above,
// so callers match with errors.Is.
type Error struct {
	Kind     model.EntityKind
	EntityID string
	Status   string
	Action   model.Action
	Role     model.Role
	Reason   string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Kind, e.EntityID)
	if e.Status != "" {
		fmt.Fprintf(&b, " (status %s)", e.Status)
	}
	fmt.Fprintf(&b, ": action %q by %q: %v", e.Action, e.Role, e.Err)
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func reject(req Request, status string, sentinel error, reason string) *Error {
	return &Error{
		Kind:     req.Kind,
		EntityID: req.EntityID,
		Status:   status,
		Action:   req.Action,
		Role:     req.Actor.Role,
		Reason:   reason,
		Err:      sentinel,
	}
}
