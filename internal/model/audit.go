package model

import (
	"errors"
	"fmt"
)

var ErrInconsistentTrail = errors.New("audit trail does not match status")

// LastEvent returns the most recent audit event, if any.
func LastEvent(trail []AuditEvent) (AuditEvent, bool) {
	if len(trail) == 0 {
		return AuditEvent{}, false
	}
	return trail[len(trail)-1], true
}

// CheckConsistency verifies that the trail explains the current status: an
// empty trail means the entity was never acted on, otherwise the last event
// must have produced the current status.
func (r CoachingRecommendation) CheckConsistency() error {
	last, ok := LastEvent(r.AuditTrail)
	if !ok {
		if r.Status != RecommendationPending {
			return fmt.Errorf("recommendation %s: empty trail with status %s: %w", r.ID, r.Status, ErrInconsistentTrail)
		}
		return nil
	}
	if last.ResultingStatus != string(r.Status) {
		return fmt.Errorf("recommendation %s: last event %q produced %s, status is %s: %w",
			r.ID, last.Event, last.ResultingStatus, r.Status, ErrInconsistentTrail)
	}
	return nil
}

func (i CriticalInsight) CheckConsistency() error {
	last, ok := LastEvent(i.AuditTrail)
	if !ok {
		if i.Status != InsightOpen {
			return fmt.Errorf("insight %s: empty trail with status %s: %w", i.ID, i.Status, ErrInconsistentTrail)
		}
		return nil
	}
	if last.ResultingStatus != string(i.Status) {
		return fmt.Errorf("insight %s: last event %q produced %s, status is %s: %w",
			i.ID, last.Event, last.ResultingStatus, i.Status, ErrInconsistentTrail)
	}
	return nil
}

func (s Session) CheckConsistency() error {
	var errs []error
	for _, r := range s.Recommendations {
		if err := r.CheckConsistency(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Insight != nil {
		if err := s.Insight.CheckConsistency(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
