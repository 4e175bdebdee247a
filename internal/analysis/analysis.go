// Package analysis turns a recorded 1-on-1 into the coaching recommendations
// and the optional critical insight that enter the escalation workflow.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"accountability.app/coachflow/internal/model"
)

var (
	ErrInvalidInput  = errors.New("invalid analysis input")
	ErrInvalidResult = errors.New("invalid analysis result")
)

// PlanRef names a development plan the supervisor is already working on.
type PlanRef struct {
	Area  string `json:"area"`
	Title string `json:"title"`
}

// Input is everything the generator sees about one session.
type Input struct {
	SupervisorName string
	EmployeeName   string
	Date           time.Time
	Notes          string
	Transcript     string

	// Areas the supervisor previously declined. A new recommendation in one
	// of these areas is a recurring issue.
	DeclinedAreas []string
	ActivePlans   []PlanRef
}

func (in Input) Validate() error {
	var missing []string
	if strings.TrimSpace(in.SupervisorName) == "" {
		missing = append(missing, "supervisor_name")
	}
	if strings.TrimSpace(in.EmployeeName) == "" {
		missing = append(missing, "employee_name")
	}
	if strings.TrimSpace(in.Notes) == "" && strings.TrimSpace(in.Transcript) == "" {
		missing = append(missing, "notes or transcript")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

type GeneratedRecommendation struct {
	Area           string             `json:"area"`
	Recommendation string             `json:"recommendation"`
	Example        string             `json:"example"`
	Type           model.ResourceType `json:"type"`
	Resource       string             `json:"resource"`
	Justification  string             `json:"justification"`
}

type GeneratedInsight struct {
	Summary  string         `json:"summary"`
	Reason   string         `json:"reason"`
	Severity model.Severity `json:"severity"`
}

// Result is the generator's raw output. Statuses, ids and audit trails are
// assigned by Normalize, never by the generator.
type Result struct {
	Summary         string                    `json:"summary"`
	Recommendations []GeneratedRecommendation `json:"coaching_recommendations"`
	Insight         *GeneratedInsight         `json:"critical_insight,omitempty"`
}

// Generator produces an analysis for a session.
type Generator interface {
	Generate(ctx context.Context, in Input) (*Result, error)
}

// Normalize builds a new session from a generator result. Every
// recommendation starts pending and the insight, if any, starts open, each
// with a fresh id and an empty audit trail.
func Normalize(in Input, res *Result, newID func() string) (*model.Session, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: empty result", ErrInvalidResult)
	}

	session := &model.Session{
		ID:              newID(),
		SupervisorName:  strings.TrimSpace(in.SupervisorName),
		EmployeeName:    strings.TrimSpace(in.EmployeeName),
		Date:            in.Date.UTC(),
		Summary:         strings.TrimSpace(res.Summary),
		Recommendations: make([]model.CoachingRecommendation, 0, len(res.Recommendations)),
	}
	if session.Date.IsZero() {
		session.Date = time.Now().UTC()
	}

	for i, gen := range res.Recommendations {
		if strings.TrimSpace(gen.Area) == "" || strings.TrimSpace(gen.Recommendation) == "" {
			return nil, fmt.Errorf("%w: recommendation %d needs an area and a recommendation", ErrInvalidResult, i)
		}
		rec := model.CoachingRecommendation{
			ID:             newID(),
			Area:           strings.TrimSpace(gen.Area),
			Recommendation: strings.TrimSpace(gen.Recommendation),
			Type:           normalizeResourceType(gen.Type),
			Resource:       strings.TrimSpace(gen.Resource),
			Justification:  strings.TrimSpace(gen.Justification),
			Status:         model.RecommendationPending,
			AuditTrail:     []model.AuditEvent{},
		}
		if ex := strings.TrimSpace(gen.Example); ex != "" {
			rec.Example = &ex
		}
		session.Recommendations = append(session.Recommendations, rec)
	}

	if res.Insight != nil {
		severity := model.Severity(strings.ToLower(strings.TrimSpace(string(res.Insight.Severity))))
		if !severity.Valid() {
			return nil, fmt.Errorf("%w: insight severity %q", ErrInvalidResult, res.Insight.Severity)
		}
		if strings.TrimSpace(res.Insight.Summary) == "" {
			return nil, fmt.Errorf("%w: insight needs a summary", ErrInvalidResult)
		}
		session.Insight = &model.CriticalInsight{
			ID:         newID(),
			Summary:    strings.TrimSpace(res.Insight.Summary),
			Reason:     strings.TrimSpace(res.Insight.Reason),
			Severity:   severity,
			Status:     model.InsightOpen,
			AuditTrail: []model.AuditEvent{},
		}
	}

	return session, nil
}

func normalizeResourceType(t model.ResourceType) model.ResourceType {
	for _, known := range []model.ResourceType{
		model.ResourceBook, model.ResourcePodcast, model.ResourceArticle, model.ResourceCourse, model.ResourceOther,
	} {
		if strings.EqualFold(string(t), string(known)) {
			return known
		}
	}
	return model.ResourceOther
}
