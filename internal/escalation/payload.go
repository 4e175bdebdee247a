package escalation

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Payload carries the free-text and plan inputs of an action. Which fields
// are required depends on the transition.
type Payload struct {
	Reason          string     `json:"reason,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Response        string     `json:"response,omitempty"`
	Acknowledgement string     `json:"acknowledgement,omitempty"`
	Comments        string     `json:"comments,omitempty"`
	Decision        string     `json:"decision,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
}

type field string

const (
	fieldReason          field = "reason"
	fieldNotes           field = "notes"
	fieldResponse        field = "response"
	fieldAcknowledgement field = "acknowledgement"
	fieldDecision        field = "decision"
)

// Final dispositions available to the HR Head once an employee has disputed an HR resolution.
const (
	DecisionOmbudsman      = "Assigned to Ombudsman"
	DecisionGrievance      = "Assigned to Grievance Office"
	DecisionLoggedAndClose = "Logged Dissatisfaction & Closed"
)

var Decisions = []string{DecisionOmbudsman, DecisionGrievance, DecisionLoggedAndClose}

// PlanLength is the default duration of a development plan started by an accept
// or by an AM overriding a decline.
const PlanLength = 30 * 24 * time.Hour

func (p Payload) value(f field) string {
	switch f {
	case fieldReason:
		return p.Reason
	case fieldNotes:
		return p.Notes
	case fieldResponse:
		return p.Response
	case fieldAcknowledgement:
		return p.Acknowledgement
	case fieldDecision:
		return p.Decision
	}
	return ""
}

func (p Payload) validate(required []field) error {
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(p.value(f)) == "" {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}

	if slices.Contains(required, fieldDecision) && !slices.Contains(Decisions, strings.TrimSpace(p.Decision)) {
		return fmt.Errorf("decision %q is not one of %s", p.Decision, strings.Join(Decisions, "; "))
	}
	return nil
}

// fullAcknowledgement joins the acknowledgement with optional comments, the way
// the employee's answer is stored and shown to reviewers.
func (p Payload) fullAcknowledgement() string {
	ack := strings.TrimSpace(p.Acknowledgement)
	if c := strings.TrimSpace(p.Comments); c != "" {
		return ack + "\n\nComments: " + c
	}
	return ack
}
