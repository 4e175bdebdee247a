package model

import "time"

type EntityKind string

const (
	EntityRecommendation EntityKind = "recommendation"
	EntityInsight        EntityKind = "insight"
)

func (k EntityKind) Valid() bool {
	return k == EntityRecommendation || k == EntityInsight
}

type Action string

const (
	// Recommendation actions.
	ActionAccept         Action = "accept"
	ActionDecline        Action = "decline"
	ActionUphold         Action = "uphold"
	ActionApproveDecline Action = "approve_decline"
	ActionDenyDecline    Action = "deny_decline"

	// Shared by both kinds: manager acknowledgement of a recommendation,
	// employee acknowledgement of an insight.
	ActionAcknowledge Action = "acknowledge"

	// Insight actions.
	ActionRespond           Action = "respond"
	ActionDispute           Action = "dispute"
	ActionCoachSupervisor   Action = "coach_supervisor"
	ActionRespondToEmployee Action = "respond_to_employee"
	ActionEscalate          Action = "escalate"
	ActionRetry             Action = "retry"
	ActionResolve           Action = "resolve"
	ActionFinalDecision     Action = "final_decision"
)

type RecommendationStatus string

const (
	RecommendationPending                       RecommendationStatus = "pending"
	RecommendationAccepted                      RecommendationStatus = "accepted"
	RecommendationDeclined                      RecommendationStatus = "declined"
	RecommendationPendingAMReview               RecommendationStatus = "pending_am_review"
	RecommendationPendingManagerAcknowledgement RecommendationStatus = "pending_manager_acknowledgement"
)

func (s RecommendationStatus) Terminal() bool {
	return s == RecommendationAccepted || s == RecommendationDeclined
}

type InsightStatus string

const (
	InsightOpen                           InsightStatus = "open"
	InsightPendingEmployeeAcknowledgement InsightStatus = "pending_employee_acknowledgement"
	InsightPendingSupervisorRetry         InsightStatus = "pending_supervisor_retry"
	InsightPendingAMReview                InsightStatus = "pending_am_review"
	InsightPendingManagerReview           InsightStatus = "pending_manager_review"
	InsightPendingHRReview                InsightStatus = "pending_hr_review"
	InsightPendingFinalHRAction           InsightStatus = "pending_final_hr_action"
	InsightResolved                       InsightStatus = "resolved"
)

func (s InsightStatus) Terminal() bool {
	return s == InsightResolved
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

type ResourceType string

const (
	ResourceBook    ResourceType = "Book"
	ResourcePodcast ResourceType = "Podcast"
	ResourceArticle ResourceType = "Article"
	ResourceCourse  ResourceType = "Course"
	ResourceOther   ResourceType = "Other"
)

// AuditEvent is one immutable entry in an entity's audit trail.
type AuditEvent struct {
	Event           string    `json:"event"`
	Action          Action    `json:"action,omitempty"`
	Actor           Role      `json:"actor"`
	ActorName       string    `json:"actor_name,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Details         string    `json:"details,omitempty"`
	ResultingStatus string    `json:"resulting_status"`
}

type CheckInRating string

const (
	RatingOnTrack      CheckInRating = "On Track"
	RatingNeedsSupport CheckInRating = "Needs Support"
	RatingBlocked      CheckInRating = "Blocked"
)

type CheckIn struct {
	ID     string         `json:"id"`
	Date   time.Time      `json:"date"`
	Notes  string         `json:"notes"`
	Rating *CheckInRating `json:"rating,omitempty"`
}

type CoachingRecommendation struct {
	ID              string               `json:"id"`
	Area            string               `json:"area"`
	Recommendation  string               `json:"recommendation"`
	Example         *string              `json:"example,omitempty"`
	Type            ResourceType         `json:"type"`
	Resource        string               `json:"resource"`
	Justification   string               `json:"justification"`
	Status          RecommendationStatus `json:"status"`
	RejectionReason *string              `json:"rejection_reason,omitempty"`
	StartDate       *time.Time           `json:"start_date,omitempty"`
	EndDate         *time.Time           `json:"end_date,omitempty"`
	Progress        *int                 `json:"progress,omitempty"`
	CheckIns        []CheckIn            `json:"check_ins,omitempty"`
	AuditTrail      []AuditEvent         `json:"audit_trail"`
}

type CriticalInsight struct {
	ID                      string        `json:"id"`
	Summary                 string        `json:"summary"`
	Reason                  string        `json:"reason"`
	Severity                Severity      `json:"severity"`
	Status                  InsightStatus `json:"status"`
	SupervisorResponse      *string       `json:"supervisor_response,omitempty"`
	EmployeeAcknowledgement *string       `json:"employee_acknowledgement,omitempty"`
	FinalDisposition        *string       `json:"final_disposition,omitempty"`
	AuditTrail              []AuditEvent  `json:"audit_trail"`
}

// Session is one recorded 1-on-1 between a supervisor and an employee,
// together with the analysis output that drives the escalation workflow.
type Session struct {
	ID              string                   `json:"id"`
	SupervisorName  string                   `json:"supervisor_name"`
	EmployeeName    string                   `json:"employee_name"`
	Date            time.Time                `json:"date"`
	Summary         string                   `json:"summary,omitempty"`
	Recommendations []CoachingRecommendation `json:"coaching_recommendations"`
	Insight         *CriticalInsight         `json:"critical_insight,omitempty"`
	Version         int64                    `json:"version"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// FindRecommendation returns the index of the recommendation with the given id, or -1.
func (s *Session) FindRecommendation(id string) int {
	for i := range s.Recommendations {
		if s.Recommendations[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy. Audit trails, check-ins and optional fields are
// copied so that mutating the clone never affects the original.
func (s Session) Clone() Session {
	out := s
	if s.Recommendations != nil {
		out.Recommendations = make([]CoachingRecommendation, len(s.Recommendations))
		for i, r := range s.Recommendations {
			out.Recommendations[i] = r.clone()
		}
	}
	if s.Insight != nil {
		ins := s.Insight.clone()
		out.Insight = &ins
	}
	return out
}

func (r CoachingRecommendation) clone() CoachingRecommendation {
	out := r
	out.Example = clonePtr(r.Example)
	out.RejectionReason = clonePtr(r.RejectionReason)
	out.StartDate = clonePtr(r.StartDate)
	out.EndDate = clonePtr(r.EndDate)
	out.Progress = clonePtr(r.Progress)
	if r.CheckIns != nil {
		out.CheckIns = make([]CheckIn, len(r.CheckIns))
		for i, c := range r.CheckIns {
			c.Rating = clonePtr(c.Rating)
			out.CheckIns[i] = c
		}
	}
	out.AuditTrail = cloneTrail(r.AuditTrail)
	return out
}

func (i CriticalInsight) clone() CriticalInsight {
	out := i
	out.SupervisorResponse = clonePtr(i.SupervisorResponse)
	out.EmployeeAcknowledgement = clonePtr(i.EmployeeAcknowledgement)
	out.FinalDisposition = clonePtr(i.FinalDisposition)
	out.AuditTrail = cloneTrail(i.AuditTrail)
	return out
}

func cloneTrail(trail []AuditEvent) []AuditEvent {
	if trail == nil {
		return nil
	}
	out := make([]AuditEvent, len(trail))
	copy(out, trail)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
