package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

type TaskType string

const (
	TaskTypeAnalysis TaskType = "session_analysis"
)

// Task is what producers enqueue. Payload is the task-specific body and is
// carried as JSON in the "payload" stream field.
type Task struct {
	TaskType TaskType
	JobID    string
	Payload  any
	TraceID  string
	Attempt  int
}

// AnalysisJob asks the worker to analyze one recorded session and store
// the result as a new coaching session.
type AnalysisJob struct {
	SupervisorName string    `json:"supervisor_name"`
	EmployeeName   string    `json:"employee_name"`
	Date           time.Time `json:"date"`
	Notes          string    `json:"notes,omitempty"`
	Transcript     string    `json:"transcript,omitempty"`
}

// DecodeAnalysisJob reads the payload of an analysis message.
func DecodeAnalysisJob(msg Message) (AnalysisJob, error) {
	if msg.TaskType != TaskTypeAnalysis {
		return AnalysisJob{}, fmt.Errorf("message %s is %q, not %q", msg.ID, msg.TaskType, TaskTypeAnalysis)
	}
	var job AnalysisJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		return AnalysisJob{}, fmt.Errorf("decoding analysis job %s: %w", msg.JobID, err)
	}
	return job, nil
}
