package model

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JobStatus is the engine-reported lifecycle state of a counting job
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// ParseJobStatus strictly parses an engine status string. Unknown values are
// rejected so a malformed response never overwrites a previously stored
// status.
func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusQueued:
		return StatusQueued, nil
	case StatusProcessing:
		return StatusProcessing, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusFailed:
		return StatusFailed, nil
	default:
		return "", fmt.Errorf("unrecognized job status: %q", s)
	}
}

// IsTerminal reports whether no further status transitions are expected
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobHandle identifies a counting job on the engine. Created once per
// successful submission and never reused.
type JobHandle struct {
	JobID  string    `json:"job_id" bson:"job_id"`
	Status JobStatus `json:"status" bson:"status"`
}

// JobRecord is the durable record of a submitted counting job
type JobRecord struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SessionID    string             `json:"session_id" bson:"session_id"`
	JobID        string             `json:"job_id" bson:"job_id"`
	FileName     string             `json:"file_name" bson:"file_name"`
	Parameters   ParameterSet       `json:"parameters" bson:"parameters"`
	Status       JobStatus          `json:"status" bson:"status"`
	ErrorMessage string             `json:"error_message,omitempty" bson:"error_message,omitempty"`
	SubmittedAt  time.Time          `json:"submitted_at" bson:"submitted_at"`
	CompletedAt  time.Time          `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}
