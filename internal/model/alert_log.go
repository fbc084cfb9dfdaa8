package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AlertAttempt represents a single webhook delivery attempt
type AlertAttempt struct {
	Timestamp    time.Time `json:"timestamp" bson:"timestamp"`
	StatusCode   int       `json:"status_code,omitempty" bson:"status_code,omitempty"`
	ResponseBody string    `json:"response_body,omitempty" bson:"response_body,omitempty"`
	Error        string    `json:"error,omitempty" bson:"error,omitempty"`
	DurationMs   int64     `json:"duration_ms" bson:"duration_ms"`
}

// AlertLog records one triggered occupancy alert and its delivery attempts
type AlertLog struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RuleID        primitive.ObjectID `json:"rule_id" bson:"rule_id"`
	RuleName      string             `json:"rule_name" bson:"rule_name"`
	JobID         string             `json:"job_id" bson:"job_id"`
	CorrelationID string             `json:"correlation_id" bson:"correlation_id"`
	WebhookURL    string             `json:"webhook_url" bson:"webhook_url"`
	Observation   Observation        `json:"observation" bson:"observation"`
	Attempts      []AlertAttempt     `json:"attempts" bson:"attempts"`
	FinalStatus   string             `json:"final_status" bson:"final_status"` // "delivered", "failed", "retrying"
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	CompletedAt   time.Time          `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}
