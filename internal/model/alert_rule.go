package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RetryConfig represents webhook retry configuration
type RetryConfig struct {
	MaxAttempts    int     `json:"max_attempts" bson:"max_attempts"`
	InitialDelayMs int     `json:"initial_delay_ms" bson:"initial_delay_ms"`
	MaxDelayMs     int     `json:"max_delay_ms" bson:"max_delay_ms"`
	Multiplier     float64 `json:"multiplier" bson:"multiplier"`
}

// SetDefaults sets default values for retry configuration
func (rc *RetryConfig) SetDefaults() {
	if rc.MaxAttempts == 0 {
		rc.MaxAttempts = 3
	}
	if rc.InitialDelayMs == 0 {
		rc.InitialDelayMs = 1000
	}
	if rc.MaxDelayMs == 0 {
		rc.MaxDelayMs = 30000
	}
	if rc.Multiplier == 0 {
		rc.Multiplier = 2.0
	}
}

// Webhook represents the delivery target for a triggered alert
type Webhook struct {
	URL         string            `json:"url" bson:"url"`
	Method      string            `json:"method" bson:"method"`
	Headers     map[string]string `json:"headers,omitempty" bson:"headers,omitempty"`
	RetryConfig RetryConfig       `json:"retry_config,omitempty" bson:"retry_config,omitempty"`
}

// Validate validates webhook configuration
func (w *Webhook) Validate() error {
	if w.URL == "" {
		return errors.New("webhook URL is required")
	}

	parsedURL, err := url.Parse(w.URL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("webhook URL must start with http:// or https://")
	}

	if w.Method == "" {
		w.Method = "POST"
	}
	w.Method = strings.ToUpper(w.Method)

	w.RetryConfig.SetDefaults()

	return nil
}

// AlertRule is an operator-defined threshold rule evaluated against every
// new observation. The expression is a JSONPath over the observation JSON,
// e.g. "$.total_present_inside".
type AlertRule struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name"`
	Description   string             `json:"description,omitempty" bson:"description,omitempty"`
	Enabled       bool               `json:"enabled" bson:"enabled"`
	Expression    string             `json:"expression" bson:"expression"`
	Operator      string             `json:"operator" bson:"operator"` // eq, ne, gt, lt, gte, lte, contains, exists, regex
	ExpectedValue interface{}        `json:"expected_value" bson:"expected_value"`
	Webhook       Webhook            `json:"webhook" bson:"webhook"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// Validate validates the rule and fills timestamps and defaults
func (r *AlertRule) Validate() error {
	if r.Name == "" {
		return errors.New("rule name is required")
	}
	if len(r.Name) > 255 {
		return errors.New("rule name must be 255 characters or less")
	}
	if r.Expression == "" {
		return errors.New("rule expression is required")
	}

	validOperators := map[string]bool{
		"eq": true, "ne": true, "gt": true, "lt": true,
		"gte": true, "lte": true, "contains": true, "exists": true, "regex": true,
	}
	if !validOperators[strings.ToLower(r.Operator)] {
		return fmt.Errorf("invalid operator: %s", r.Operator)
	}
	r.Operator = strings.ToLower(r.Operator)

	if err := r.Webhook.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	return nil
}

// RuleEvaluation represents the result of evaluating one rule against one
// observation
type RuleEvaluation struct {
	RuleName       string      `json:"rule_name" bson:"rule_name"`
	Expression     string      `json:"expression" bson:"expression"`
	ExtractedValue interface{} `json:"extracted_value" bson:"extracted_value"`
	ExpectedValue  interface{} `json:"expected_value" bson:"expected_value"`
	Operator       string      `json:"operator" bson:"operator"`
	Matched        bool        `json:"matched" bson:"matched"`
	Error          string      `json:"error,omitempty" bson:"error,omitempty"`
}
