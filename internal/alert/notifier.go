package alert

import (
	"context"
	"log/slog"

	"github.com/dandantas/turnstile/internal/model"
	"github.com/dandantas/turnstile/internal/webhook"
	"github.com/google/uuid"
)

// RuleSource provides the enabled alert rules
type RuleSource interface {
	ListEnabled(ctx context.Context) ([]model.AlertRule, error)
}

// Sender delivers a payload to a webhook
type Sender interface {
	SendAlert(ctx context.Context, wh model.Webhook, payload webhook.AlertPayloadData, correlationID string) (*model.AlertLog, error)
}

// LogSink persists alert logs
type LogSink interface {
	Create(ctx context.Context, log *model.AlertLog) error
}

// Notifier evaluates the enabled rules against each new observation and
// dispatches webhooks for matches. Delivery failures are logged, never
// surfaced to the polling loops.
type Notifier struct {
	rules     RuleSource
	sender    Sender
	logs      LogSink
	evaluator *Evaluator
}

// NewNotifier creates a new notifier
func NewNotifier(rules RuleSource, sender Sender, logs LogSink) *Notifier {
	return &Notifier{
		rules:     rules,
		sender:    sender,
		logs:      logs,
		evaluator: NewEvaluator(),
	}
}

// HandleObservation runs every enabled rule against one observation
func (n *Notifier) HandleObservation(ctx context.Context, jobID string, obs model.Observation) {
	rules, err := n.rules.ListEnabled(ctx)
	if err != nil {
		slog.Error("Failed to load alert rules", "job_id", jobID, "error", err)
		return
	}
	if len(rules) == 0 {
		return
	}

	correlationID := uuid.New().String()

	for _, rule := range rules {
		evaluation := n.evaluator.Evaluate(rule, obs)
		if !evaluation.Matched {
			continue
		}

		slog.Info("Occupancy alert rule matched",
			"rule_name", rule.Name,
			"job_id", jobID,
			"correlation_id", correlationID,
			"extracted_value", evaluation.ExtractedValue,
		)

		payload := webhook.FormatAlertPayload(rule, evaluation, jobID, obs, correlationID)

		alertLog, err := n.sender.SendAlert(ctx, rule.Webhook, payload, correlationID)
		if err != nil {
			slog.Error("Failed to deliver alert webhook",
				"rule_name", rule.Name,
				"job_id", jobID,
				"correlation_id", correlationID,
				"error", err,
			)
		}
		if alertLog == nil {
			continue
		}

		alertLog.RuleID = rule.ID
		alertLog.RuleName = rule.Name
		alertLog.JobID = jobID
		alertLog.Observation = obs

		if saveErr := n.logs.Create(ctx, alertLog); saveErr != nil {
			slog.Error("Failed to save alert log",
				"rule_name", rule.Name,
				"correlation_id", correlationID,
				"error", saveErr,
			)
		}
	}
}
