package webhook

import (
	"fmt"

	"github.com/dandantas/turnstile/internal/model"
)

// AlertPayloadData is the body delivered to an alert webhook
type AlertPayloadData struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
	Details  map[string]interface{} `json:"details"`
}

// FormatAlertPayload builds a webhook payload for a matched occupancy rule
func FormatAlertPayload(
	rule model.AlertRule,
	evaluation model.RuleEvaluation,
	jobID string,
	obs model.Observation,
	correlationID string,
) AlertPayloadData {
	var message string
	if evaluation.Error != "" {
		message = fmt.Sprintf("🚨 Occupancy alert: rule '%s' evaluation error: %s", rule.Name, evaluation.Error)
	} else {
		message = fmt.Sprintf(
			"🚨 Occupancy alert: rule '%s' matched at %s (extracted: %v, operator: %s, expected: %v)",
			rule.Name,
			obs.Timestamp,
			evaluation.ExtractedValue,
			evaluation.Operator,
			evaluation.ExpectedValue,
		)
	}

	return AlertPayloadData{
		Text: message,
		Metadata: map[string]interface{}{
			"service":        "turnstile",
			"rule_name":      rule.Name,
			"job_id":         jobID,
			"correlation_id": correlationID,
			"timestamp":      "", // Set by the dispatcher at delivery time
		},
		Details: map[string]interface{}{
			"observation_timestamp":  obs.Timestamp,
			"total_present_inside":   obs.TotalPresentInside,
			"incoming_last_interval": obs.IncomingLastInterval,
			"outgoing_last_interval": obs.OutgoingLastInterval,
			"extracted_value":        evaluation.ExtractedValue,
			"expected_value":         evaluation.ExpectedValue,
			"operator":               evaluation.Operator,
			"jsonpath_expression":    evaluation.Expression,
		},
	}
}
