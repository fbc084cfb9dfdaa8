// Package alert evaluates operator-defined occupancy rules against count
// observations. A rule extracts a value from the observation JSON with a
// JSONPath expression and compares it to an expected value.
package alert

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dandantas/turnstile/internal/model"
	"github.com/oliveagle/jsonpath"
)

// Evaluator evaluates alert rules against observations
type Evaluator struct{}

// NewEvaluator creates a new evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate evaluates a single rule against one observation
func (e *Evaluator) Evaluate(rule model.AlertRule, obs model.Observation) model.RuleEvaluation {
	result := model.RuleEvaluation{
		RuleName:      rule.Name,
		Expression:    rule.Expression,
		Operator:      rule.Operator,
		ExpectedValue: rule.ExpectedValue,
		Matched:       false,
	}

	// Round-trip through JSON so JSONPath sees the observation the way the
	// API renders it (field names included).
	raw, err := json.Marshal(obs)
	if err != nil {
		result.Error = fmt.Sprintf("failed to encode observation: %v", err)
		return result
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		result.Error = fmt.Sprintf("failed to decode observation: %v", err)
		return result
	}

	extracted, err := extractValue(doc, rule.Expression)
	if err != nil {
		result.Error = err.Error()
		slog.Debug("JSONPath extraction failed",
			"rule", rule.Name,
			"expression", rule.Expression,
			"error", err.Error(),
		)
		return result
	}
	result.ExtractedValue = extracted

	matched, err := EvaluateOperator(rule.Operator, extracted, rule.ExpectedValue)
	if err != nil {
		result.Error = err.Error()
		slog.Error("Operator evaluation failed",
			"rule", rule.Name,
			"operator", rule.Operator,
			"error", err.Error(),
		)
		return result
	}
	result.Matched = matched

	return result
}

// EvaluateAll evaluates every rule against one observation
func (e *Evaluator) EvaluateAll(rules []model.AlertRule, obs model.Observation) []model.RuleEvaluation {
	results := make([]model.RuleEvaluation, 0, len(rules))
	for _, rule := range rules {
		results = append(results, e.Evaluate(rule, obs))
	}
	return results
}

// extractValue extracts a value from a decoded JSON document using a
// JSONPath expression
func extractValue(doc interface{}, expression string) (interface{}, error) {
	pattern, err := jsonpath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath expression '%s': %w", expression, err)
	}

	value, err := pattern.Lookup(doc)
	if err != nil {
		return nil, fmt.Errorf("JSONPath expression '%s' returned no results: %w", expression, err)
	}

	return value, nil
}
