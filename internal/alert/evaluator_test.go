package alert

import (
	"context"
	"testing"

	"github.com/dandantas/turnstile/internal/model"
	"github.com/dandantas/turnstile/internal/webhook"
)

func testObservation() model.Observation {
	return model.Observation{
		Timestamp:            "00:10",
		TotalPresentInside:   42,
		IncomingLastInterval: 5,
		OutgoingLastInterval: 2,
	}
}

func occupancyRule(operator string, expected interface{}) model.AlertRule {
	return model.AlertRule{
		Name:          "capacity",
		Enabled:       true,
		Expression:    "$.total_present_inside",
		Operator:      operator,
		ExpectedValue: expected,
	}
}

func TestEvaluateOccupancyThreshold(t *testing.T) {
	e := NewEvaluator()

	result := e.Evaluate(occupancyRule("gt", 40), testObservation())
	if result.Error != "" {
		t.Fatalf("evaluation error: %s", result.Error)
	}
	if !result.Matched {
		t.Fatal("42 > 40 should match")
	}

	result = e.Evaluate(occupancyRule("gt", 50), testObservation())
	if result.Matched {
		t.Fatal("42 > 50 should not match")
	}
}

func TestEvaluateOperators(t *testing.T) {
	tests := []struct {
		name      string
		operator  string
		extracted interface{}
		expected  interface{}
		want      bool
	}{
		{"eq numbers", "eq", float64(42), 42, true},
		{"eq mismatch", "eq", float64(42), 41, false},
		{"ne", "ne", float64(42), 41, true},
		{"gt string number", "gt", "10", 5, true},
		{"lt", "lt", float64(3), 5, true},
		{"gte equal", "gte", float64(5), 5, true},
		{"lte above", "lte", float64(6), 5, false},
		{"contains substring", "contains", "00:10:30", "10", true},
		{"contains array", "contains", []interface{}{float64(1), float64(2)}, 2, true},
		{"exists", "exists", "anything", nil, true},
		{"exists nil", "exists", nil, nil, false},
		{"regex", "regex", "00:10", `^\d{2}:\d{2}$`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateOperator(tt.operator, tt.extracted, tt.expected)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateOperatorErrors(t *testing.T) {
	if _, err := EvaluateOperator("between", 1, 2); err == nil {
		t.Fatal("expected error for unknown operator")
	}
	if _, err := EvaluateOperator("gt", "not-a-number", 5); err == nil {
		t.Fatal("expected error for non-numeric comparison")
	}
	if _, err := EvaluateOperator("regex", "x", "("); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestEvaluateBadExpression(t *testing.T) {
	e := NewEvaluator()

	rule := occupancyRule("gt", 1)
	rule.Expression = "$.no_such_field"

	result := e.Evaluate(rule, testObservation())
	if result.Matched {
		t.Fatal("missing field should not match")
	}
	if result.Error == "" {
		t.Fatal("expected extraction error to be recorded")
	}
}

// Notifier fakes

type fakeRuleSource struct {
	rules []model.AlertRule
}

func (f *fakeRuleSource) ListEnabled(ctx context.Context) ([]model.AlertRule, error) {
	return f.rules, nil
}

type fakeSender struct {
	sent []webhook.AlertPayloadData
}

func (f *fakeSender) SendAlert(ctx context.Context, wh model.Webhook, payload webhook.AlertPayloadData, correlationID string) (*model.AlertLog, error) {
	f.sent = append(f.sent, payload)
	return &model.AlertLog{FinalStatus: "delivered"}, nil
}

type fakeLogSink struct {
	logs []*model.AlertLog
}

func (f *fakeLogSink) Create(ctx context.Context, log *model.AlertLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func TestNotifierDispatchesMatchedRules(t *testing.T) {
	matching := occupancyRule("gt", 40)
	silent := occupancyRule("gt", 100)
	silent.Name = "overflow"

	rules := &fakeRuleSource{rules: []model.AlertRule{matching, silent}}
	sender := &fakeSender{}
	sink := &fakeLogSink{}

	n := NewNotifier(rules, sender, sink)
	n.HandleObservation(context.Background(), "job-1", testObservation())

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d webhooks, want 1", len(sender.sent))
	}
	if len(sink.logs) != 1 {
		t.Fatalf("saved %d logs, want 1", len(sink.logs))
	}

	saved := sink.logs[0]
	if saved.RuleName != "capacity" || saved.JobID != "job-1" {
		t.Fatalf("log = %+v", saved)
	}
	if saved.Observation.TotalPresentInside != 42 {
		t.Fatalf("log observation = %+v", saved.Observation)
	}
}
