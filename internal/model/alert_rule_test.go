package model

import "testing"

func validRule() AlertRule {
	return AlertRule{
		Name:          "capacity",
		Enabled:       true,
		Expression:    "$.total_present_inside",
		Operator:      "GT",
		ExpectedValue: 40,
		Webhook:       Webhook{URL: "https://hooks.example.com/alerts"},
	}
}

func TestAlertRuleValidate(t *testing.T) {
	rule := validRule()
	if err := rule.Validate(); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	if rule.Operator != "gt" {
		t.Fatalf("operator = %q, want normalized to lowercase", rule.Operator)
	}
	if rule.Webhook.Method != "POST" {
		t.Fatalf("method = %q, want POST default", rule.Webhook.Method)
	}
	if rule.Webhook.RetryConfig.MaxAttempts != 3 {
		t.Fatalf("retry attempts = %d, want default 3", rule.Webhook.RetryConfig.MaxAttempts)
	}
	if rule.CreatedAt.IsZero() || rule.UpdatedAt.IsZero() {
		t.Fatal("timestamps not filled")
	}
}

func TestAlertRuleValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AlertRule)
	}{
		{"missing name", func(r *AlertRule) { r.Name = "" }},
		{"missing expression", func(r *AlertRule) { r.Expression = "" }},
		{"unknown operator", func(r *AlertRule) { r.Operator = "between" }},
		{"missing webhook url", func(r *AlertRule) { r.Webhook.URL = "" }},
		{"non-http webhook", func(r *AlertRule) { r.Webhook.URL = "ftp://example.com" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validRule()
			tt.mutate(&rule)
			if err := rule.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
