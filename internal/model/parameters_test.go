package model

import "testing"

func validParams() ParameterSet {
	return ParameterSet{
		DoorDirection:       DoorUp,
		Confidence:          0.5,
		SkipFrames:          1,
		PollIntervalSeconds: 5,
	}
}

func TestParameterSetValidate(t *testing.T) {
	p := validParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*ParameterSet)
	}{
		{"unknown direction", func(p *ParameterSet) { p.DoorDirection = "sideways" }},
		{"empty direction", func(p *ParameterSet) { p.DoorDirection = "" }},
		{"confidence below range", func(p *ParameterSet) { p.Confidence = -0.1 }},
		{"confidence above range", func(p *ParameterSet) { p.Confidence = 1.1 }},
		{"skip frames negative", func(p *ParameterSet) { p.SkipFrames = -1 }},
		{"skip frames too high", func(p *ParameterSet) { p.SkipFrames = 3 }},
		{"interval zero", func(p *ParameterSet) { p.PollIntervalSeconds = 0 }},
		{"interval too high", func(p *ParameterSet) { p.PollIntervalSeconds = 61 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestParameterSetValidateBoundaries(t *testing.T) {
	for _, p := range []ParameterSet{
		{DoorDirection: DoorLeft, Confidence: 0, SkipFrames: 0, PollIntervalSeconds: 1},
		{DoorDirection: DoorRight, Confidence: 1, SkipFrames: 2, PollIntervalSeconds: 60},
	} {
		if err := p.Validate(); err != nil {
			t.Fatalf("boundary params %+v rejected: %v", p, err)
		}
	}
}

func TestParseDoorDirection(t *testing.T) {
	for _, s := range []string{"up", "Down", " LEFT ", "right"} {
		if _, err := ParseDoorDirection(s); err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
	}

	if _, err := ParseDoorDirection("diagonal"); err == nil {
		t.Fatal("expected error for unknown direction")
	}
}
