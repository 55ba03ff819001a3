package epi

import (
	"testing"

	"github.com/episim/episim/internal/props"
)

func TestLoadAgeMap(t *testing.T) {
	p := props.NewMap()
	p.Set("travel_age_prob.age_groups", "18 65 120")
	p.Set("travel_age_prob.age_values", "0.2 0.6 0.3")

	m, err := LoadAgeMap(p, "travel_age_prob")
	if err != nil {
		t.Fatalf("LoadAgeMap() error = %v", err)
	}
	tests := []struct {
		age  float64
		want float64
	}{
		{0, 0.2},
		{17.9, 0.2},
		{18, 0.6},
		{64, 0.6},
		{80, 0.3},
		{120, 0},
	}
	for _, tt := range tests {
		if got := m.FindValue(tt.age); got != tt.want {
			t.Errorf("FindValue(%v) = %v, want %v", tt.age, got, tt.want)
		}
	}
}

func TestLoadAgeMapMissingReturnsNil(t *testing.T) {
	m, err := LoadAgeMap(props.NewMap(), "travel_age_prob")
	if err != nil {
		t.Fatalf("LoadAgeMap() error = %v", err)
	}
	if m != nil {
		t.Errorf("LoadAgeMap() = %v, want nil for absent map", m)
	}
}

func TestLoadAgeMapErrors(t *testing.T) {
	tests := []struct {
		name   string
		groups string
		values string
	}{
		{"length mismatch", "18 65", "0.2"},
		{"non-monotone thresholds", "65 18", "0.2 0.6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := props.NewMap()
			p.Set("travel_age_prob.age_groups", tt.groups)
			p.Set("travel_age_prob.age_values", tt.values)
			if _, err := LoadAgeMap(p, "travel_age_prob"); err == nil {
				t.Errorf("LoadAgeMap() error = nil, want error")
			}
		})
	}
}
