package epi

import (
	"testing"

	"github.com/episim/episim/internal/props"
	"github.com/episim/episim/internal/random"
)

func seirProps() map[string]string {
	return map[string]string{
		"INF.states":             "S E I R",
		"INF.exposed_state":      "E",
		"INF.import_start_state": "I",
		"INF.E.duration":         "48",
		"INF.E.next_state":       "I",
		"INF.I.duration":         "96",
		"INF.I.next_states":      "R S",
		"INF.I.next_probs":       "0.9 0.1",
		"INF.I.transmissibility": "1",
		"INF.R.susceptibility":   "0",
	}
}

func loadHistory(t *testing.T, properties map[string]string) *NaturalHistory {
	t.Helper()
	p := props.NewMap()
	for key, value := range properties {
		p.Set(key, value)
	}
	nh, err := LoadNaturalHistory(p, "INF")
	if err != nil {
		t.Fatalf("LoadNaturalHistory() error = %v", err)
	}
	if err := p.Err(); err != nil {
		t.Fatalf("property errors: %v", err)
	}
	return nh
}

func TestLoadNaturalHistory(t *testing.T) {
	nh := loadHistory(t, seirProps())

	if got := nh.StateCount(); got != 4 {
		t.Fatalf("StateCount() = %v, want 4", got)
	}
	if got := nh.StateName(nh.ExposedState()); got != "E" {
		t.Errorf("exposed state = %v, want E", got)
	}
	if got := nh.StateName(nh.ImportStartState()); got != "I" {
		t.Errorf("import start state = %v, want I", got)
	}
	if got := nh.Susceptibility(nh.StateID("S")); got != 1 {
		t.Errorf("Susceptibility(S) = %v, want 1 (first-state default)", got)
	}
	if got := nh.Susceptibility(nh.StateID("I")); got != 0 {
		t.Errorf("Susceptibility(I) = %v, want 0", got)
	}
	if got := nh.Transmissibility(nh.StateID("I")); got != 1 {
		t.Errorf("Transmissibility(I) = %v, want 1", got)
	}
}

func TestNextTransitionFanOut(t *testing.T) {
	nh := loadHistory(t, seirProps())
	rng := random.New(5)

	state := nh.StateID("I")
	counts := map[int]int{}
	const draws = 10000
	for i := 0; i < draws; i++ {
		next, delay := nh.NextTransition(rng, state)
		if delay != 96 {
			t.Fatalf("NextTransition(I) delay = %v, want 96", delay)
		}
		counts[next]++
	}
	gotR := float64(counts[nh.StateID("R")]) / draws
	if gotR < 0.88 || gotR > 0.92 {
		t.Errorf("P(I->R) = %v, want about 0.9", gotR)
	}
}

func TestTerminalStateHasNoTransition(t *testing.T) {
	nh := loadHistory(t, seirProps())
	next, delay := nh.NextTransition(random.New(1), nh.StateID("R"))
	if next != -1 || delay != 0 {
		t.Errorf("NextTransition(R) = (%v, %v), want (-1, 0)", next, delay)
	}
}

func TestLoadNaturalHistoryErrors(t *testing.T) {
	tests := []struct {
		name       string
		properties map[string]string
	}{
		{"no states", map[string]string{}},
		{"duplicate state", map[string]string{"INF.states": "S S"}},
		{"unknown exposed state", map[string]string{
			"INF.states": "S I", "INF.exposed_state": "X",
		}},
		{"unknown next state", map[string]string{
			"INF.states": "S I", "INF.I.next_state": "X",
		}},
		{"probs do not sum to one", map[string]string{
			"INF.states": "S I R", "INF.I.next_states": "R S", "INF.I.next_probs": "0.5 0.1",
		}},
		{"probs length mismatch", map[string]string{
			"INF.states": "S I R", "INF.I.next_states": "R S", "INF.I.next_probs": "1",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := props.NewMap()
			for key, value := range tt.properties {
				p.Set(key, value)
			}
			if _, err := LoadNaturalHistory(p, "INF"); err == nil {
				t.Errorf("LoadNaturalHistory() error = nil, want error")
			}
		})
	}
}

func TestConditionToTransmitDefaultsToSelf(t *testing.T) {
	m := newTestModel(t, 1, 1, map[string]string{
		"conditions": "INF",
		"INF.states": "S I",
	})
	nh := m.Conditions[0].History
	if got := nh.ConditionToTransmit(nh.StateID("I")); got != 0 {
		t.Errorf("ConditionToTransmit(I) = %v, want 0", got)
	}
}

func TestConditionToTransmitCrossCondition(t *testing.T) {
	m := newTestModel(t, 1, 1, map[string]string{
		"conditions":                  "FLU WORRY",
		"FLU.states":                  "S I",
		"FLU.I.condition_to_transmit": "WORRY",
		"WORRY.states":                "calm worried",
	})
	nh := m.Conditions[0].History
	if got := nh.ConditionToTransmit(nh.StateID("I")); got != 1 {
		t.Errorf("ConditionToTransmit(I) = %v, want 1 (WORRY)", got)
	}
}
