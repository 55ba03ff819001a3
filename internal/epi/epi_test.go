package epi

import (
	"io"
	"log/slog"
	"testing"

	"github.com/episim/episim/internal/props"
	"github.com/episim/episim/internal/random"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestModel(t *testing.T, seed uint64, days int, properties map[string]string) *Model {
	t.Helper()
	p := props.NewMap()
	for key, value := range properties {
		p.Set(key, value)
	}
	m, err := NewModel(p, random.New(seed), testLogger(), days)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	return m
}

func finish(t *testing.T, m *Model) {
	t.Helper()
	if err := m.FinishSetup(); err != nil {
		t.Fatalf("FinishSetup() error = %v", err)
	}
}

// runDays drives every condition through full days the way the driver
// does, minus reporting.
func runDays(m *Model, days int) {
	for day := 0; day < days; day++ {
		for _, cond := range m.Conditions {
			cond.Epidemic().BeginDay(day)
		}
		for hour := 0; hour < 24; hour++ {
			for _, cond := range m.Conditions {
				cond.Epidemic().Update(day, hour)
			}
		}
	}
}
