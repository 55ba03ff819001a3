package sim

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/episim/episim/internal/props"
	"github.com/episim/episim/internal/random"
	"github.com/episim/episim/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSim(t *testing.T, run int, properties map[string]string) *Simulation {
	t.Helper()
	p := props.NewMap()
	for key, value := range properties {
		p.Set(key, value)
	}
	return newPropsSim(t, run, p)
}

func newPropsSim(t *testing.T, run int, p *props.Map) *Simulation {
	t.Helper()
	s, err := New(p, run, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

// fluSim builds the canned SEIR model: enough stochastic activity that
// diverging RNG streams produce diverging incidence curves.
func fluSim(t *testing.T, run int, overrides ...func(*props.Map)) *Simulation {
	t.Helper()
	return newPropsSim(t, run, testutil.SEIRProps(overrides...))
}

// runAndTrace runs a simulation collecting the daily incidence of every
// state of every condition.
func runAndTrace(t *testing.T, s *Simulation) [][]int {
	t.Helper()
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	var trace [][]int
	s.AddDayHook(func(day int) error {
		var row []int
		for _, cond := range s.Model.Conditions {
			for state := 0; state < cond.History.StateCount(); state++ {
				row = append(row, cond.Epidemic().DailyIncidence(state))
			}
		}
		trace = append(trace, row)
		return nil
	})
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return trace
}

func equalTrace(a, b [][]int) bool {
	if len(a) != len(b) {
		return false
	}
	for day := range a {
		if len(a[day]) != len(b[day]) {
			return false
		}
		for i := range a[day] {
			if a[day][i] != b[day][i] {
				return false
			}
		}
	}
	return true
}

func TestMasterEngineUsesWorkerSubSeed(t *testing.T) {
	if got, want := masterSeed(5000, 1), random.WorkerSeeds(runSeed(5000, 1), 1)[0]; got != want {
		t.Errorf("masterSeed(5000, 1) = %v, want sub-seed 0 = %v", got, want)
	}
	if masterSeed(5000, 1) == masterSeed(5000, 2) {
		t.Error("runs 1 and 2 derived the same master seed")
	}
}

func TestNewNeedsWindow(t *testing.T) {
	p := props.NewMap()
	if _, err := New(p, 1, testLogger()); err == nil {
		t.Error("New() with neither days nor end_date should fail")
	}
}

func TestRunIsDeterministicUnderFixedSeed(t *testing.T) {
	first := runAndTrace(t, fluSim(t, 1))
	second := runAndTrace(t, fluSim(t, 1))
	if !equalTrace(first, second) {
		t.Errorf("two runs with identical seed and run number diverged:\n%v\n%v", first, second)
	}
}

func TestRunNumberChangesTrajectory(t *testing.T) {
	first := runAndTrace(t, fluSim(t, 1))
	second := runAndTrace(t, fluSim(t, 2))
	if equalTrace(first, second) {
		t.Error("runs 1 and 2 produced identical incidence curves")
	}
}

func TestReseedBranch(t *testing.T) {
	const reseedDay = 5
	base := runAndTrace(t, fluSim(t, 1))
	branch := runAndTrace(t, fluSim(t, 1, testutil.SetAll(map[string]string{
		"reseed_day": "5",
		"reseed_run": "2",
	})))

	if !equalTrace(base[:reseedDay], branch[:reseedDay]) {
		t.Errorf("branch diverged before the reseed day:\n%v\n%v", base[:reseedDay], branch[:reseedDay])
	}
	if equalTrace(base[reseedDay:], branch[reseedDay:]) {
		t.Error("branch identical to base after the reseed day")
	}
}

func TestClosedPlacesSuppressTransmission(t *testing.T) {
	s := fluSim(t, 1, testutil.SetAll(map[string]string{
		"Household.has_administrator": "1",
		"Household.closure_day":       "0",
		"Household.closure_duration":  "15",
	}))
	runAndTrace(t, s)

	cond := s.Model.Conditions[0]
	if got := cond.Epidemic().TotalCount(cond.History.StateID("E")); got != 3 {
		t.Errorf("TotalCount(E) = %v, want only the 3 imports while every household is closed", got)
	}
}

func TestFileBackedModelMatchesInMemory(t *testing.T) {
	path := testutil.WriteModelFile(t, `
# Small SEIR model, 100 people in hourly households.
days = 15
seed = 5000
population_size = 100
place_types = Household
Household.hourly = 1
Household.mean_size = 25
Household.contact_rate = 0.1
conditions = FLU
FLU.transmissibility = 1
FLU.transmission_mode = proximity
FLU.states = S E I R
FLU.E.duration = 24
FLU.E.next_state = I
FLU.I.duration = 96
FLU.I.next_state = R
FLU.I.transmissibility = 1
FLU.import_day = 0
FLU.import_count = 3
`)
	p, err := props.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error = %v", path, err)
	}

	fromFile := runAndTrace(t, newPropsSim(t, 1, p))
	fromMemory := runAndTrace(t, fluSim(t, 1))
	if !equalTrace(fromFile, fromMemory) {
		t.Errorf("file-backed model diverged from the in-memory fixture:\n%v\n%v", fromFile, fromMemory)
	}
}

func TestZeroTransmissibilityStaysAtImports(t *testing.T) {
	s := fluSim(t, 1, testutil.SetAll(map[string]string{
		"FLU.transmissibility": "0",
	}))
	runAndTrace(t, s)

	cond := s.Model.Conditions[0]
	nh := cond.History
	if got := cond.Epidemic().TotalCount(nh.StateID("E")); got != 3 {
		t.Errorf("TotalCount(E) = %v, want the 3 imports and nothing else", got)
	}
}
