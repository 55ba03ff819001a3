// Package sim drives a simulation run: the day/hour loop, demographic
// updates, travel substitutions, and per-condition epidemic updates. All
// run state lives on the Simulation value so tests can build independent
// runs side by side.
package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/episim/episim/internal/calendar"
	"github.com/episim/episim/internal/epi"
	"github.com/episim/episim/internal/population"
	"github.com/episim/episim/internal/props"
	"github.com/episim/episim/internal/random"
)

// Reporter receives end-of-day and end-of-run callbacks. The report package
// implements it; a nil reporter disables all output.
type Reporter interface {
	BeginRun(s *Simulation) error
	EndDay(s *Simulation, day int) error
	EndRun(s *Simulation) error
}

// Simulation is one run: calendar, RNG, model, and the day loop that
// advances them together.
type Simulation struct {
	Props    *props.Map
	Model    *epi.Model
	Calendar *calendar.Calendar
	RNG      *random.Engine
	Logger   *slog.Logger

	Seed      uint64
	RunNumber int
	Days      int

	Demographics *Demographics
	Travel       *Travel

	// Reporter, when set, is called at the end of every day and at run
	// boundaries. Hooks run after the reporter.
	Reporter Reporter

	reseedDay  int
	reseedRun  int
	fixedOrder bool
	travelOn   bool

	dayHooks []func(day int) error
}

// New builds a simulation from a property map. The population and any
// manually built groups are added between New and Setup.
func New(p *props.Map, run int, logger *slog.Logger) (*Simulation, error) {
	if logger == nil {
		logger = slog.Default()
	}
	days := p.Int("days", 0)
	if days <= 0 && !p.Exists("end_date") {
		return nil, fmt.Errorf("sim: need either days or end_date")
	}
	cal, err := calendar.New(calendar.Options{
		StartDate: p.String("start_date", "2020-01-01"),
		EndDate:   p.String("end_date", ""),
		Days:      days,
	})
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	seed := uint64(p.Int("seed", 123456))
	// Runs differ by run number from day 0; the reseed branch uses the
	// same formula with reseed_run so a branched run replays the base
	// trajectory up to reseed_day.
	rng := random.New(masterSeed(seed, run))

	model, err := epi.NewModel(p, rng, logger, cal.Days())
	if err != nil {
		return nil, err
	}
	model.Calendar = cal

	s := &Simulation{
		Props:      p,
		Model:      model,
		Calendar:   cal,
		RNG:        rng,
		Logger:     logger,
		Seed:       seed,
		RunNumber:  run,
		Days:       cal.Days(),
		reseedDay:  p.Int("reseed_day", -1),
		reseedRun:  p.Int("reseed_run", 0),
		fixedOrder: p.Bool("fixed_condition_order", false),
		travelOn:   p.Bool("enable_travel", false),
	}
	s.Demographics = newDemographics(s)
	return s, nil
}

func runSeed(seed uint64, run int) uint64 {
	return seed + uint64(run) - 1
}

// masterSeed derives the single-threaded engine's seed: sub-seed 0 of the
// run's per-worker seed sequence.
func masterSeed(seed uint64, run int) uint64 {
	return random.WorkerSeeds(runSeed(seed, run), 1)[0]
}

// AddDayHook registers a callback invoked after each day's reporting.
func (s *Simulation) AddDayHook(hook func(day int) error) {
	s.dayHooks = append(s.dayHooks, hook)
}

// Setup finishes construction once the population is in place: synthetic
// people and places from the property map, travel tables when enabled,
// network edges, partitions, and initial states. Accumulated property
// errors abort here, before day 0.
func (s *Simulation) Setup() error {
	if cfg := population.ConfigFromProps(s.Props); cfg.Size > 0 {
		if err := population.NewGenerator(s.Model, s.RNG, cfg).Generate(); err != nil {
			return err
		}
	}
	if s.travelOn {
		travel, err := SetupTravel(s.Model, s.Props, s.RNG)
		if err != nil {
			return err
		}
		s.Travel = travel
	}
	if err := s.Model.FinishSetup(); err != nil {
		return err
	}
	if err := s.Props.Err(); err != nil {
		return fmt.Errorf("model properties: %w", err)
	}
	s.Logger.Info("simulation ready",
		slog.Int("run", s.RunNumber),
		slog.Int("days", s.Days),
		slog.Int("population", s.Model.PopulationSize()),
		slog.Int("conditions", len(s.Model.Conditions)))
	return nil
}

// Run advances the simulation through every day in the window.
func (s *Simulation) Run(ctx context.Context) error {
	if s.Reporter != nil {
		if err := s.Reporter.BeginRun(s); err != nil {
			return err
		}
	}
	for day := 0; day < s.Days; day++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.setupDay(day)
		for hour := 0; hour < 24; hour++ {
			s.step(day, hour)
		}
		if err := s.finishDay(day); err != nil {
			return err
		}
	}
	if s.Reporter != nil {
		if err := s.Reporter.EndRun(s); err != nil {
			return err
		}
	}
	return nil
}

// setupDay runs the morning bookkeeping: RNG reseed branch, demographics,
// removal of the deceased, travel returns and departures, activity
// refresh, and per-condition day counters.
func (s *Simulation) setupDay(day int) {
	if day == s.reseedDay {
		s.RNG.Seed(masterSeed(s.Seed, s.reseedRun))
		s.Logger.Info("reseeded RNG", slog.Int("day", day), slog.Int("reseed_run", s.reseedRun))
	}
	s.Demographics.Update(day)
	s.removeDeceased()
	if s.Travel != nil {
		s.Travel.Update(day)
	}
	for _, p := range s.Model.People {
		if !p.IsDeceased() {
			p.UpdateActivities(day)
		}
	}
	for _, cond := range s.Model.Conditions {
		cond.Epidemic().BeginDay(day)
	}
}

// step updates every condition for one hour. With more than one condition
// the update order is shuffled; a single condition consumes no draw, so a
// one-condition run is not an RNG prefix of a two-condition run.
func (s *Simulation) step(day, hour int) {
	conds := s.Model.Conditions
	if len(conds) > 1 && !s.fixedOrder {
		for _, i := range s.RNG.ShuffledIndex(len(conds)) {
			conds[i].Epidemic().Update(day, hour)
		}
		return
	}
	for _, cond := range conds {
		cond.Epidemic().Update(day, hour)
	}
}

func (s *Simulation) finishDay(day int) error {
	for _, pl := range s.Model.Places {
		pl.RecordSize()
	}
	if s.Reporter != nil {
		if err := s.Reporter.EndDay(s, day); err != nil {
			return err
		}
	}
	for _, hook := range s.dayHooks {
		if err := hook(day); err != nil {
			return err
		}
	}
	return nil
}

// removeDeceased takes everyone who died since the last sweep out of their
// groups. The person objects stay behind so exposure provenance resolves.
func (s *Simulation) removeDeceased() {
	for _, p := range s.Model.People {
		if p.IsDeceased() && len(p.Groups()) > 0 {
			s.Model.RemovePerson(p)
		}
	}
}
