package sim

import (
	"log/slog"

	"github.com/episim/episim/internal/epi"
)

const daysPerYear = 365.25

// VitalRecord is one birth or death, kept for the daily report.
type VitalRecord struct {
	Day      int
	PersonID int
	Age      int
	Sex      byte
}

// Demographics ages the population daily and, when enabled, applies
// age-specific mortality and a crude birth rate.
type Demographics struct {
	sim       *Simulation
	enabled   bool
	mortality *epi.AgeMap
	birthRate float64 // annual births per person
	nextID    int

	births []VitalRecord
	deaths []VitalRecord
}

func newDemographics(s *Simulation) *Demographics {
	d := &Demographics{
		sim:     s,
		enabled: s.Props.Bool("enable_demographics", false),
	}
	if !d.enabled {
		return d
	}
	mortality, err := epi.LoadAgeMap(s.Props, "mortality_rate")
	if err != nil {
		s.Props.Errorf("%v", err)
	}
	d.mortality = mortality
	d.birthRate = s.Props.Float("birth_rate", 0)
	return d
}

// Update advances everyone's age by one day and, when demographics are
// enabled, realizes deaths and births for the day.
func (d *Demographics) Update(day int) {
	model := d.sim.Model
	for _, p := range model.People {
		if p.IsDeceased() {
			continue
		}
		p.RealAge += 1 / daysPerYear
		p.Age = int(p.RealAge)
	}
	if !d.enabled {
		return
	}
	d.applyMortality(day)
	d.applyBirths(day)
}

func (d *Demographics) applyMortality(day int) {
	if d.mortality == nil {
		return
	}
	model := d.sim.Model
	rng := d.sim.RNG
	for _, p := range model.People {
		if p.IsDeceased() {
			continue
		}
		daily := d.mortality.FindValue(p.RealAge) / daysPerYear
		if daily <= 0 || rng.Float64() >= daily {
			continue
		}
		d.deaths = append(d.deaths, VitalRecord{Day: day, PersonID: p.ID, Age: p.Age, Sex: p.Sex})
		for _, cond := range model.Conditions {
			cond.Epidemic().Terminate(p)
		}
		p.Die()
		d.sim.Logger.Debug("death", slog.Int("day", day), slog.Int("person", p.ID), slog.Int("age", p.Age))
	}
}

// applyBirths adds StochasticRound(rate * pop / 365.25) newborns, each
// joining the place groups of a uniformly drawn living parent.
func (d *Demographics) applyBirths(day int) {
	if d.birthRate <= 0 {
		return
	}
	model := d.sim.Model
	rng := d.sim.RNG
	alive := model.PopulationSize()
	if alive == 0 {
		return
	}
	wanted := rng.StochasticRound(d.birthRate * float64(alive) / daysPerYear)
	for n := 0; n < wanted; n++ {
		parent := d.drawLivingParent()
		if parent == nil {
			return
		}
		sex := byte('F')
		if rng.Float64() < 0.5 {
			sex = 'M'
		}
		if d.nextID == 0 {
			d.nextID = d.maxPersonID() + 1
		}
		baby := model.AddPerson(d.nextID, 0, sex, parent.Race)
		d.nextID++
		for _, g := range parent.Groups() {
			if g.Type.IsNetwork {
				continue
			}
			g.BeginMembership(baby)
		}
		for _, cond := range model.Conditions {
			cond.Epidemic().AssignInitialState(baby, day)
		}
		d.births = append(d.births, VitalRecord{Day: day, PersonID: baby.ID, Age: 0, Sex: sex})
		d.sim.Logger.Debug("birth", slog.Int("day", day), slog.Int("person", baby.ID), slog.Int("parent", parent.ID))
	}
}

func (d *Demographics) drawLivingParent() *epi.Person {
	model := d.sim.Model
	rng := d.sim.RNG
	for attempt := 0; attempt < 100; attempt++ {
		p := model.People[rng.Int(0, len(model.People)-1)]
		if !p.IsDeceased() && !p.IsTraveling() {
			return p
		}
	}
	return nil
}

func (d *Demographics) maxPersonID() int {
	max := 0
	for _, p := range d.sim.Model.People {
		if p.ID > max {
			max = p.ID
		}
	}
	return max
}

// DrainBirths returns and clears the accumulated birth records.
func (d *Demographics) DrainBirths() []VitalRecord {
	out := d.births
	d.births = nil
	return out
}

// DrainDeaths returns and clears the accumulated death records.
func (d *Demographics) DrainDeaths() []VitalRecord {
	out := d.deaths
	d.deaths = nil
	return out
}
