package epi

import (
	"fmt"
	"math"

	"github.com/episim/episim/internal/props"
	"github.com/episim/episim/internal/random"
)

// NaturalHistory is a condition's state machine: the declared states, what a
// person in each state can do, and how states hand off to one another.
type NaturalHistory struct {
	condition string
	states    []string
	byName    map[string]int

	exposedState     int
	importStartState int

	config []stateConfig
}

type stateConfig struct {
	durationHours    int
	nextStates       []int
	nextCDF          []float64
	transmissibility float64
	susceptibility   float64
	fatal            bool
	transmitName     string
	transmitID       int
	importCount      int
	importMinAge     float64
	importMaxAge     float64
}

// Import age windows default to the whole population.
const noImportAgeCap = 999

// LoadNaturalHistory reads a condition's state machine from the property
// map. The first declared state is the population's initial state and
// defaults to susceptibility 1.
func LoadNaturalHistory(p *props.Map, condition string) (*NaturalHistory, error) {
	names := p.Strings(condition + ".states")
	if len(names) == 0 {
		return nil, fmt.Errorf("condition %s: no states declared", condition)
	}
	nh := &NaturalHistory{
		condition: condition,
		states:    names,
		byName:    make(map[string]int, len(names)),
	}
	for i, name := range names {
		if _, dup := nh.byName[name]; dup {
			return nil, fmt.Errorf("condition %s: state %s declared twice", condition, name)
		}
		nh.byName[name] = i
	}

	defaultExposed := 0
	if len(names) > 1 {
		defaultExposed = 1
	}
	var err error
	nh.exposedState, err = nh.stateProp(p, condition+".exposed_state", defaultExposed)
	if err != nil {
		return nil, err
	}
	nh.importStartState, err = nh.stateProp(p, condition+".import_start_state", nh.exposedState)
	if err != nil {
		return nil, err
	}

	nh.config = make([]stateConfig, len(names))
	for i, state := range names {
		prefix := condition + "." + state
		cfg := &nh.config[i]
		cfg.durationHours = p.Int(prefix+".duration", 0)
		defaultSusc := 0.0
		if i == 0 {
			defaultSusc = 1.0
		}
		cfg.susceptibility = p.Float(prefix+".susceptibility", defaultSusc)
		cfg.transmissibility = p.Float(prefix+".transmissibility", 0)
		cfg.fatal = p.Bool(prefix+".fatality", false)
		cfg.transmitName = p.String(prefix+".condition_to_transmit", condition)
		cfg.transmitID = -1
		cfg.importCount = p.Int(prefix+".import_count", 0)
		cfg.importMinAge = p.Float(prefix+".import_min_age", 0)
		cfg.importMaxAge = p.Float(prefix+".import_max_age", noImportAgeCap)
		if err := nh.loadTransitions(p, prefix, cfg); err != nil {
			return nil, err
		}
	}
	return nh, nil
}

func (nh *NaturalHistory) stateProp(p *props.Map, key string, def int) (int, error) {
	name := p.String(key, "")
	if name == "" {
		return def, nil
	}
	id, ok := nh.byName[name]
	if !ok {
		return 0, fmt.Errorf("%s: unknown state %s", key, name)
	}
	return id, nil
}

func (nh *NaturalHistory) loadTransitions(p *props.Map, prefix string, cfg *stateConfig) error {
	var names []string
	if p.Exists(prefix + ".next_state") {
		names = []string{p.String(prefix+".next_state", "")}
	} else {
		names = p.Strings(prefix + ".next_states")
	}
	if len(names) == 0 {
		return nil
	}
	for _, name := range names {
		id, ok := nh.byName[name]
		if !ok {
			return fmt.Errorf("%s: unknown next state %s", prefix, name)
		}
		cfg.nextStates = append(cfg.nextStates, id)
	}
	probs := p.Floats(prefix + ".next_probs")
	if probs == nil {
		if len(cfg.nextStates) != 1 {
			return fmt.Errorf("%s: %d next states but no next_probs", prefix, len(cfg.nextStates))
		}
		probs = []float64{1}
	}
	if len(probs) != len(cfg.nextStates) {
		return fmt.Errorf("%s: %d next states but %d next_probs", prefix, len(cfg.nextStates), len(probs))
	}
	sum := 0.0
	cfg.nextCDF = make([]float64, len(probs))
	for i, prob := range probs {
		sum += prob
		cfg.nextCDF[i] = sum
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("%s: next_probs sum to %v, want 1", prefix, sum)
	}
	cfg.nextCDF[len(cfg.nextCDF)-1] = 1
	return nil
}

// StateCount returns the number of declared states.
func (nh *NaturalHistory) StateCount() int {
	return len(nh.states)
}

// StateName returns the name of a state id.
func (nh *NaturalHistory) StateName(id int) string {
	return nh.states[id]
}

// StateID returns the id of a state name, or -1.
func (nh *NaturalHistory) StateID(name string) int {
	if id, ok := nh.byName[name]; ok {
		return id
	}
	return -1
}

// ExposedState returns the state entered on exposure.
func (nh *NaturalHistory) ExposedState() int {
	return nh.exposedState
}

// ImportStartState returns the state imported cases start in.
func (nh *NaturalHistory) ImportStartState() int {
	return nh.importStartState
}

// ImportCount returns the number of cases to import into a state on the
// condition's import day.
func (nh *NaturalHistory) ImportCount(state int) int {
	return nh.config[state].importCount
}

// ImportAgeWindow returns the [min, max] real-age window drawn imports must
// fall in.
func (nh *NaturalHistory) ImportAgeWindow(state int) (minAge, maxAge float64) {
	return nh.config[state].importMinAge, nh.config[state].importMaxAge
}

// Transmissibility returns the state's transmissibility multiplier.
func (nh *NaturalHistory) Transmissibility(state int) float64 {
	return nh.config[state].transmissibility
}

// Susceptibility returns the state's susceptibility.
func (nh *NaturalHistory) Susceptibility(state int) float64 {
	return nh.config[state].susceptibility
}

// IsFatal reports whether entering the state kills the person.
func (nh *NaturalHistory) IsFatal(state int) bool {
	return nh.config[state].fatal
}

// ConditionToTransmit returns the condition id a source in this state
// passes on. Resolved during model setup; before that it is -1.
func (nh *NaturalHistory) ConditionToTransmit(state int) int {
	return nh.config[state].transmitID
}

func (nh *NaturalHistory) resolveTransmit(lookup func(name string) int) error {
	for i := range nh.config {
		id := lookup(nh.config[i].transmitName)
		if id < 0 {
			return fmt.Errorf("condition %s state %s: unknown condition_to_transmit %s",
				nh.condition, nh.states[i], nh.config[i].transmitName)
		}
		nh.config[i].transmitID = id
	}
	return nil
}

// NextTransition draws the state that follows the given one and the delay
// in hours before it is entered. A terminal state returns (-1, 0).
func (nh *NaturalHistory) NextTransition(rng *random.Engine, state int) (next, delayHours int) {
	cfg := &nh.config[state]
	if len(cfg.nextStates) == 0 {
		return -1, 0
	}
	pick := 0
	if len(cfg.nextStates) > 1 {
		pick = rng.DrawFromCDF(cfg.nextCDF)
	}
	return cfg.nextStates[pick], cfg.durationHours
}
