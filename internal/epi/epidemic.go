package epi

import (
	"log/slog"

	"github.com/episim/episim/internal/events"
)

// Epidemic drives one condition: scheduled state transitions, exposure
// accounting, state counters, and the per-hour transmission pass over the
// groups that currently hold transmissible members.
type Epidemic struct {
	condition *Condition
	model     *Model

	currentCount   []int
	totalCount     []int
	dailyIncidence []int

	transitions *events.Queue[*Person]

	// Groups with at least one transmissible member, visited in the order
	// they first became active so runs are reproducible.
	activeGroups []*Group
	activeSet    map[*Group]bool

	network *Network
}

func newEpidemic(m *Model, cond *Condition) *Epidemic {
	states := cond.History.StateCount()
	return &Epidemic{
		condition:      cond,
		model:          m,
		currentCount:   make([]int, states),
		totalCount:     make([]int, states),
		dailyIncidence: make([]int, states),
		transitions:    events.NewQueue[*Person](24 * m.Days),
		activeSet:      make(map[*Group]bool),
	}
}

// CurrentCount returns the number of people currently in a state.
func (e *Epidemic) CurrentCount(state int) int {
	return e.currentCount[state]
}

// TotalCount returns the cumulative number of entries into a state.
func (e *Epidemic) TotalCount(state int) int {
	return e.totalCount[state]
}

// DailyIncidence returns today's entries into a state so far.
func (e *Epidemic) DailyIncidence(state int) int {
	return e.dailyIncidence[state]
}

// BeginDay resets the daily incidence counters.
func (e *Epidemic) BeginDay(day int) {
	for i := range e.dailyIncidence {
		e.dailyIncidence[i] = 0
	}
}

// Update advances the condition one tick: imports due at this hour,
// scheduled state entries, then the transmission pass.
func (e *Epidemic) Update(day, hour int) {
	step := 24*day + hour

	if hour == 0 && day == e.condition.ImportDay {
		e.importCases(day, hour)
	}

	if scheduled := e.transitions.Events(step); len(scheduled) > 0 {
		due := make([]*Person, len(scheduled))
		copy(due, scheduled)
		e.transitions.Clear(step)
		for _, p := range due {
			h := &p.health[e.condition.ID]
			h.scheduledStep = -1
			next := h.nextState
			h.nextState = -1
			if next >= 0 {
				e.enterState(p, next, day, hour, false)
			}
		}
	}

	if e.condition.Transmissibility <= 0 {
		return
	}
	switch e.condition.Mode {
	case ModeProximity:
		e.spreadOverActiveGroups(day, hour)
	case ModeNetwork:
		if e.network != nil {
			e.spreadNetworkGroup(e.network, day, hour)
		}
	case ModeEnvironmental, ModeNone:
		// Environmental transmission is not modelled; none never spreads.
	}
}

func (e *Epidemic) spreadOverActiveGroups(day, hour int) {
	dow := e.model.dayOfWeek(day)
	// Exposures during the pass can activate new groups; they are appended
	// to activeGroups and get their first visit next tick.
	snapshot := e.activeGroups
	for _, g := range snapshot {
		if g.Type.IsNetwork {
			continue
		}
		if len(g.TransmissiblePeople(e.condition.ID)) == 0 {
			continue
		}
		if !g.IsOpen(day) {
			continue
		}
		timeBlock := g.Type.TimeBlock(dow, hour)
		if timeBlock <= 0 {
			continue
		}
		e.spreadProximity(g, day, hour, timeBlock)
	}
	e.compactActiveGroups()
}

// compactActiveGroups drops groups whose transmissible roster has drained,
// keeping visit order stable for the rest.
func (e *Epidemic) compactActiveGroups() {
	kept := e.activeGroups[:0]
	for _, g := range e.activeGroups {
		if len(g.TransmissiblePeople(e.condition.ID)) == 0 {
			delete(e.activeSet, g)
			continue
		}
		kept = append(kept, g)
	}
	for i := len(kept); i < len(e.activeGroups); i++ {
		e.activeGroups[i] = nil
	}
	e.activeGroups = kept
}

func (e *Epidemic) spreadNetworkGroup(net *Network, day, hour int) {
	if len(net.TransmissiblePeople(e.condition.ID)) == 0 {
		return
	}
	timeBlock := net.Type.TimeBlock(e.model.dayOfWeek(day), hour)
	if timeBlock <= 0 {
		return
	}
	e.spreadNetwork(net, day, hour, timeBlock)
}

// BecomeExposed moves a freshly exposed person into the condition's exposed
// state. Any pending scheduled transition for this condition is cancelled
// first.
func (e *Epidemic) BecomeExposed(p *Person, day, hour int) {
	e.cancelScheduled(p)
	e.enterState(p, e.condition.History.ExposedState(), day, hour, false)
}

func (e *Epidemic) cancelScheduled(p *Person) {
	h := &p.health[e.condition.ID]
	if h.scheduledStep >= 0 {
		e.transitions.Delete(h.scheduledStep, p)
		h.scheduledStep = -1
		h.nextState = -1
	}
}

// AssignInitialState puts a person into state 0 at setup (day 0) or at
// birth. Initial assignment counts toward current occupancy but not
// incidence.
func (e *Epidemic) AssignInitialState(p *Person, day int) {
	e.enterState(p, 0, day, 0, true)
}

// enterState realizes a state entry, chaining through zero-duration states
// and scheduling the next timed transition.
func (e *Epidemic) enterState(p *Person, state, day, hour int, initial bool) {
	c := e.condition.ID
	nh := e.condition.History
	h := &p.health[c]

	for loops := 0; ; loops++ {
		if loops >= maxStateLoops {
			e.model.Logger.Warn("state machine did not settle",
				slog.String("condition", e.condition.Name),
				slog.Int("person", p.ID),
				slog.String("state", nh.StateName(state)))
			return
		}

		wasTransmissible := h.state >= 0 && h.transmissibility > 0
		if h.state >= 0 {
			e.currentCount[h.state]--
		}
		h.state = state
		h.susceptibility = nh.Susceptibility(state)
		h.transmissibility = nh.Transmissibility(state)
		e.currentCount[state]++
		if !initial {
			e.dailyIncidence[state]++
			e.totalCount[state]++
		}

		isTransmissible := h.transmissibility > 0 && !p.deceased
		if isTransmissible && !wasTransmissible {
			e.addToRosters(p, day)
		} else if wasTransmissible && !isTransmissible {
			e.removeFromRosters(p)
		}

		if nh.IsFatal(state) {
			p.Die()
			if isTransmissible {
				e.removeFromRosters(p)
			}
			return
		}

		next, delay := nh.NextTransition(e.model.RNG, state)
		if next < 0 {
			return
		}
		if delay <= 0 {
			state = next
			continue
		}
		step := 24*day + hour + delay
		h.nextState = next
		h.scheduledStep = step
		e.transitions.Add(step, p)
		return
	}
}

func (e *Epidemic) addToRosters(p *Person, day int) {
	c := e.condition.ID
	for _, g := range p.Groups() {
		g.AddTransmissible(c, p)
		g.RecordTransmissibleDays(day, c)
		if !e.activeSet[g] {
			e.activeSet[g] = true
			e.activeGroups = append(e.activeGroups, g)
		}
	}
}

// Terminate releases a person leaving the population: any pending
// scheduled transition is cancelled and the current-state occupancy is
// returned. Roster removal happens with membership teardown.
func (e *Epidemic) Terminate(p *Person) {
	e.cancelScheduled(p)
	h := &p.health[e.condition.ID]
	if h.state >= 0 {
		e.currentCount[h.state]--
		h.state = -1
	}
	h.susceptibility = 0
	h.transmissibility = 0
}

func (e *Epidemic) removeFromRosters(p *Person) {
	c := e.condition.ID
	for _, g := range p.Groups() {
		g.RemoveTransmissible(c, p)
	}
}

// importCases seeds the import schedule. The condition-level import_count is
// a shorthand for importing into the import start state; per-state
// import_count (with an optional age window) imports into that state.
func (e *Epidemic) importCases(day, hour int) {
	nh := e.condition.History
	for state := 0; state < nh.StateCount(); state++ {
		wanted := nh.ImportCount(state)
		if state == nh.ImportStartState() {
			wanted += e.condition.ImportCount
		}
		if wanted == 0 {
			continue
		}
		minAge, maxAge := nh.ImportAgeWindow(state)
		e.importIntoState(state, wanted, minAge, maxAge, day, hour)
	}
}

// importIntoState draws up to wanted susceptible people uniformly, within
// the age window, and enters them in the given state.
func (e *Epidemic) importIntoState(state, wanted int, minAge, maxAge float64, day, hour int) {
	people := e.model.People
	order := e.model.RNG.ShuffledIndex(len(people))
	imported := 0
	for _, idx := range order {
		if imported >= wanted {
			break
		}
		p := people[idx]
		if p.IsDeceased() || !p.IsSusceptible(e.condition.ID) {
			continue
		}
		if p.RealAge < minAge || p.RealAge > maxAge {
			continue
		}
		e.cancelScheduled(p)
		h := &p.health[e.condition.ID]
		h.exposedBy = nil
		h.exposedIn = nil
		h.exposureDay = day
		e.enterState(p, state, day, hour, false)
		imported++
	}
	if imported < wanted {
		e.model.Logger.Warn("import schedule short of susceptibles",
			slog.String("condition", e.condition.Name),
			slog.String("state", e.condition.History.StateName(state)),
			slog.Int("wanted", wanted),
			slog.Int("imported", imported))
	}
}
