package epi

import (
	"fmt"
	"log/slog"

	"github.com/episim/episim/internal/calendar"
	"github.com/episim/episim/internal/props"
	"github.com/episim/episim/internal/random"
)

// Model bundles everything a simulation run shares: the people, the mixing
// groups, the condition registry, and the RNG. Tests build independent
// models per scenario; nothing here is process-global.
type Model struct {
	Props      *props.Map
	RNG        *random.Engine
	Types      *TypeRegistry
	Conditions []*Condition
	People     []*Person
	Places     []*Place
	Networks   []*Network
	Days       int
	Calendar   *calendar.Calendar
	Logger     *slog.Logger

	peopleByID      map[int]*Person
	networksByLabel map[string]*Network
	nextGroupID     int
}

// How many zero-duration state hops one entry may chain through before the
// model is assumed to be cyclic.
const maxStateLoops = 100

// NewModel loads group types and conditions from the property map and
// prepares per-condition epidemics sized to the simulation horizon.
func NewModel(p *props.Map, rng *random.Engine, logger *slog.Logger, days int) (*Model, error) {
	if days <= 0 {
		return nil, fmt.Errorf("model: need a positive day count, got %d", days)
	}
	types, err := LoadTypes(p)
	if err != nil {
		return nil, err
	}
	m := &Model{
		Props:           p,
		RNG:             rng,
		Types:           types,
		Days:            days,
		Logger:          logger,
		peopleByID:      make(map[int]*Person),
		networksByLabel: make(map[string]*Network),
	}
	for i, name := range p.Strings("conditions") {
		cond, err := LoadCondition(p, name, i)
		if err != nil {
			return nil, err
		}
		m.Conditions = append(m.Conditions, cond)
	}
	for _, cond := range m.Conditions {
		if err := cond.History.resolveTransmit(m.ConditionID); err != nil {
			return nil, err
		}
		cond.epidemic = newEpidemic(m, cond)
	}
	return m, nil
}

// dayOfWeek maps a simulation day to a weekday via the calendar; without
// one (bare test models), days cycle from Sunday.
func (m *Model) dayOfWeek(day int) int {
	if m.Calendar != nil {
		return m.Calendar.DateOf(day).DayOfWeek
	}
	return day % 7
}

// ConditionID returns the id of a condition name, or -1.
func (m *Model) ConditionID(name string) int {
	for _, cond := range m.Conditions {
		if cond.Name == name {
			return cond.ID
		}
	}
	return -1
}

// AddPerson creates and registers a person with health slots for every
// condition.
func (m *Model) AddPerson(id, age int, sex byte, race int) *Person {
	p := NewPerson(id, age, sex, race)
	p.initHealth(len(m.Conditions))
	m.People = append(m.People, p)
	m.peopleByID[id] = p
	return p
}

// PersonByID returns the person with the given id, or nil.
func (m *Model) PersonByID(id int) *Person {
	return m.peopleByID[id]
}

// NewPlace creates and registers a place of the given type.
func (m *Model) NewPlace(label string, t *GroupType) *Place {
	pl := &Place{}
	pl.Group.init(m.nextGroupID, label, t, len(m.Conditions))
	m.nextGroupID++
	m.Places = append(m.Places, pl)
	return pl
}

// NewNetwork creates and registers a network of the given type.
func (m *Model) NewNetwork(label string, t *GroupType) *Network {
	n := &Network{}
	n.Group.init(m.nextGroupID, label, t, len(m.Conditions))
	m.nextGroupID++
	m.Networks = append(m.Networks, n)
	m.networksByLabel[label] = n
	return n
}

// NetworkByLabel returns the network with the given label, or nil.
func (m *Model) NetworkByLabel(label string) *Network {
	return m.networksByLabel[label]
}

// FinishSetup resolves per-condition transmission networks, loads declared
// network edges, builds place partitions, and puts every person in the
// initial state of every condition. Call once after the population and
// groups are in place, before day 0.
func (m *Model) FinishSetup() error {
	for _, cond := range m.Conditions {
		if cond.Mode != ModeNetwork {
			continue
		}
		net := m.NetworkByLabel(cond.NetworkName)
		if net == nil {
			return fmt.Errorf("condition %s: transmission_network %s does not exist",
				cond.Name, cond.NetworkName)
		}
		cond.epidemic.network = net
	}
	for _, net := range m.Networks {
		if err := net.ReadEdges(m.Props, m.PersonByID); err != nil {
			return err
		}
	}
	for _, pl := range m.Places {
		if pl.Type.PartitionName == "" {
			continue
		}
		partitionType := m.Types.Get(pl.Type.PartitionName)
		if partitionType == nil {
			return fmt.Errorf("place type %s: partition type %s not declared",
				pl.Type.Name, pl.Type.PartitionName)
		}
		pl.SetupPartitions(m.NewPlace, partitionType)
	}
	for _, pl := range m.Places {
		if t := pl.Type; t.ClosureDay >= 0 {
			pl.Close(t.ClosureDay, t.ClosureDay+t.ClosureDuration)
		}
	}
	for _, cond := range m.Conditions {
		for _, person := range m.People {
			cond.epidemic.AssignInitialState(person, 0)
		}
	}
	return nil
}

// PopulationSize returns the number of living people.
func (m *Model) PopulationSize() int {
	alive := 0
	for _, p := range m.People {
		if !p.IsDeceased() {
			alive++
		}
	}
	return alive
}

// RemovePerson takes a deceased or migrated person out of every roster.
// The person object stays valid so exposure provenance keeps resolving.
func (m *Model) RemovePerson(p *Person) {
	for _, g := range p.Groups() {
		g.EndMembership(p)
	}
}
