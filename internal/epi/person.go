package epi

// Person is one agent. Group rosters and network edges hold *Person; the
// pointer identity is the agent identity for roster bookkeeping, ID is the
// stable external identity.
type Person struct {
	ID      int
	Age     int
	RealAge float64
	Sex     byte
	Race    int

	health      []health
	memberships []membership
	adjacency   map[*Network]*adjacency

	traveling  bool
	travelHost *Person
	deceased   bool
}

// health is the per-condition slice of a person's state.
type health struct {
	state            int
	susceptibility   float64
	transmissibility float64
	nextState        int
	scheduledStep    int
	exposedBy        *Person
	exposedIn        *Group
	exposureDay      int
}

type membership struct {
	group *Group
	index int
}

type adjacency struct {
	out []NetworkEdge
	in  []NetworkEdge
}

// NetworkEdge is one directed edge stored on the source person.
type NetworkEdge struct {
	Other  *Person
	Weight float64
}

// NewPerson returns a person with no condition states attached; the model
// attaches them once the condition list is known.
func NewPerson(id, age int, sex byte, race int) *Person {
	return &Person{
		ID:      id,
		Age:     age,
		RealAge: float64(age),
		Sex:     sex,
		Race:    race,
	}
}

func (p *Person) initHealth(conditions int) {
	p.health = make([]health, conditions)
	for i := range p.health {
		p.health[i].state = -1
		p.health[i].nextState = -1
		p.health[i].scheduledStep = -1
		p.health[i].exposureDay = -1
	}
}

// State returns the person's current state id for a condition, -1 before
// setup assigns one.
func (p *Person) State(c int) int {
	return p.health[c].state
}

// Susceptibility returns the person's susceptibility to a condition.
func (p *Person) Susceptibility(c int) float64 {
	return p.health[c].susceptibility
}

// Transmissibility returns the person's transmissibility multiplier for a
// condition.
func (p *Person) Transmissibility(c int) float64 {
	return p.health[c].transmissibility
}

// IsSusceptible reports whether the person can be infected with a condition.
func (p *Person) IsSusceptible(c int) bool {
	return !p.deceased && p.health[c].susceptibility > 0
}

// IsTransmissible reports whether the person can currently infect others
// with a condition.
func (p *Person) IsTransmissible(c int) bool {
	return !p.deceased && p.health[c].transmissibility > 0
}

// Expose records exposure provenance on dest for the transmitted condition.
func (p *Person) Expose(dest *Person, cTransmit int, g *Group, day int) {
	h := &dest.health[cTransmit]
	h.exposedBy = p
	h.exposedIn = g
	h.exposureDay = day
}

// ExposedBy returns the source that infected this person with a condition,
// or nil for imported or never-exposed cases.
func (p *Person) ExposedBy(c int) *Person {
	return p.health[c].exposedBy
}

// ExposedIn returns the group the person was infected in, or nil.
func (p *Person) ExposedIn(c int) *Group {
	return p.health[c].exposedIn
}

func (p *Person) addMembership(g *Group, index int) {
	p.memberships = append(p.memberships, membership{group: g, index: index})
}

func (p *Person) setMembershipIndex(g *Group, index int) {
	for i := range p.memberships {
		if p.memberships[i].group == g {
			p.memberships[i].index = index
			return
		}
	}
}

func (p *Person) dropMembership(g *Group) {
	for i := range p.memberships {
		if p.memberships[i].group == g {
			p.memberships = append(p.memberships[:i], p.memberships[i+1:]...)
			return
		}
	}
}

// IndexIn returns the person's position in a group's member roster, or -1
// when not a member.
func (p *Person) IndexIn(g *Group) int {
	for i := range p.memberships {
		if p.memberships[i].group == g {
			return p.memberships[i].index
		}
	}
	return -1
}

// Groups returns the person's membership groups in join order.
func (p *Person) Groups() []*Group {
	out := make([]*Group, len(p.memberships))
	for i := range p.memberships {
		out[i] = p.memberships[i].group
	}
	return out
}

// PresentGroups returns the groups the person currently shows up in: their
// own membership groups, or the travel host's while travelling.
func (p *Person) PresentGroups() []*Group {
	if p.traveling && p.travelHost != nil {
		return p.travelHost.Groups()
	}
	return p.Groups()
}

// IsPresent reports whether the person attends the group today. A traveller
// attends their host's groups instead of their own.
func (p *Person) IsPresent(day int, g *Group) bool {
	if p.deceased {
		return false
	}
	for _, pg := range p.PresentGroups() {
		if pg == g {
			return true
		}
	}
	return false
}

// UpdateActivities refreshes travel-substituted presence. A trip whose host
// has died ends immediately.
func (p *Person) UpdateActivities(day int) {
	if p.traveling && p.travelHost != nil && p.travelHost.deceased {
		p.EndTravel()
	}
}

// StartTravel substitutes the host's activity footprint for the traveller's
// until EndTravel.
func (p *Person) StartTravel(host *Person) {
	p.traveling = true
	p.travelHost = host
}

// EndTravel restores the traveller's own activity footprint.
func (p *Person) EndTravel() {
	p.traveling = false
	p.travelHost = nil
}

// IsTraveling reports whether the person is away on a trip.
func (p *Person) IsTraveling() bool {
	return p.traveling
}

// TravelHost returns the remote host while travelling, or nil.
func (p *Person) TravelHost() *Person {
	return p.travelHost
}

// Die marks the person deceased. Rosters are cleaned up by the next
// demographics pass; presence checks exclude the deceased immediately.
func (p *Person) Die() {
	p.deceased = true
}

// IsDeceased reports whether the person has died.
func (p *Person) IsDeceased() bool {
	return p.deceased
}

func (p *Person) adjacencyFor(n *Network, create bool) *adjacency {
	if p.adjacency == nil {
		if !create {
			return nil
		}
		p.adjacency = make(map[*Network]*adjacency)
	}
	a := p.adjacency[n]
	if a == nil && create {
		a = &adjacency{}
		p.adjacency[n] = a
	}
	return a
}

// OutNeighbors returns the targets of this person's outward edges in a
// network with weight >= minWeight, in edge insertion order.
func (p *Person) OutNeighbors(n *Network, minWeight float64) []*Person {
	a := p.adjacencyFor(n, false)
	if a == nil {
		return nil
	}
	var out []*Person
	for _, e := range a.out {
		if e.Weight >= minWeight {
			out = append(out, e.Other)
		}
	}
	return out
}

// OutEdges returns this person's outward edges in a network.
func (p *Person) OutEdges(n *Network) []NetworkEdge {
	a := p.adjacencyFor(n, false)
	if a == nil {
		return nil
	}
	return a.out
}

// InEdges returns this person's inward edges in a network.
func (p *Person) InEdges(n *Network) []NetworkEdge {
	a := p.adjacencyFor(n, false)
	if a == nil {
		return nil
	}
	return a.in
}

// HasEdgeTo reports whether an outward edge to other exists and returns its
// weight.
func (p *Person) HasEdgeTo(n *Network, other *Person) (float64, bool) {
	a := p.adjacencyFor(n, false)
	if a == nil {
		return 0, false
	}
	for _, e := range a.out {
		if e.Other == other {
			return e.Weight, true
		}
	}
	return 0, false
}
