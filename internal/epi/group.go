package epi

// Group is a mixing unit: a roster of members plus, per condition, the
// subset currently able to infect. Place and Network embed it.
//
// Invariants: members[p.IndexIn(g)] == p for every member p, and every
// transmissible roster is a subset of members.
type Group struct {
	ID    int
	Label string
	SPID  string
	Type  *GroupType

	Admin         *Person
	Host          *Person
	ContactFactor float64

	members       []*Person
	transmissible [][]*Person

	firstTransmissibleDay []int
	lastTransmissibleDay  []int
	firstDayTransmissible []int
	firstDaySusceptible   []int

	sizeHistory []int

	// Closure window [closedFrom, closedUntil); only groups whose type has
	// an administrator can close.
	closedFrom  int
	closedUntil int
}

func (g *Group) init(id int, label string, t *GroupType, conditions int) {
	g.ID = id
	g.Label = label
	g.Type = t
	g.ContactFactor = 1
	g.transmissible = make([][]*Person, conditions)
	g.firstTransmissibleDay = make([]int, conditions)
	g.lastTransmissibleDay = make([]int, conditions)
	g.firstDayTransmissible = make([]int, conditions)
	g.firstDaySusceptible = make([]int, conditions)
	for c := 0; c < conditions; c++ {
		g.firstTransmissibleDay[c] = -1
		g.lastTransmissibleDay[c] = -1
	}
}

// Size returns the current member count.
func (g *Group) Size() int {
	return len(g.members)
}

// Member returns the member at a roster position.
func (g *Group) Member(i int) *Person {
	return g.members[i]
}

// Members returns the live member roster. Callers must not reorder it.
func (g *Group) Members() []*Person {
	return g.members
}

// BeginMembership appends the person to the roster and records the roster
// index on the person.
func (g *Group) BeginMembership(p *Person) int {
	index := len(g.members)
	g.members = append(g.members, p)
	p.addMembership(g, index)
	return index
}

// EndMembership removes the person by swapping in the last member, so
// removal is O(1) regardless of roster position. The person also leaves
// every transmissible roster.
func (g *Group) EndMembership(p *Person) {
	pos := p.IndexIn(g)
	if pos < 0 {
		return
	}
	last := len(g.members) - 1
	if pos != last {
		moved := g.members[last]
		g.members[pos] = moved
		moved.setMembershipIndex(g, pos)
	}
	g.members[last] = nil
	g.members = g.members[:last]
	p.dropMembership(g)
	for c := range g.transmissible {
		g.RemoveTransmissible(c, p)
	}
}

// AddTransmissible pushes the person onto a condition's transmissible
// roster. It reports whether the roster was empty before, so the epidemic
// can register the group as active.
func (g *Group) AddTransmissible(c int, p *Person) bool {
	wasEmpty := len(g.transmissible[c]) == 0
	g.transmissible[c] = append(g.transmissible[c], p)
	return wasEmpty
}

// RemoveTransmissible drops the person from a condition's transmissible
// roster by identity.
func (g *Group) RemoveTransmissible(c int, p *Person) {
	roster := g.transmissible[c]
	for i, member := range roster {
		if member == p {
			last := len(roster) - 1
			roster[i] = roster[last]
			roster[last] = nil
			g.transmissible[c] = roster[:last]
			return
		}
	}
}

// TransmissiblePeople returns the live transmissible roster for a condition.
func (g *Group) TransmissiblePeople(c int) []*Person {
	return g.transmissible[c]
}

// RecordTransmissibleDays notes first/last transmissible day for a
// condition; on the first day it also snapshots transmissible and
// susceptible head counts.
func (g *Group) RecordTransmissibleDays(day, c int) {
	if g.firstTransmissibleDay[c] < 0 {
		g.firstTransmissibleDay[c] = day
		g.firstDayTransmissible[c] = len(g.transmissible[c])
		susceptible := 0
		for _, p := range g.members {
			if p.IsSusceptible(c) {
				susceptible++
			}
		}
		g.firstDaySusceptible[c] = susceptible
	}
	g.lastTransmissibleDay[c] = day
}

// FirstTransmissibleDay returns the first day the group hosted a
// transmissible member for a condition, or -1.
func (g *Group) FirstTransmissibleDay(c int) int {
	return g.firstTransmissibleDay[c]
}

// LastTransmissibleDay returns the most recent such day, or -1.
func (g *Group) LastTransmissibleDay(c int) int {
	return g.lastTransmissibleDay[c]
}

// FirstDayCounts returns the transmissible and susceptible head counts taken
// on the first transmissible day.
func (g *Group) FirstDayCounts(c int) (transmissible, susceptible int) {
	return g.firstDayTransmissible[c], g.firstDaySusceptible[c]
}

// Close closes the group for days in [from, until). It has no effect on
// groups whose type lacks an administrator.
func (g *Group) Close(from, until int) {
	if !g.Type.HasAdministrator {
		return
	}
	g.closedFrom = from
	g.closedUntil = until
}

// IsOpen reports whether the group admits transmission on a day. Groups
// without an administrator are always open.
func (g *Group) IsOpen(day int) bool {
	if g.closedUntil <= g.closedFrom {
		return true
	}
	return day < g.closedFrom || day >= g.closedUntil
}

// RecordSize appends today's member count to the size history.
func (g *Group) RecordSize() {
	g.sizeHistory = append(g.sizeHistory, len(g.members))
}

// SizeHistory returns the per-day member counts recorded so far.
func (g *Group) SizeHistory() []int {
	return g.sizeHistory
}

// ProximityContactRate returns the type contact rate scaled by this group's
// contact factor.
func (g *Group) ProximityContactRate() float64 {
	return g.Type.ContactRate * g.ContactFactor
}
