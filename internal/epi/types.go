package epi

import (
	"fmt"

	"github.com/episim/episim/internal/props"
)

// GroupType is the shared configuration for every group of one kind. Places
// and networks are both described by a GroupType; IsNetwork distinguishes
// them.
type GroupType struct {
	ID        int
	Name      string
	IsNetwork bool

	// Mixing parameters.
	ContactRate           float64
	ContactCount          float64 // absolute count per source; 0 means use ContactRate
	SameAgeBias           float64
	DensityTransmission   bool
	DensityContactProb    float64
	DeterministicContacts bool

	// Place-only configuration.
	HasAdministrator  bool
	ClosureDay        int // first closed day; -1 means never
	ClosureDuration   int
	PartitionName     string
	PartitionBasis    PartitionBasis
	PartitionCapacity int
	MaxSize           int

	// Network-only configuration.
	Undirected    bool
	PrintInterval int

	// startsAtHour[dow][hour] is the length in hours of the time block that
	// begins at that hour, or 0 when no block starts there.
	startsAtHour [7][24]int
}

// PartitionBasis selects how a place assigns members to its partitions.
type PartitionBasis string

const (
	PartitionNone PartitionBasis = "none"
	PartitionAge  PartitionBasis = "age"
)

// Valid reports whether the basis is one of the recognized values.
func (b PartitionBasis) Valid() bool {
	switch b {
	case PartitionNone, PartitionAge:
		return true
	}
	return false
}

func (b PartitionBasis) String() string {
	return string(b)
}

// TimeBlock returns the block length in hours when a transmission block for
// this type starts at (dayOfWeek, hour), or 0.
func (t *GroupType) TimeBlock(dayOfWeek, hour int) int {
	return t.startsAtHour[dayOfWeek][hour]
}

// loadSchedule fills the time-block table from the type's open_days,
// open_hour, close_hour, and hourly properties. The default is one block per
// day covering the whole open window; hourly = 1 splits the window into
// one-hour blocks.
func (t *GroupType) loadSchedule(p *props.Map) {
	openHour := p.Int(t.Name+".open_hour", 0)
	closeHour := p.Int(t.Name+".close_hour", 24)
	if openHour < 0 || closeHour > 24 || openHour >= closeHour {
		p.Errorf("%s: bad open window [%d, %d)", t.Name, openHour, closeHour)
		return
	}
	hourly := p.Bool(t.Name+".hourly", false)

	var openDays [7]bool
	switch days := p.String(t.Name+".open_days", "all"); days {
	case "all":
		for d := range openDays {
			openDays[d] = true
		}
	case "weekdays":
		for d := 1; d <= 5; d++ {
			openDays[d] = true
		}
	case "weekends":
		openDays[0] = true
		openDays[6] = true
	default:
		p.Errorf("%s: bad open_days %q (want all, weekdays, or weekends)", t.Name, days)
		return
	}

	for dow := 0; dow < 7; dow++ {
		if !openDays[dow] {
			continue
		}
		if hourly {
			for h := openHour; h < closeHour; h++ {
				t.startsAtHour[dow][h] = 1
			}
		} else {
			t.startsAtHour[dow][openHour] = closeHour - openHour
		}
	}
}

// TypeRegistry holds every configured group type, place types first then
// network types, in declaration order.
type TypeRegistry struct {
	types  []*GroupType
	byName map[string]*GroupType
}

// LoadTypes reads the place_types and network_types lists and each type's
// configuration from the property map.
func LoadTypes(p *props.Map) (*TypeRegistry, error) {
	r := &TypeRegistry{byName: make(map[string]*GroupType)}
	for _, name := range p.Strings("place_types") {
		if err := r.add(p, name, false); err != nil {
			return nil, err
		}
	}
	for _, name := range p.Strings("network_types") {
		if err := r.add(p, name, true); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *TypeRegistry) add(p *props.Map, name string, isNetwork bool) error {
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("group type %s declared twice", name)
	}
	t := &GroupType{
		ID:                    len(r.types),
		Name:                  name,
		IsNetwork:             isNetwork,
		ContactRate:           p.Float(name+".contact_rate", 0),
		ContactCount:          p.Float(name+".contact_count", 0),
		SameAgeBias:           p.Float(name+".same_age_bias", 0),
		DensityTransmission:   p.Bool(name+".use_density_transmission", false),
		DensityContactProb:    p.Float(name+".density_contact_prob", 0),
		DeterministicContacts: p.Bool(name+".use_deterministic_contacts", false),
		HasAdministrator:      p.Bool(name+".has_administrator", false),
		ClosureDay:            p.Int(name+".closure_day", -1),
		ClosureDuration:       p.Int(name+".closure_duration", 0),
		PartitionName:         p.String(name+".partition", ""),
		PartitionBasis:        PartitionBasis(p.String(name+".partition_basis", "none")),
		PartitionCapacity:     p.Int(name+".partition_capacity", 0),
		MaxSize:               p.Int(name+".max_size", 0),
		Undirected:            p.Bool(name+".is_undirected", false),
		PrintInterval:         p.Int(name+".print_interval", 0),
	}
	if !t.PartitionBasis.Valid() {
		return fmt.Errorf("group type %s: bad partition_basis %q", name, t.PartitionBasis)
	}
	if t.ClosureDay >= 0 && !t.HasAdministrator {
		return fmt.Errorf("group type %s: closure_day needs has_administrator = 1", name)
	}
	if t.PartitionName != "" && t.PartitionCapacity <= 0 {
		return fmt.Errorf("group type %s: partition %s needs a positive partition_capacity",
			name, t.PartitionName)
	}
	t.loadSchedule(p)
	r.types = append(r.types, t)
	r.byName[name] = t
	return nil
}

// Get returns the type with the given name, or nil.
func (r *TypeRegistry) Get(name string) *GroupType {
	return r.byName[name]
}

// All returns the types in declaration order.
func (r *TypeRegistry) All() []*GroupType {
	return r.types
}
