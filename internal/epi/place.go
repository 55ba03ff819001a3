package epi

import "fmt"

// Place is a physical mixing group with a location. A place may be split
// into partitions (e.g. a school into classrooms) whose members are a
// subset of the parent's.
type Place struct {
	Group

	Latitude        float64
	Longitude       float64
	Elevation       float64
	Income          float64
	CensusTract     string
	VaccinationRate float64

	partitions []*Place
	parent     *Place
}

// Partitions returns this place's child places, in creation order.
func (p *Place) Partitions() []*Place {
	return p.partitions
}

// Parent returns the place this one partitions, or nil.
func (p *Place) Parent() *Place {
	return p.parent
}

// SetupPartitions splits the place's members into child places according to
// the type's partition rules. newPlace allocates a registered place of the
// partition type. Members are assigned in roster order; with an age basis,
// each single year of age fills rooms of partition_capacity before a new
// room opens.
func (p *Place) SetupPartitions(newPlace func(label string, t *GroupType) *Place, partitionType *GroupType) {
	t := p.Type
	if t.PartitionName == "" || partitionType == nil {
		return
	}
	capacity := t.PartitionCapacity

	switch t.PartitionBasis {
	case PartitionAge:
		rooms := make(map[int]*Place)
		roomFill := make(map[int]int)
		for _, member := range p.members {
			age := member.Age
			room := rooms[age]
			if room == nil || roomFill[age] >= capacity {
				label := fmt.Sprintf("%s-%s-%d-%d", p.Label, t.PartitionName, age, len(p.partitions))
				room = newPlace(label, partitionType)
				room.parent = p
				p.partitions = append(p.partitions, room)
				rooms[age] = room
				roomFill[age] = 0
			}
			room.BeginMembership(member)
			roomFill[age]++
		}
	default:
		var room *Place
		for _, member := range p.members {
			if room == nil || room.Size() >= capacity {
				label := fmt.Sprintf("%s-%s-%d", p.Label, t.PartitionName, len(p.partitions))
				room = newPlace(label, partitionType)
				room.parent = p
				p.partitions = append(p.partitions, room)
			}
			room.BeginMembership(member)
		}
	}
}
