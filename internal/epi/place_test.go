package epi

import "testing"

func TestSetupPartitionsByAge(t *testing.T) {
	m := newTestModel(t, 1, 1, map[string]string{
		"place_types":               "School Classroom",
		"School.partition":          "Classroom",
		"School.partition_basis":    "age",
		"School.partition_capacity": "2",
	})
	school := m.NewPlace("school-1", m.Types.Get("School"))
	ages := []int{10, 10, 10, 11, 11}
	for i, age := range ages {
		school.BeginMembership(m.AddPerson(i, age, 'F', 0))
	}
	finish(t, m)

	rooms := school.Partitions()
	if got := len(rooms); got != 3 {
		t.Fatalf("len(Partitions()) = %v, want 3", got)
	}
	total := 0
	for _, room := range rooms {
		if room.Parent() != school {
			t.Errorf("room %s parent = %v, want the school", room.Label, room.Parent())
		}
		if room.Size() > 2 {
			t.Errorf("room %s size = %v, exceeds capacity 2", room.Label, room.Size())
		}
		age := room.Member(0).Age
		for i := 0; i < room.Size(); i++ {
			member := room.Member(i)
			if member.Age != age {
				t.Errorf("room %s mixes ages %d and %d", room.Label, age, member.Age)
			}
			if member.IndexIn(&school.Group) < 0 {
				t.Errorf("room member %d is not a member of the parent school", member.ID)
			}
			total++
		}
	}
	if total != len(ages) {
		t.Errorf("partition members total %v, want %v", total, len(ages))
	}
}

func TestSetupPartitionsUndeclaredTypeIsAnError(t *testing.T) {
	m := newTestModel(t, 1, 1, map[string]string{
		"place_types":               "School",
		"School.partition":          "Classroom",
		"School.partition_capacity": "25",
	})
	m.NewPlace("school-1", m.Types.Get("School"))
	if err := m.FinishSetup(); err == nil {
		t.Errorf("FinishSetup() error = nil, want undeclared partition type error")
	}
}
