package epi

import (
	"testing"

	"github.com/episim/episim/internal/random"
)

func checkBijection(t *testing.T, g *Group) {
	t.Helper()
	for i, p := range g.Members() {
		if got := p.IndexIn(g); got != i {
			t.Fatalf("member %d at roster position %d has stored index %d", p.ID, i, got)
		}
	}
}

func TestMembershipSwapAndPop(t *testing.T) {
	m := newTestModel(t, 1, 1, map[string]string{"place_types": "Household"})
	home := m.NewPlace("home-1", m.Types.Get("Household"))

	people := make([]*Person, 5)
	for i := range people {
		people[i] = m.AddPerson(i, 30, 'F', 0)
		home.BeginMembership(people[i])
	}
	checkBijection(t, &home.Group)

	home.EndMembership(people[1])
	if got := home.Size(); got != 4 {
		t.Fatalf("Size() = %v, want 4", got)
	}
	if got := people[1].IndexIn(&home.Group); got != -1 {
		t.Errorf("removed person IndexIn() = %v, want -1", got)
	}
	checkBijection(t, &home.Group)

	// Removing the last member must not disturb the others.
	home.EndMembership(home.Member(home.Size() - 1))
	checkBijection(t, &home.Group)
}

func TestMembershipFuzz(t *testing.T) {
	m := newTestModel(t, 99, 1, map[string]string{"place_types": "Household"})
	home := m.NewPlace("home-1", m.Types.Get("Household"))
	rng := random.New(99)

	people := make([]*Person, 50)
	for i := range people {
		people[i] = m.AddPerson(i, 30, 'M', 0)
	}
	for step := 0; step < 2000; step++ {
		p := people[rng.Int(0, len(people)-1)]
		if p.IndexIn(&home.Group) < 0 {
			home.BeginMembership(p)
		} else {
			home.EndMembership(p)
		}
		checkBijection(t, &home.Group)
	}
}

func TestTransmissibleRosterIsSubsetOfMembers(t *testing.T) {
	m := newTestModel(t, 7, 5, map[string]string{
		"place_types":            "Household",
		"Household.contact_rate": "1",
		"Household.hourly":       "1",
		"conditions":             "INF",
		"INF.transmissibility":   "1",
		"INF.transmission_mode":  "proximity",
		"INF.states":             "S E I R",
		"INF.E.duration":         "2",
		"INF.E.next_state":       "I",
		"INF.I.duration":         "12",
		"INF.I.next_state":       "R",
		"INF.I.transmissibility": "1",
		"INF.import_day":         "0",
		"INF.import_count":       "3",
	})
	home := m.NewPlace("home-1", m.Types.Get("Household"))
	for i := 0; i < 40; i++ {
		home.BeginMembership(m.AddPerson(i, 30, 'F', 0))
	}
	finish(t, m)
	runDays(m, 3)

	inRoster := make(map[*Person]bool)
	for _, p := range home.Members() {
		inRoster[p] = true
	}
	for _, p := range home.TransmissiblePeople(0) {
		if !inRoster[p] {
			t.Errorf("transmissible person %d is not a member", p.ID)
		}
		if !p.IsTransmissible(0) {
			t.Errorf("person %d on transmissible roster with transmissibility %v",
				p.ID, p.Transmissibility(0))
		}
	}
}

func TestRecordTransmissibleDays(t *testing.T) {
	m := newTestModel(t, 1, 10, map[string]string{
		"place_types": "Household",
		"conditions":  "INF",
		"INF.states":  "S I",
	})
	home := m.NewPlace("home-1", m.Types.Get("Household"))
	p := m.AddPerson(0, 20, 'M', 0)
	home.BeginMembership(p)
	finish(t, m)

	if got := home.FirstTransmissibleDay(0); got != -1 {
		t.Fatalf("FirstTransmissibleDay() = %v, want -1", got)
	}
	home.AddTransmissible(0, p)
	home.RecordTransmissibleDays(3, 0)
	home.RecordTransmissibleDays(7, 0)
	if got := home.FirstTransmissibleDay(0); got != 3 {
		t.Errorf("FirstTransmissibleDay() = %v, want 3", got)
	}
	if got := home.LastTransmissibleDay(0); got != 7 {
		t.Errorf("LastTransmissibleDay() = %v, want 7", got)
	}
	trans, _ := home.FirstDayCounts(0)
	if trans != 1 {
		t.Errorf("FirstDayCounts() transmissible = %v, want 1", trans)
	}
}

func TestSizeHistory(t *testing.T) {
	m := newTestModel(t, 1, 1, map[string]string{"place_types": "Household"})
	home := m.NewPlace("home-1", m.Types.Get("Household"))
	home.BeginMembership(m.AddPerson(0, 20, 'M', 0))
	home.RecordSize()
	home.BeginMembership(m.AddPerson(1, 30, 'F', 0))
	home.RecordSize()
	want := []int{1, 2}
	got := home.SizeHistory()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("SizeHistory() = %v, want %v", got, want)
	}
}

func TestClosureWindow(t *testing.T) {
	m := newTestModel(t, 1, 1, map[string]string{
		"place_types":              "School",
		"School.has_administrator": "1",
	})
	school := m.NewPlace("school-1", m.Types.Get("School"))

	for day := 0; day < 5; day++ {
		if !school.IsOpen(day) {
			t.Errorf("IsOpen(%d) = false before any closure", day)
		}
	}

	school.Close(2, 4)
	tests := []struct {
		day  int
		open bool
	}{
		{1, true},
		{2, false},
		{3, false},
		{4, true},
	}
	for _, tt := range tests {
		if got := school.IsOpen(tt.day); got != tt.open {
			t.Errorf("IsOpen(%d) = %v, want %v", tt.day, got, tt.open)
		}
	}
}

func TestCloseNeedsAdministrator(t *testing.T) {
	m := newTestModel(t, 1, 1, map[string]string{"place_types": "Household"})
	home := m.NewPlace("home-1", m.Types.Get("Household"))
	home.Close(0, 10)
	if !home.IsOpen(5) {
		t.Error("IsOpen(5) = false for a place without an administrator")
	}
}
