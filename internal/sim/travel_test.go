package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/episim/episim/internal/epi"
	"github.com/episim/episim/internal/events"
)

func groupSet(groups []*epi.Group) map[*epi.Group]bool {
	set := make(map[*epi.Group]bool, len(groups))
	for _, g := range groups {
		set[g] = true
	}
	return set
}

func sameGroups(a, b []*epi.Group) bool {
	if len(a) != len(b) {
		return false
	}
	setA := groupSet(a)
	for _, g := range b {
		if !setA[g] {
			return false
		}
	}
	return true
}

func TestTravelSubstitution(t *testing.T) {
	s := newTestSim(t, 1, map[string]string{
		"days":        "8",
		"place_types": "Household",
	})
	home := s.Model.NewPlace("home", s.Model.Types.Get("Household"))
	remote := s.Model.NewPlace("remote", s.Model.Types.Get("Household"))
	traveler := s.Model.AddPerson(0, 30, 'F', 0)
	host := s.Model.AddPerson(1, 40, 'M', 0)
	home.BeginMembership(traveler)
	remote.BeginMembership(host)
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	s.Travel = &Travel{
		model:   s.Model,
		rng:     s.RNG,
		returns: events.NewQueue[*epi.Person](24 * (s.Days + 1)),
	}

	for day := 0; day < s.Days; day++ {
		s.setupDay(day)
		if day == 2 {
			s.Travel.ScheduleTrip(traveler, host, day, 3)
		}

		wantHostFootprint := day >= 2 && day <= 4
		got := sameGroups(traveler.PresentGroups(), host.PresentGroups())
		if wantHostFootprint && !got {
			t.Errorf("day %d: traveler footprint != host footprint, want equal while travelling", day)
		}
		if !wantHostFootprint && traveler.IsTraveling() {
			t.Errorf("day %d: traveler still travelling, want home", day)
		}
		if !wantHostFootprint && !sameGroups(traveler.PresentGroups(), []*epi.Group{&home.Group}) {
			t.Errorf("day %d: traveler footprint is not the home group", day)
		}
	}
}

func writeTravelFiles(t *testing.T) (hubFile, tripsFile string) {
	t.Helper()
	dir := t.TempDir()
	hubFile = filepath.Join(dir, "hubs.txt")
	tripsFile = filepath.Join(dir, "trips.txt")
	hubs := "1 40.0 -80.0 4\n2 41.0 -81.0 4\n"
	trips := "0 50\n50 0\n"
	if err := os.WriteFile(hubFile, []byte(hubs), 0o644); err != nil {
		t.Fatalf("writing hub file: %v", err)
	}
	if err := os.WriteFile(tripsFile, []byte(trips), 0o644); err != nil {
		t.Fatalf("writing trips file: %v", err)
	}
	return hubFile, tripsFile
}

func TestTravelSetupAttachesUsersToNearestHub(t *testing.T) {
	hubFile, tripsFile := writeTravelFiles(t)
	s := newTestSim(t, 1, map[string]string{
		"days":               "5",
		"place_types":        "Household",
		"enable_travel":      "1",
		"travel_hub_file":    hubFile,
		"trips_per_day_file": tripsFile,
	})
	north := s.Model.NewPlace("north", s.Model.Types.Get("Household"))
	north.Latitude, north.Longitude = 40.01, -80.01
	south := s.Model.NewPlace("south", s.Model.Types.Get("Household"))
	south.Latitude, south.Longitude = 41.01, -81.01
	for i := 0; i < 4; i++ {
		north.BeginMembership(s.Model.AddPerson(i, 30, 'F', 0))
		south.BeginMembership(s.Model.AddPerson(4+i, 30, 'M', 0))
	}
	if err := s.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if got := len(s.Travel.hubs); got != 2 {
		t.Fatalf("hub count = %v, want 2", got)
	}
	for i, hub := range s.Travel.hubs {
		if got := len(hub.Users()); got != 4 {
			t.Errorf("hub %d users = %v, want 4", i, got)
		}
	}

	s.Travel.Update(0)
	traveling := 0
	for _, p := range s.Model.People {
		if p.IsTraveling() {
			traveling++
		}
	}
	if traveling == 0 {
		t.Error("no travellers after a day with 50 scheduled trips each way")
	}
}

func TestTravelSetupRequiresFiles(t *testing.T) {
	s := newTestSim(t, 1, map[string]string{
		"days":          "5",
		"enable_travel": "1",
	})
	if err := s.Setup(); err == nil {
		t.Error("Setup() with travel enabled but no hub files should fail")
	}
}

func TestLoadTripsRejectsShortMatrix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trips.txt")
	if err := os.WriteFile(path, []byte("1 2 3\n"), 0o644); err != nil {
		t.Fatalf("writing trips file: %v", err)
	}
	if _, err := loadTrips(path, 2); err == nil {
		t.Error("loadTrips() with 3 entries for 2 hubs should fail")
	}
}
