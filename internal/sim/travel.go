package sim

import (
	"bufio"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/episim/episim/internal/epi"
	"github.com/episim/episim/internal/events"
	"github.com/episim/episim/internal/props"
	"github.com/episim/episim/internal/random"
)

// Hub is a travel anchor. People are attached to their nearest hub at
// setup; daily trip volumes run between ordered hub pairs.
type Hub struct {
	ID         int
	Latitude   float64
	Longitude  float64
	Population int

	users []*epi.Person
}

// Users returns the people attached to the hub.
func (h *Hub) Users() []*epi.Person { return h.users }

// Travel realizes the daily trip schedule: travelers drawn from the origin
// hub adopt a host's activity footprint at the destination hub until a
// return event fires.
type Travel struct {
	model *epi.Model
	rng   *random.Engine

	hubs    []*Hub
	trips   [][]int
	ageProb *epi.AgeMap
	// durationCDF[k] is P(duration <= k days).
	durationCDF []float64
	returns     *events.Queue[*epi.Person]
}

const travelDrawAttempts = 100

var defaultDurationCDF = []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0}

// SetupTravel loads the hub and trip tables and attaches every person to
// their nearest hub. Both files are required once travel is enabled.
func SetupTravel(m *epi.Model, p *props.Map, rng *random.Engine) (*Travel, error) {
	hubFile := p.String("travel_hub_file", "")
	tripsFile := p.String("trips_per_day_file", "")
	if hubFile == "" || tripsFile == "" {
		return nil, fmt.Errorf("travel: travel_hub_file and trips_per_day_file are required when travel is enabled")
	}
	hubs, err := loadHubs(hubFile)
	if err != nil {
		return nil, err
	}
	trips, err := loadTrips(tripsFile, len(hubs))
	if err != nil {
		return nil, err
	}
	ageProb, err := epi.LoadAgeMap(p, "travel_age_prob")
	if err != nil {
		return nil, err
	}
	cdf := p.Floats("travel_duration_cdf")
	if len(cdf) == 0 {
		cdf = defaultDurationCDF
	}

	t := &Travel{
		model:       m,
		rng:         rng,
		hubs:        hubs,
		trips:       trips,
		ageProb:     ageProb,
		durationCDF: cdf,
		returns:     events.NewQueue[*epi.Person](24 * (m.Days + len(cdf) + 1)),
	}
	t.attachUsers()
	return t, nil
}

func loadHubs(path string) ([]*Hub, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("travel: %w", err)
	}
	defer f.Close()

	var hubs []*Hub
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 4 {
			return nil, fmt.Errorf("travel: %s: want 4 fields per hub, got %d", path, len(fields))
		}
		h := &Hub{}
		var errs [4]error
		h.ID, errs[0] = strconv.Atoi(fields[0])
		h.Latitude, errs[1] = strconv.ParseFloat(fields[1], 64)
		h.Longitude, errs[2] = strconv.ParseFloat(fields[2], 64)
		h.Population, errs[3] = strconv.Atoi(fields[3])
		for _, e := range errs {
			if e != nil {
				return nil, fmt.Errorf("travel: %s: %w", path, e)
			}
		}
		hubs = append(hubs, h)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("travel: %s: %w", path, err)
	}
	if len(hubs) == 0 {
		return nil, fmt.Errorf("travel: %s: no hubs", path)
	}
	return hubs, nil
}

// loadTrips reads the row-major N x N daily trip matrix.
func loadTrips(path string, n int) ([][]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("travel: %w", err)
	}
	defer f.Close()

	var flat []int
	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		v, err := strconv.Atoi(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("travel: %s: %w", path, err)
		}
		flat = append(flat, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("travel: %s: %w", path, err)
	}
	if len(flat) != n*n {
		return nil, fmt.Errorf("travel: %s: want %d trip entries for %d hubs, got %d", path, n*n, n, len(flat))
	}
	trips := make([][]int, n)
	for i := range trips {
		trips[i] = flat[i*n : (i+1)*n]
	}
	return trips, nil
}

// attachUsers assigns every person to the hub nearest their first located
// place; people with no located place go to the first hub.
func (t *Travel) attachUsers() {
	located := make(map[*epi.Group]*epi.Place, len(t.model.Places))
	for _, pl := range t.model.Places {
		located[&pl.Group] = pl
	}
	for _, p := range t.model.People {
		hub := t.hubs[0]
		best := math.MaxFloat64
		for _, g := range p.Groups() {
			pl := located[g]
			if pl == nil || (pl.Latitude == 0 && pl.Longitude == 0) {
				continue
			}
			for _, h := range t.hubs {
				if d := haversineKM(pl.Latitude, pl.Longitude, h.Latitude, h.Longitude); d < best {
					best = d
					hub = h
				}
			}
			break
		}
		hub.users = append(hub.users, p)
	}
}

// Update fires this morning's returns, then schedules today's trips for
// every ordered hub pair.
func (t *Travel) Update(day int) {
	step := 24 * day
	for _, p := range t.returns.Events(step) {
		p.EndTravel()
		t.model.Logger.Debug("travel return", slog.Int("day", day), slog.Int("person", p.ID))
	}
	t.returns.Clear(step)

	for i, from := range t.hubs {
		scale := hubUsage(from)
		for j, to := range t.hubs {
			if i == j || t.trips[i][j] <= 0 {
				continue
			}
			count := t.rng.StochasticRound(float64(t.trips[i][j]) * scale)
			for n := 0; n < count; n++ {
				t.tryTrip(from, to, day)
			}
		}
	}
}

// hubUsage scales the nominal trip volume by how much of the hub's stated
// population is actually present in the model.
func hubUsage(h *Hub) float64 {
	if h.Population <= 0 {
		return 1
	}
	return float64(len(h.users)) / float64(h.Population)
}

func (t *Travel) tryTrip(from, to *Hub, day int) {
	traveler := t.drawUser(from)
	host := t.drawUser(to)
	if traveler == nil || host == nil || traveler == host {
		return
	}
	duration := t.rng.DrawFromCDF(t.durationCDF)
	t.ScheduleTrip(traveler, host, day, duration)
}

// drawUser rejection-samples a hub user against the age-travel-probability
// table, skipping anyone dead or already travelling.
func (t *Travel) drawUser(h *Hub) *epi.Person {
	if len(h.users) == 0 {
		return nil
	}
	for attempt := 0; attempt < travelDrawAttempts; attempt++ {
		p := h.users[t.rng.Int(0, len(h.users)-1)]
		if p.IsDeceased() || p.IsTraveling() {
			continue
		}
		if t.ageProb != nil && t.rng.Float64() >= t.ageProb.FindValue(p.RealAge) {
			continue
		}
		return p
	}
	return nil
}

// ScheduleTrip puts the traveler on the host's activity footprint and
// enqueues the return at the morning of day+duration. Returns past the
// simulation horizon never fire; EndRun teardown is not needed because
// the substitution only matters inside the window.
func (t *Travel) ScheduleTrip(traveler, host *epi.Person, day, duration int) {
	traveler.StartTravel(host)
	t.returns.Add(24*(day+duration), traveler)
	t.model.Logger.Debug("travel depart",
		slog.Int("day", day),
		slog.Int("person", traveler.ID),
		slog.Int("host", host.ID),
		slog.Int("duration", duration))
}

const earthRadiusKM = 6371.0

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const rad = math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}
