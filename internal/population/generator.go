// Package population builds a synthetic population from model properties:
// people with drawn ages, place groups filled to a per-type mean size, and
// random network degrees. Real synthetic-population files are supplied by
// external tooling; this generator covers self-contained models and tests.
package population

import (
	"fmt"
	"log/slog"

	"github.com/episim/episim/internal/epi"
	"github.com/episim/episim/internal/props"
	"github.com/episim/episim/internal/random"
)

// Config configures the generator.
type Config struct {
	Size   int
	MaxAge int

	// Places get coordinates drawn uniformly in a square of RegionSpan
	// degrees around (RegionLat, RegionLon) when RegionSpan > 0.
	RegionLat  float64
	RegionLon  float64
	RegionSpan float64
}

// ConfigFromProps reads the generator properties. A zero Size means no
// synthetic population is requested.
func ConfigFromProps(p *props.Map) Config {
	return Config{
		Size:       p.Int("population_size", 0),
		MaxAge:     p.Int("population_max_age", 89),
		RegionLat:  p.Float("region_lat", 0),
		RegionLon:  p.Float("region_lon", 0),
		RegionSpan: p.Float("region_span", 0),
	}
}

// Generator fills a model with synthetic people and groups.
type Generator struct {
	model  *epi.Model
	rng    *random.Engine
	cfg    Config
	logger *slog.Logger
}

// NewGenerator creates a generator writing into the given model.
func NewGenerator(m *epi.Model, rng *random.Engine, cfg Config) *Generator {
	return &Generator{model: m, rng: rng, cfg: cfg, logger: m.Logger}
}

// Generate creates the people, then fills every declared group type that
// carries a mean_size (places) or mean_degree (networks) property.
func (g *Generator) Generate() error {
	if g.cfg.Size <= 0 {
		return fmt.Errorf("population: need a positive population_size, got %d", g.cfg.Size)
	}
	g.logger.Info("generating population", slog.Int("size", g.cfg.Size))

	for i := 0; i < g.cfg.Size; i++ {
		age := g.rng.Int(0, g.cfg.MaxAge)
		sex := byte('F')
		if g.rng.Float64() < 0.5 {
			sex = 'M'
		}
		g.model.AddPerson(i, age, sex, 0)
	}

	for _, t := range g.model.Types.All() {
		if t.IsNetwork {
			if err := g.fillNetwork(t); err != nil {
				return err
			}
			continue
		}
		if err := g.fillPlaces(t); err != nil {
			return err
		}
	}
	return nil
}

// fillPlaces partitions the eligible people of a type into places of
// stochastically rounded mean size. Membership order is shuffled so
// households mix ages.
func (g *Generator) fillPlaces(t *epi.GroupType) error {
	p := g.model.Props
	mean := p.Float(t.Name+".mean_size", 0)
	if mean <= 0 {
		return nil
	}
	minAge := p.Int(t.Name+".min_age", 0)
	maxAge := p.Int(t.Name+".max_age", 200)

	var eligible []*epi.Person
	for _, person := range g.model.People {
		if person.Age >= minAge && person.Age <= maxAge {
			eligible = append(eligible, person)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	order := g.rng.ShuffledIndex(len(eligible))
	serial := 1
	for next := 0; next < len(order); {
		size := g.rng.StochasticRound(mean)
		if size < 1 {
			size = 1
		}
		place := g.model.NewPlace(fmt.Sprintf("%s-%d", t.Name, serial), t)
		serial++
		if g.cfg.RegionSpan > 0 {
			place.Latitude = g.cfg.RegionLat + (g.rng.Float64()-0.5)*g.cfg.RegionSpan
			place.Longitude = g.cfg.RegionLon + (g.rng.Float64()-0.5)*g.cfg.RegionSpan
		}
		for n := 0; n < size && next < len(order); n++ {
			place.BeginMembership(eligible[order[next]])
			next++
		}
	}
	g.logger.Debug("generated places",
		slog.String("type", t.Name),
		slog.Int("count", serial-1),
		slog.Int("people", len(eligible)))
	return nil
}

// fillNetwork draws StochasticRound(mean_degree) out-edges per person to
// uniformly chosen partners.
func (g *Generator) fillNetwork(t *epi.GroupType) error {
	p := g.model.Props
	mean := p.Float(t.Name+".mean_degree", 0)
	if mean <= 0 {
		return nil
	}
	if len(g.model.People) < 2 {
		return fmt.Errorf("population: network %s needs at least 2 people", t.Name)
	}
	net := g.model.NewNetwork(t.Name, t)
	for _, person := range g.model.People {
		degree := g.rng.StochasticRound(mean)
		for k := 0; k < degree; k++ {
			other := g.model.People[g.rng.Int(0, len(g.model.People)-1)]
			if other == person {
				continue
			}
			net.AddEdge(person, other, 1)
		}
	}
	g.logger.Debug("generated network", slog.String("type", t.Name), slog.Int("size", net.Size()))
	return nil
}
