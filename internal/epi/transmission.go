package epi

import (
	"log/slog"
	"math"

	"github.com/episim/episim/internal/random"
)

// spreadProximity runs the place kernel for one time block: each
// transmissible source draws random contacts from the member roster.
// Group types flagged for density transmission use the pooled kernel
// instead.
func (e *Epidemic) spreadProximity(g *Group, day, hour, timeBlock int) {
	if g.Type.DensityTransmission {
		e.spreadDensity(g, day, hour, timeBlock)
		return
	}
	c := e.condition.ID
	g.RecordTransmissibleDays(day, c)
	size := g.Size()
	if size < 2 {
		return
	}

	rate := g.ProximityContactRate() * e.condition.Transmissibility * float64(timeBlock)

	roster := g.TransmissiblePeople(c)
	sources := make([]*Person, len(roster))
	copy(sources, roster)
	random.ShuffleSlice(e.model.RNG, sources)

	for _, source := range sources {
		if !source.IsTransmissible(c) {
			e.model.Logger.Warn("stale transmissible roster entry",
				slog.String("condition", e.condition.Name),
				slog.String("group", g.Label),
				slog.Int("person", source.ID))
			continue
		}
		contacts := e.model.RNG.StochasticRound(rate * source.Transmissibility(c))
		cTransmit := e.condition.History.ConditionToTransmit(source.State(c))
		for attempt := 0; attempt < contacts; attempt++ {
			target := g.Member(e.model.RNG.Int(0, size-1))
			for target == source {
				target = g.Member(e.model.RNG.Int(0, size-1))
			}
			target.UpdateActivities(day)
			if !target.IsPresent(day, g) {
				continue
			}
			prob := 1.0
			if bias := g.Type.SameAgeBias; bias > 0 {
				prob = math.Exp(-bias * math.Abs(source.RealAge-target.RealAge))
			}
			if !target.IsSusceptible(cTransmit) {
				continue
			}
			e.attemptTransmission(prob, source, target, cTransmit, g, day, hour)
		}
	}
}

// spreadDensity runs the pooled kernel: one exposure probability per
// susceptible derived from the transmissible head count, realized as an
// expected number of new exposures.
func (e *Epidemic) spreadDensity(g *Group, day, hour, timeBlock int) {
	c := e.condition.ID
	g.RecordTransmissibleDays(day, c)

	roster := g.TransmissiblePeople(c)
	transmissibles := len(roster)
	if transmissibles == 0 {
		return
	}
	susceptibles := g.Size() - transmissibles
	if susceptibles <= 0 {
		return
	}

	prob := g.Type.DensityContactProb * e.condition.Transmissibility
	prob = math.Min(1, math.Max(0, prob))
	exposureProb := 1 - math.Pow(1-prob, float64(timeBlock*transmissibles))
	wanted := e.model.RNG.StochasticRound(float64(susceptibles) * exposureProb)
	if wanted == 0 {
		return
	}

	// Exactly wanted attempts, one per shuffled member index. Failed
	// attempts are not retried against fresh targets.
	order := e.model.RNG.ShuffledIndex(g.Size())
	for j := 0; j < wanted && j < len(order); j++ {
		target := g.Member(order[j])
		source := roster[e.model.RNG.Int(0, transmissibles-1)]
		if !source.IsTransmissible(c) {
			continue
		}
		cTransmit := e.condition.History.ConditionToTransmit(source.State(c))
		if !target.IsSusceptible(cTransmit) {
			continue
		}
		target.UpdateActivities(day)
		if !target.IsPresent(day, g) {
			continue
		}
		e.attemptTransmission(source.Transmissibility(c), source, target, cTransmit, g, day, hour)
	}
}

// spreadNetwork runs the edge kernel: each transmissible source contacts a
// stochastically-rounded number of its outward neighbors.
func (e *Epidemic) spreadNetwork(net *Network, day, hour, timeBlock int) {
	c := e.condition.ID
	g := &net.Group
	g.RecordTransmissibleDays(day, c)

	roster := g.TransmissiblePeople(c)
	sources := make([]*Person, len(roster))
	copy(sources, roster)
	random.ShuffleSlice(e.model.RNG, sources)

	for _, source := range sources {
		if !source.IsTransmissible(c) {
			continue
		}
		neighbors := source.OutNeighbors(net, 0)
		if len(neighbors) == 0 {
			continue
		}
		base := g.Type.ContactCount
		if base <= 0 {
			base = g.Type.ContactRate * float64(len(neighbors))
		}
		expected := base * float64(timeBlock) * e.condition.Transmissibility * source.Transmissibility(c)
		contacts := e.model.RNG.StochasticRound(expected)
		if contacts == 0 {
			continue
		}
		cTransmit := e.condition.History.ConditionToTransmit(source.State(c))

		var order []int
		if g.Type.DeterministicContacts {
			order = e.model.RNG.ShuffledIndex(len(neighbors))
		}
		for k := 0; k < contacts; k++ {
			var host *Person
			if order != nil {
				host = neighbors[order[k%len(order)]]
			} else {
				host = neighbors[e.model.RNG.Int(0, len(neighbors)-1)]
			}
			if host.IsDeceased() {
				continue
			}
			host.UpdateActivities(day)
			if !host.IsPresent(day, g) {
				continue
			}
			if !host.IsSusceptible(cTransmit) {
				continue
			}
			e.attemptTransmission(1, source, host, cTransmit, g, day, hour)
		}
	}
}

// attemptTransmission is the shared contact-to-infection primitive. The
// caller has already verified dest is susceptible to cTransmit.
func (e *Epidemic) attemptTransmission(prob float64, source, dest *Person, cTransmit int, g *Group, day, hour int) bool {
	p := prob * dest.Susceptibility(cTransmit)
	if e.model.RNG.Float64() >= p {
		return false
	}
	source.Expose(dest, cTransmit, g, day)
	e.model.Conditions[cTransmit].epidemic.BecomeExposed(dest, day, hour)
	return true
}
