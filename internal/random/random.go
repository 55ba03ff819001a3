// Package random provides the deterministic randomness backbone of the
// simulator: one mt19937-64 engine per worker, all seeded from a single
// meta-seed so that thread-parallel draws are reproducible.
package random

import (
	"math"
)

// Engine is a single worker's random number generator. It is not safe for
// concurrent use; each worker owns its own Engine.
type Engine struct {
	mt *mt19937

	// cached second value for the Box-Muller normal draw
	normalCached bool
	normalValue  float64
}

// New returns an Engine seeded with the given seed.
func New(seed uint64) *Engine {
	return &Engine{mt: newMT19937(seed)}
}

// Seed reinitializes the engine, discarding any cached state. Used at the
// reseed day to branch runs from a common trajectory.
func (e *Engine) Seed(seed uint64) {
	e.mt.Seed(seed)
	e.normalCached = false
}

// WorkerSeeds expands a meta-seed into n per-worker sub-seeds via a
// deterministic seed generator. Sub-seed 0 belongs to the master engine of
// the single-threaded simulation path.
func WorkerSeeds(metaSeed uint64, n int) []uint64 {
	seedGen := newMT19937(metaSeed)
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = seedGen.Uint64()
	}
	return seeds
}

// Workers returns n engines seeded with the meta-seed's sub-seeds.
func Workers(metaSeed uint64, n int) []*Engine {
	seeds := WorkerSeeds(metaSeed, n)
	engines := make([]*Engine, len(seeds))
	for i, s := range seeds {
		engines[i] = New(s)
	}
	return engines
}

// Float64 returns a uniform double in [0, 1).
func (e *Engine) Float64() float64 {
	return e.mt.Float64()
}

// Int returns a uniform integer in [low, high].
func (e *Engine) Int(low, high int) int {
	return low + int(float64(high-low+1)*e.Float64())
}

// DrawFromDist draws an index from a cumulative distribution by linear scan.
// The distribution must be nondecreasing and end with 1.0; -1 is returned for
// a malformed distribution.
func (e *Engine) DrawFromDist(dist []float64) int {
	r := e.Float64()
	for i, v := range dist {
		if r <= v {
			return i
		}
	}
	return -1
}

// DrawFromCDF draws an index from a cumulative distribution by binary search.
func (e *Engine) DrawFromCDF(cdf []float64) int {
	size := len(cdf)
	if size == 0 {
		return -1
	}
	r := e.Float64()
	top := size - 1
	bottom := 0
	s := top / 2
	for bottom <= top {
		if r <= cdf[s] {
			if s == 0 || r > cdf[s-1] {
				return s
			}
			top = s - 1
		} else {
			if s == size-1 {
				return s
			}
			if r < cdf[s+1] {
				return s + 1
			}
			bottom = s + 1
		}
		s = bottom + (top-bottom)/2
	}
	return -1
}

// Shuffle performs a Fisher-Yates shuffle of the index slice.
func (e *Engine) Shuffle(index []int) {
	n := len(index)
	for m := n; m > 0; m-- {
		r := int(e.Float64() * float64(n))
		index[m-1], index[r] = index[r], index[m-1]
	}
}

// ShuffleSlice shuffles a slice of any element type with the same draw
// sequence as Shuffle.
func ShuffleSlice[T any](e *Engine, s []T) {
	n := len(s)
	for m := n; m > 0; m-- {
		r := int(e.Float64() * float64(n))
		s[m-1], s[r] = s[r], s[m-1]
	}
}

// ShuffledIndex returns a shuffled index vector [0, n).
func (e *Engine) ShuffledIndex(n int) []int {
	index := make([]int, n)
	for i := range index {
		index[i] = i
	}
	e.Shuffle(index)
	return index
}

// Exponential returns a draw from the exponential distribution with rate
// lambda.
func (e *Engine) Exponential(lambda float64) float64 {
	u := e.Float64()
	if u > 0 {
		return -math.Log(u) / lambda
	}
	return math.MaxFloat64
}

// Normal returns a draw from the normal distribution with mean mu and
// standard deviation sigma.
func (e *Engine) Normal(mu, sigma float64) float64 {
	return mu + sigma*e.standardNormal()
}

// LogNormal returns a draw from the log-normal distribution where mu is the
// log of the median and sigma the log of the dispersion.
func (e *Engine) LogNormal(mu, sigma float64) float64 {
	return math.Exp(mu + sigma*e.standardNormal())
}

// standardNormal draws N(0,1) by the polar Box-Muller method, caching the
// second value of each pair.
func (e *Engine) standardNormal() float64 {
	if e.normalCached {
		e.normalCached = false
		return e.normalValue
	}
	for {
		u := 2*e.Float64() - 1
		v := 2*e.Float64() - 1
		s := u*u + v*v
		if s >= 1 || s == 0 {
			continue
		}
		f := math.Sqrt(-2 * math.Log(s) / s)
		e.normalValue = v * f
		e.normalCached = true
		return u * f
	}
}

// SampleRangeWithoutReplacement selects s distinct integers from [0, n) using
// a selected bitmap with neighbor fallback.
func (e *Engine) SampleRangeWithoutReplacement(n, s int) []int {
	selected := make([]bool, n)
	result := make([]int, s)
	for k := 0; k < s; k++ {
		i := e.Int(0, n-1)
		if selected[i] {
			switch {
			case i < n-1 && !selected[i+1]:
				i++
			case i > 0 && !selected[i-1]:
				i--
			default:
				k--
				continue
			}
		}
		selected[i] = true
		result[k] = i
	}
	return result
}

// StochasticRound converts a real-valued expected count to an integer by
// floor plus a Bernoulli draw on the fractional part.
func (e *Engine) StochasticRound(x float64) int {
	n := int(math.Floor(x))
	if e.Float64() < x-float64(n) {
		n++
	}
	return n
}
