package random

// mt19937 is the 64-bit Mersenne Twister (mt19937-64) of Matsumoto and
// Nishimura. The simulator's determinism contract fixes this exact engine:
// two runs with the same seed must consume the identical draw sequence.

const (
	nn        = 312
	mm        = 156
	matrixA   = 0xB5026F5AA96619E9
	upperMask = 0xFFFFFFFF80000000
	lowerMask = 0x000000007FFFFFFF
)

type mt19937 struct {
	state [nn]uint64
	index int
}

func newMT19937(seed uint64) *mt19937 {
	m := &mt19937{}
	m.Seed(seed)
	return m
}

// Seed initializes the state vector from a single 64-bit seed.
func (m *mt19937) Seed(seed uint64) {
	m.state[0] = seed
	for i := uint64(1); i < nn; i++ {
		m.state[i] = 6364136223846793005*(m.state[i-1]^(m.state[i-1]>>62)) + i
	}
	m.index = nn
}

// Uint64 returns the next value in the sequence.
func (m *mt19937) Uint64() uint64 {
	if m.index >= nn {
		var mag01 = [2]uint64{0, matrixA}

		var i int
		for i = 0; i < nn-mm; i++ {
			x := (m.state[i] & upperMask) | (m.state[i+1] & lowerMask)
			m.state[i] = m.state[i+mm] ^ (x >> 1) ^ mag01[x&1]
		}
		for ; i < nn-1; i++ {
			x := (m.state[i] & upperMask) | (m.state[i+1] & lowerMask)
			m.state[i] = m.state[i+mm-nn] ^ (x >> 1) ^ mag01[x&1]
		}
		x := (m.state[nn-1] & upperMask) | (m.state[0] & lowerMask)
		m.state[nn-1] = m.state[mm-1] ^ (x >> 1) ^ mag01[x&1]

		m.index = 0
	}

	x := m.state[m.index]
	m.index++

	x ^= (x >> 29) & 0x5555555555555555
	x ^= (x << 17) & 0x71D67FFFEDA60000
	x ^= (x << 37) & 0xFFF7EEE000000000
	x ^= x >> 43
	return x
}

// Float64 returns a uniform double in [0, 1) with 53-bit resolution.
func (m *mt19937) Float64() float64 {
	return float64(m.Uint64()>>11) / (1 << 53)
}
