package utils

// Source is the minimal generator contract behind a RandSource
type Source interface {
	Uint32() uint32
	Float64() float64
}

// RandSource is a seeded random number generator
type RandSource struct {
	src  Source
	seed int64
}

// NewMTRandSource creates a Mersenne Twister backed source seeded with
// init_by_array over the 32-bit words of the seed, so a fixed seed
// reproduces archived downtime tables.
func NewMTRandSource(seed int64) *RandSource {
	if seed < 0 {
		seed = -seed
	}
	key := []uint32{uint32(seed)}
	if hi := uint32(uint64(seed) >> 32); hi != 0 {
		key = append(key, hi)
	}
	mt := &MT19937{}
	mt.SeedArray(key)
	return &RandSource{
		src:  mt,
		seed: seed,
	}
}

// Seed returns the seed the source was built with
func (r *RandSource) Seed() int64 {
	return r.seed
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	return r.src.Float64()
}

// BernoulliBool returns true with probability p, false otherwise
func (r *RandSource) BernoulliBool(p float64) bool {
	return r.src.Float64() < p
}
