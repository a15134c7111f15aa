package search

import "math/rand/v2"

// Streams derives independent random streams from a run seed. The stream
// for (generation, slot) does not depend on scheduling, so a run is
// reproducible for any number of workers.
type Streams struct {
	seed uint64
}

// NewStreams returns the stream family for seed.
func NewStreams(seed int64) Streams {
	return Streams{seed: splitmix(uint64(seed))}
}

// At returns the stream for one slot of one generation.
func (s Streams) At(gen, slot int) *rand.Rand {
	key := uint64(uint32(gen))<<32 | uint64(uint32(slot))
	return rand.New(rand.NewPCG(s.seed, splitmix(key^s.seed)))
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
