package sampler

import "math/rand/v2"

// NewRNG returns a deterministic generator for the given seed and stream.
// The same (seed, stream) pair always yields the same draw sequence, and
// distinct streams under one seed are independent, so parallel batches can
// each own a substream keyed by batch index and reproduce the exact same
// variates regardless of scheduling.
func NewRNG(seed int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), stream))
}
