package synth

import "math/rand/v2"

// Source is the single randomness stream a run draws from.
// Every stage consumes it in a fixed order, so one seed yields one dataset.
type Source interface {
	// IntN returns a uniform integer in [0, n). n must be positive.
	IntN(n int) int
	// Float64 returns a uniform float in [0, 1).
	Float64() float64
}

// NewSource returns a PCG-backed Source seeded from seed
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// pick returns a uniformly chosen element of options
func pick[T any](src Source, options []T) T {
	return options[src.IntN(len(options))]
}

// chance reports true with probability p
func chance(src Source, p float64) bool {
	return src.Float64() < p
}
