package synth

import (
	"math"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/fixture"
)

// DNCSize is the registry size for n leads: round(f*n), at least one, at most n.
// Halves round away from zero (math.Round), not to even: 0.5 of 5 leads is 3.
func DNCSize(f float64, n int) int {
	if n <= 0 {
		return 0
	}
	k := int(math.Round(f * float64(n)))
	return min(max(k, 1), n)
}

// SampleDNC picks DNCSize(f, len(leads)) distinct leads without replacement and
// returns their phone hashes.
func SampleDNC(src Source, f float64, leads []fixture.Lead) []fixture.DncEntry {
	n := len(leads)
	k := DNCSize(f, n)

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// partial Fisher-Yates over the first k slots
	for i := 0; i < k; i++ {
		j := i + src.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}

	entries := make([]fixture.DncEntry, 0, k)
	for _, i := range idx[:k] {
		entries = append(entries, fixture.DncEntry{PhoneHash: leads[i].PhoneHash})
	}
	return entries
}
