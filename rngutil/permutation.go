// Package rngutil provides the seedable randomized sweep order used
// between alpha-expansion passes.
package rngutil

import "math/rand/v2"

// Permutation returns a Fisher-Yates shuffle of 0..n-1 drawn from src.
// Using IntN (rejection-sampled, not rand()%k) avoids the modulo bias a
// naive port of the original C rand()%k generator would carry.
func Permutation(src *rand.Rand, n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// NewSource returns a deterministic source seeded from seed, so a run can
// be reproduced exactly by recording the seed alongside its parameters.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
