/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package roles

import (
	"math/rand/v2"
	"sync"
)

// Source is the randomness used for every draw.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// IntN returns a uniform int in [0, n). n must be positive.
	IntN(n int) int
	// Shuffle performs a uniform permutation of n elements via swap.
	Shuffle(n int, swap func(i, j int))
}

type processSource struct{}

// NewSource returns a Source backed by the process-wide math/rand/v2 generator.
func NewSource() Source {
	return processSource{}
}

func (processSource) IntN(n int) int {
	return rand.IntN(n)
}

func (processSource) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

type seededSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSeededSource returns a reproducible Source: two sources built from the
// same seed produce the same sequence of draws.
func NewSeededSource(seed uint64) Source {
	return &seededSource{
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *seededSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rnd.IntN(n)
}

func (s *seededSource) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rnd.Shuffle(n, swap)
}
