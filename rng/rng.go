// Package rng provides the seeded random source shared by the learning engines.
//
// A Source belongs to one model instance and is passed to every stochastic
// operation (potential pool mapping, permanence initialisation, tie-breaking,
// cell selection). Draws are serialised by a mutex so parallel callers never
// observe torn state; the order in which goroutines draw is up to the scheduler.
package rng

import (
	"math/rand"
	"slices"
	"sync"
)

// Source is a mutex-guarded math/rand generator. It is safe for concurrent use.
type Source struct {
	mu   sync.Mutex
	r    *rand.Rand
	seed int64
}

// New returns a Source seeded with seed. Equal seeds yield equal sequences.
func New(seed int64) *Source {
	return &Source{r: rand.New(rand.NewSource(seed)), seed: seed} //nolint:gosec
}

// Seed returns the seed the Source was created with.
func (s *Source) Seed() int64 { return s.seed }

// Float64 returns a pseudo-random number in [0.0, 1.0).
func (s *Source) Float64() float64 {
	s.mu.Lock()
	v := s.r.Float64()
	s.mu.Unlock()
	return v
}

// Intn returns a pseudo-random number in [0, n). Panics if n <= 0.
func (s *Source) Intn(n int) int {
	s.mu.Lock()
	v := s.r.Intn(n)
	s.mu.Unlock()
	return v
}

// Sample picks n distinct elements of items and returns them in ascending order.
// items is not modified. If n >= len(items) a sorted copy of items is returned.
// All draws of one call happen under a single lock.
func (s *Source) Sample(items []int, n int) []int {
	pool := slices.Clone(items)
	if n >= len(pool) {
		slices.Sort(pool)
		return pool
	}
	if n <= 0 {
		return []int{}
	}

	s.mu.Lock()
	for i := 0; i < n; i++ {
		j := i + s.r.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	s.mu.Unlock()

	out := pool[:n:n]
	slices.Sort(out)
	return out
}
