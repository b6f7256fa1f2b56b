// Package optimization holds the building blocks shared by the layout
// optimizers: permutations over movable keys, the mapping between
// permutations and layouts, the fitness cache and the best-solution record.
package optimization

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/copyleftdev/layoutevo/internal/evaluation"
)

// Permutation is an arrangement of slot indices. Position i of a permutation
// holds the index of the movable character placed on the i-th movable key.
type Permutation []int

// Identity returns the permutation 0, 1, ..., n-1.
func Identity(n int) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// RandomPermutation returns a uniformly shuffled permutation of length n.
func RandomPermutation(n int, rng *rand.Rand) Permutation {
	p := Identity(n)
	rng.Shuffle(n, func(i, j int) {
		p[i], p[j] = p[j], p[i]
	})
	return p
}

// Clone returns a copy of p.
func (p Permutation) Clone() Permutation {
	return append(Permutation(nil), p...)
}

// Equal reports whether p and q hold the same arrangement.
func (p Permutation) Equal(q Permutation) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Key returns a value identity for p suitable as a map key.
func (p Permutation) Key() string {
	var b strings.Builder
	for i, v := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// Validate checks that p is a bijection over 0..n-1.
func (p Permutation) Validate(n int) error {
	if len(p) != n {
		return NewErrorf(ErrInvalidPermutation, "length %d, want %d", len(p), n)
	}
	seen := make([]bool, n)
	for i, v := range p {
		if v < 0 || v >= n {
			return NewErrorf(ErrInvalidPermutation, "index %d out of range at position %d", v, i)
		}
		if seen[v] {
			return NewErrorf(ErrInvalidPermutation, "duplicate index %d at position %d", v, i)
		}
		seen[v] = true
	}
	return nil
}

// Solution is a scored permutation together with its materialized layout text.
type Solution struct {
	Permutation Permutation
	Layout      string
	Result      *evaluation.Result
}

// Cost returns the total cost of the solution.
func (s *Solution) Cost() float64 {
	return s.Result.TotalCost()
}

// NewRand returns a seeded random source. A zero seed uses the current time.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return rand.New(rand.NewSource(seed))
}
