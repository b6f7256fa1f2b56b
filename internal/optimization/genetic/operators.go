package genetic

import (
	"math/rand"

	"github.com/copyleftdev/layoutevo/internal/optimization"
)

// Selector picks n parent indices from a population given its fitness values.
type Selector interface {
	Select(fitness []float64, n int, rng *rand.Rand) []int
}

// Crossover writes a child of p1 and p2 into child. All three have the same length.
type Crossover interface {
	Cross(p1, p2, child optimization.Permutation, rng *rand.Rand)
}

// Mutator perturbs a permutation in place, keeping it a bijection.
type Mutator interface {
	Mutate(p optimization.Permutation, rng *rand.Rand)
}

// Operators bundles the recombination pipeline of a generation.
type Operators struct {
	Selector  Selector
	Crossover Crossover
	Mutator   Mutator
}

// DefaultOperators returns tournament selection, order crossover and swap mutation.
func DefaultOperators(params Parameters) Operators {
	return Operators{
		Selector:  TournamentSelector{Size: params.TournamentSize},
		Crossover: OrderCrossover{},
		Mutator:   SwapMutator{Rate: params.MutationRate},
	}
}

// TournamentSelector runs tournaments of Size random members and keeps the fittest.
type TournamentSelector struct {
	Size int
}

// Select implements Selector.
func (ts TournamentSelector) Select(fitness []float64, n int, rng *rand.Rand) []int {
	size := ts.Size
	if size < 1 {
		size = 1
	}
	out := make([]int, n)
	for i := range out {
		best := rng.Intn(len(fitness))
		for k := 1; k < size; k++ {
			cand := rng.Intn(len(fitness))
			if fitness[cand] > fitness[best] {
				best = cand
			}
		}
		out[i] = best
	}
	return out
}

// OrderCrossover copies a random segment of the first parent and fills the
// remaining positions with the genes of the second parent in their order,
// starting after the segment.
type OrderCrossover struct{}

// Cross implements Crossover.
func (OrderCrossover) Cross(p1, p2, child optimization.Permutation, rng *rand.Rand) {
	n := len(p1)
	if n < 2 {
		copy(child, p1)
		return
	}

	a, b := rng.Intn(n), rng.Intn(n)
	if a > b {
		a, b = b, a
	}
	b++ // segment is [a, b)

	used := make([]bool, n)
	for i := a; i < b; i++ {
		child[i] = p1[i]
		used[p1[i]] = true
	}

	pos := b % n
	for k := 0; k < n; k++ {
		gene := p2[(b+k)%n]
		if used[gene] {
			continue
		}
		child[pos] = gene
		used[gene] = true
		pos = (pos + 1) % n
	}
}

// SwapMutator swaps each position with a random other position with probability Rate.
type SwapMutator struct {
	Rate float64
}

// Mutate implements Mutator.
func (m SwapMutator) Mutate(p optimization.Permutation, rng *rand.Rand) {
	if len(p) < 2 {
		return
	}
	for i := range p {
		if rng.Float64() < m.Rate {
			j := rng.Intn(len(p))
			p[i], p[j] = p[j], p[i]
		}
	}
}
