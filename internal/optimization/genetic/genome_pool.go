package genetic

import "github.com/copyleftdev/layoutevo/internal/optimization"

// GenomePool provides reusable permutation buffers to reduce allocations
// when a generation replaces the population.
type GenomePool struct {
	size  int
	free  []optimization.Permutation
	reuse int
}

// NewGenomePool creates a pool for permutations of the given length.
func NewGenomePool(size int) *GenomePool {
	return &GenomePool{
		size: size,
		free: make([]optimization.Permutation, 0, 16),
	}
}

// Get returns a buffer from the pool or allocates a new one. Its contents are unspecified.
func (p *GenomePool) Get() optimization.Permutation {
	if n := len(p.free); n > 0 {
		g := p.free[n-1]
		p.free = p.free[:n-1]
		p.reuse++
		return g
	}
	return make(optimization.Permutation, p.size)
}

// Put returns a buffer to the pool. Buffers of the wrong length are dropped.
func (p *GenomePool) Put(g optimization.Permutation) {
	if len(g) != p.size {
		return
	}
	p.free = append(p.free, g)
}

// Reused returns how many buffers were handed out from the pool.
func (p *GenomePool) Reused() int {
	return p.reuse
}
