package optimization

import "math"

// BestTracker keeps the all-time best (fitness, permutation) pair of a run.
// Higher fitness is better. The record only changes on a strict improvement.
type BestTracker struct {
	held        bool
	fitness     float64
	permutation Permutation
}

// Offer replaces the record if none is held or fitness strictly exceeds it.
// It reports whether the record changed. The permutation is copied.
func (b *BestTracker) Offer(fitness float64, p Permutation) bool {
	if math.IsNaN(fitness) || (b.held && fitness <= b.fitness) {
		return false
	}
	b.held = true
	b.fitness = fitness
	b.permutation = p.Clone()
	return true
}

// Best returns the held record.
func (b *BestTracker) Best() (float64, Permutation, bool) {
	if !b.held {
		return 0, nil, false
	}
	return b.fitness, b.permutation.Clone(), true
}
