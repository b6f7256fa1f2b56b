package annealing

import (
	"math"
	"math/rand"

	"github.com/copyleftdev/layoutevo/internal/optimization"
)

// Schedule returns the temperature after k completed iterations.
// Every schedule starts at initTemp for k = 0.
type Schedule interface {
	Temperature(initTemp float64, k int) float64
}

// ExponentialSchedule multiplies the temperature by Rate every iteration.
type ExponentialSchedule struct {
	Rate float64
}

// Temperature implements Schedule.
func (s ExponentialSchedule) Temperature(initTemp float64, k int) float64 {
	return initTemp * math.Pow(s.Rate, float64(k))
}

// BoltzmannSchedule cools logarithmically.
type BoltzmannSchedule struct{}

// Temperature implements Schedule.
func (BoltzmannSchedule) Temperature(initTemp float64, k int) float64 {
	return initTemp / math.Log(float64(k)+math.E)
}

// FastSchedule cools with the inverse of the iteration count.
type FastSchedule struct{}

// Temperature implements Schedule.
func (FastSchedule) Temperature(initTemp float64, k int) float64 {
	return initTemp / float64(k+1)
}

// ScheduleFor returns the schedule named in validated parameters.
func ScheduleFor(p Parameters) (Schedule, error) {
	switch p.Schedule {
	case ScheduleExponential, "":
		return ExponentialSchedule{Rate: p.CoolingRate}, nil
	case ScheduleBoltzmann:
		return BoltzmannSchedule{}, nil
	case ScheduleFast:
		return FastSchedule{}, nil
	}
	return nil, optimization.NewErrorf(optimization.ErrInvalidParameter, "unknown schedule %q", p.Schedule).WithComponent("annealing")
}

// Neighbor perturbs next, a copy of the current permutation, into a candidate.
type Neighbor interface {
	Propose(next optimization.Permutation, rng *rand.Rand)
}

// SwapNeighbor swaps Switches random pairs of distinct slots.
type SwapNeighbor struct {
	Switches int
}

// Propose implements Neighbor.
func (s SwapNeighbor) Propose(next optimization.Permutation, rng *rand.Rand) {
	n := len(next)
	if n < 2 {
		return
	}
	for k := 0; k < s.Switches; k++ {
		i := rng.Intn(n)
		j := rng.Intn(n - 1)
		if j >= i {
			j++
		}
		next[i], next[j] = next[j], next[i]
	}
}

// Acceptor decides whether the search moves from the current cost to a candidate cost.
type Acceptor interface {
	Accept(current, candidate, temperature float64, rng *rand.Rand) bool
}

// Metropolis accepts every improvement and a worse candidate with
// probability exp(-(candidate-current)/temperature).
type Metropolis struct{}

// Accept implements Acceptor.
func (Metropolis) Accept(current, candidate, temperature float64, rng *rand.Rand) bool {
	if candidate <= current {
		return true
	}
	if temperature <= 0 {
		return false
	}
	return rng.Float64() < math.Exp(-(candidate-current)/temperature)
}
