// Package evaluation scores keyboard layouts against n-gram statistics.
package evaluation

import (
	"fmt"
	"strings"

	"github.com/copyleftdev/layoutevo/internal/layout"
)

// Evaluator scores a layout. Implementations must be deterministic for a
// given layout so that results can be cached.
type Evaluator interface {
	Evaluate(l *layout.Layout) (*Result, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(l *layout.Layout) (*Result, error)

// Evaluate calls f(l).
func (f EvaluatorFunc) Evaluate(l *layout.Layout) (*Result, error) {
	return f(l)
}

// MetricCost is the contribution of a single criterion.
type MetricCost struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Cost   float64 `json:"cost"`
}

// Weighted returns the weighted cost of the metric.
func (m MetricCost) Weighted() float64 {
	return m.Weight * m.Cost
}

// Result is the decomposed cost of a layout. Lower total cost is better.
type Result struct {
	Metrics []MetricCost `json:"metrics"`
}

// TotalCost returns the sum of all weighted metric costs.
func (r *Result) TotalCost() float64 {
	total := 0.0
	for _, m := range r.Metrics {
		total += m.Weighted()
	}
	return total
}

// String renders a human-readable breakdown.
func (r *Result) String() string {
	width := len("total")
	for _, m := range r.Metrics {
		if len(m.Name) > width {
			width = len(m.Name)
		}
	}

	var b strings.Builder
	for _, m := range r.Metrics {
		fmt.Fprintf(&b, "%-*s  %10.4f  (weight %.2f, raw %.4f)\n", width, m.Name, m.Weighted(), m.Weight, m.Cost)
	}
	fmt.Fprintf(&b, "%-*s  %10.4f", width, "total", r.TotalCost())
	return b.String()
}
