// Package annealing implements a blocking simulated annealing search over
// layout permutations with observer notifications.
package annealing

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/copyleftdev/layoutevo/internal/evaluation"
	"github.com/copyleftdev/layoutevo/internal/logging"
	"github.com/copyleftdev/layoutevo/internal/optimization"
)

// Result is the outcome of a completed run.
type Result struct {
	// Best is the lowest-cost state seen during the run, including the start.
	Best *optimization.Solution
	// LastAccepted is the state the search was in when the budget ran out.
	LastAccepted *optimization.Solution

	Iterations       int
	Accepted         int
	Improvements     int
	FinalTemperature float64
}

type options struct {
	observer Observer
	cache    *optimization.Cache[*evaluation.Result]
	neighbor Neighbor
	acceptor Acceptor
	schedule Schedule
	logger   *logging.Logger
}

// Option configures a run.
type Option func(*options)

// WithObserver sets the observer notified during the run.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		opts.observer = o
	}
}

// WithCache shares an evaluation cache with the run.
func WithCache(c *optimization.Cache[*evaluation.Result]) Option {
	return func(opts *options) {
		opts.cache = c
	}
}

// WithNeighbor replaces the default swap neighborhood.
func WithNeighbor(n Neighbor) Option {
	return func(opts *options) {
		opts.neighbor = n
	}
}

// WithAcceptor replaces the Metropolis acceptance rule.
func WithAcceptor(a Acceptor) Option {
	return func(opts *options) {
		opts.acceptor = a
	}
}

// WithSchedule replaces the schedule named in the parameters.
func WithSchedule(s Schedule) Option {
	return func(opts *options) {
		opts.schedule = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(opts *options) {
		opts.logger = l
	}
}

// Optimize runs simulated annealing to completion and returns the best state
// found. The run starts from the generator's base layout when startWithLayout
// is set and from a random permutation otherwise. It stops early only when
// ctx is done or an evaluation fails.
func Optimize(ctx context.Context, params Parameters, evaluator evaluation.Evaluator, generator *optimization.LayoutGenerator, startWithLayout bool, opts ...Option) (*Result, error) {
	requested := params.InitTemp
	params, err := params.Validate()
	if err != nil {
		return nil, err
	}
	if evaluator == nil || generator == nil {
		return nil, optimization.NewError(optimization.ErrConfig, "evaluator and layout generator are required").WithComponent("annealing")
	}

	o := options{
		observer: nopObserver{},
		neighbor: SwapNeighbor{Switches: params.KeySwitches},
		acceptor: Metropolis{},
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cache == nil {
		o.cache = optimization.NewCache[*evaluation.Result]()
	}
	if o.schedule == nil {
		if o.schedule, err = ScheduleFor(params); err != nil {
			return nil, err
		}
	}
	if requested != params.InitTemp {
		o.logger.Info("Initial temperature corrected", map[string]interface{}{
			"requested": requested,
			"init_temp": params.InitTemp,
		})
	}

	r := &run{
		params:    params,
		evaluator: evaluator,
		generator: generator,
		opts:      o,
		rng:       optimization.NewRand(params.Seed),
	}
	return r.loop(ctx, startWithLayout)
}

type run struct {
	params    Parameters
	evaluator evaluation.Evaluator
	generator *optimization.LayoutGenerator
	opts      options
	rng       *rand.Rand
}

func (r *run) loop(ctx context.Context, startWithLayout bool) (*Result, error) {
	var current optimization.Permutation
	if startWithLayout {
		current = r.generator.Identity()
	} else {
		current = r.generator.Random(r.rng)
	}
	currentRes, err := r.evaluate(current)
	if err != nil {
		return nil, err
	}
	best, bestRes := current.Clone(), currentRes

	r.opts.logger.Debug("Annealing started", map[string]interface{}{
		"max_iters": r.params.MaxIters,
		"init_temp": r.params.InitTemp,
		"schedule":  r.params.Schedule,
		"slots":     r.generator.Describe(),
		"cost":      currentRes.TotalCost(),
	})
	r.opts.observer.OnStart(r.params.MaxIters)

	res := &Result{}
	next := make(optimization.Permutation, len(current))
	temp := r.params.InitTemp
	for i := 1; i <= r.params.MaxIters; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("annealing cancelled after %d iterations: %w", i-1, err)
		}

		copy(next, current)
		r.opts.neighbor.Propose(next, r.rng)
		if err := next.Validate(len(current)); err != nil {
			return nil, err
		}
		candidate, err := r.evaluate(next)
		if err != nil {
			return nil, err
		}

		if r.opts.acceptor.Accept(currentRes.TotalCost(), candidate.TotalCost(), temp, r.rng) {
			current, next = next, current
			currentRes = candidate
			res.Accepted++

			if candidate.TotalCost() < bestRes.TotalCost() {
				best, bestRes = current.Clone(), candidate
				res.Improvements++
				text, err := r.generator.GenerateString(best)
				if err != nil {
					return nil, err
				}
				r.opts.observer.OnNewBest(text, candidate)
			}
		}

		temp = r.opts.schedule.Temperature(r.params.InitTemp, i)
		res.Iterations = i
		if i%r.params.ProgressInterval == 0 {
			r.opts.observer.OnProgress(i)
		}
	}
	res.FinalTemperature = temp

	if res.Best, err = r.solution(best, bestRes); err != nil {
		return nil, err
	}
	if res.LastAccepted, err = r.solution(current, currentRes); err != nil {
		return nil, err
	}
	r.opts.logger.Info("Annealing finished", map[string]interface{}{
		"iterations":   res.Iterations,
		"accepted":     res.Accepted,
		"improvements": res.Improvements,
		"best_cost":    bestRes.TotalCost(),
	})
	return res, nil
}

func (r *run) evaluate(p optimization.Permutation) (*evaluation.Result, error) {
	res, _, err := r.opts.cache.GetOrCompute(p, func() (*evaluation.Result, error) {
		l, err := r.generator.GenerateLayout(p)
		if err != nil {
			return nil, err
		}
		res, err := r.evaluator.Evaluate(l)
		if err != nil {
			return nil, optimization.WrapError(optimization.ErrEvaluation, err, "could not evaluate layout "+l.Text())
		}
		return res, nil
	})
	return res, err
}

func (r *run) solution(p optimization.Permutation, res *evaluation.Result) (*optimization.Solution, error) {
	text, err := r.generator.GenerateString(p)
	if err != nil {
		return nil, err
	}
	return &optimization.Solution{Permutation: p.Clone(), Layout: text, Result: res}, nil
}
