package server

import (
	"context"
	"time"

	"github.com/copyleftdev/layoutevo/internal/evaluation"
	"github.com/copyleftdev/layoutevo/internal/logging"
	"github.com/copyleftdev/layoutevo/internal/optimization"
	"github.com/copyleftdev/layoutevo/internal/optimization/annealing"
	"github.com/copyleftdev/layoutevo/internal/optimization/genetic"
)

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Algorithms accepted by the optimize endpoint.
const (
	AlgorithmGenetic   = "genetic"
	AlgorithmAnnealing = "annealing"
)

// OptimizationState tracks one optimization job. All fields are guarded by
// the server's job mutex.
type OptimizationState struct {
	ID          string
	Algorithm   string
	Status      string
	StartTime   time.Time
	EndTime     *time.Time
	LastUpdated time.Time
	// Iteration counts generations for genetic jobs and iterations for annealing jobs.
	Iteration    int
	Budget       int
	Improvements int
	BestSolution *optimization.Solution
	Reason       string
	Error        string
	CancelFunc   context.CancelFunc
}

// Progress returns the completed fraction of the iteration budget.
func (st *OptimizationState) Progress() float64 {
	if st.Budget == 0 {
		return 0
	}
	return float64(st.Iteration) / float64(st.Budget)
}

func (st *OptimizationState) terminal() bool {
	switch st.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// acquire waits for a job slot. It reports false when ctx ends first.
func (s *Server) acquire(ctx context.Context) bool {
	select {
	case s.slots <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Server) release() {
	<-s.slots
}

// update runs fn on the job under the job mutex unless the job already
// reached a terminal state.
func (s *Server) update(state *OptimizationState, fn func(*OptimizationState)) {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()
	if state.terminal() {
		return
	}
	fn(state)
	state.LastUpdated = time.Now()
}

// finish moves a job to a terminal status. A cancelled job stays cancelled.
func (s *Server) finish(state *OptimizationState, status, reason string, err error) {
	s.optimizationsMu.Lock()
	if !state.terminal() {
		state.Status = status
		state.Reason = reason
		if err != nil {
			state.Error = err.Error()
		}
		now := time.Now()
		state.EndTime = &now
		state.LastUpdated = now
	}
	final := state.Status
	s.optimizationsMu.Unlock()

	s.metrics.JobsFinished.WithLabelValues(state.Algorithm, final).Inc()
}

func (s *Server) start(ctx context.Context, state *OptimizationState, logger *logging.Logger) bool {
	if !s.acquire(ctx) {
		s.finish(state, StatusCancelled, "cancelled before start", ctx.Err())
		return false
	}
	s.update(state, func(st *OptimizationState) { st.Status = StatusRunning })
	s.metrics.ActiveJobs.Inc()
	logger.Info("Optimization started", map[string]interface{}{"budget": state.Budget})
	return true
}

func (s *Server) stop() {
	s.metrics.ActiveJobs.Dec()
	s.release()
}

// runGenetic steps the optimizer until it finishes, fails or ctx is cancelled.
// Cancellation is observed between generations.
func (s *Server) runGenetic(ctx context.Context, state *OptimizationState, opt *genetic.Optimizer, logger *logging.Logger) {
	if !s.start(ctx, state, logger) {
		return
	}
	defer s.stop()

	var lastBest float64
	for {
		if err := ctx.Err(); err != nil {
			s.finish(state, StatusCancelled, "cancelled", err)
			return
		}

		out := opt.Step()
		s.metrics.Generations.Inc()
		s.update(state, func(st *OptimizationState) {
			st.Iteration = out.Generation
			if out.AllTimeBest == nil {
				return
			}
			if st.BestSolution == nil || out.AllTimeBest.Cost() < lastBest {
				st.Improvements++
				s.metrics.Improvements.WithLabelValues(AlgorithmGenetic).Inc()
			}
			lastBest = out.AllTimeBest.Cost()
			st.BestSolution = out.AllTimeBest
		})

		switch out.Kind {
		case genetic.Final:
			s.finish(state, StatusCompleted, out.Reason, nil)
			logger.Info("Optimization completed", map[string]interface{}{
				"generation": out.Generation,
				"reason":     out.Reason,
				"best_cost":  out.AllTimeBest.Cost(),
			})
			return
		case genetic.FailedOutcome:
			s.finish(state, StatusFailed, "", out.Err)
			logger.Error("Optimization failed", map[string]interface{}{"error": out.Err})
			return
		}

		if s.cfg.Optimization.StepPause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.Optimization.StepPause):
			}
		}
	}
}

// runAnnealing blocks in annealing.Optimize and mirrors observer events into the job.
func (s *Server) runAnnealing(ctx context.Context, state *OptimizationState, params annealing.Parameters, gen *optimization.LayoutGenerator, startWithLayout bool, logger *logging.Logger) {
	if !s.start(ctx, state, logger) {
		return
	}
	defer s.stop()

	lastProgress := 0
	obs := annealing.ObserverFuncs{
		Progress: func(i int) {
			s.metrics.AnnealingIters.Add(float64(i - lastProgress))
			lastProgress = i
			s.update(state, func(st *OptimizationState) { st.Iteration = i })
		},
		NewBest: func(text string, res *evaluation.Result) {
			p, err := gen.PermutationFor(text)
			if err != nil {
				logger.Warn("Could not map best layout", map[string]interface{}{"error": err})
				return
			}
			s.metrics.Improvements.WithLabelValues(AlgorithmAnnealing).Inc()
			s.update(state, func(st *OptimizationState) {
				st.Improvements++
				st.BestSolution = &optimization.Solution{Permutation: p, Layout: text, Result: res}
			})
		},
	}

	res, err := annealing.Optimize(ctx, params, s.evaluator, gen, startWithLayout,
		annealing.WithObserver(obs), annealing.WithLogger(logger))
	if err != nil {
		if ctx.Err() != nil {
			s.finish(state, StatusCancelled, "cancelled", err)
			return
		}
		s.finish(state, StatusFailed, "", err)
		logger.Error("Optimization failed", map[string]interface{}{"error": err})
		return
	}

	s.update(state, func(st *OptimizationState) {
		st.Iteration = res.Iterations
		st.BestSolution = res.Best
	})
	s.finish(state, StatusCompleted, "iteration budget exhausted", nil)
	logger.Info("Optimization completed", map[string]interface{}{
		"iterations": res.Iterations,
		"accepted":   res.Accepted,
		"best_cost":  res.Best.Cost(),
	})
}
