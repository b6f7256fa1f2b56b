// Package genetic implements a caller-driven genetic layout optimizer.
// Each call to Step advances exactly one generation and returns control to
// the caller; the optimizer never loops on its own.
package genetic

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/layoutevo/internal/evaluation"
	"github.com/copyleftdev/layoutevo/internal/logging"
	"github.com/copyleftdev/layoutevo/internal/optimization"
)

// State is the lifecycle state of an Optimizer.
type State int

const (
	Initialized State = iota
	Stepping
	Converged
	Failed
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Stepping:
		return "stepping"
	case Converged:
		return "converged"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// OutcomeKind classifies the result of a Step.
type OutcomeKind int

const (
	Intermediate OutcomeKind = iota
	Final
	FailedOutcome
)

func (k OutcomeKind) String() string {
	switch k {
	case Intermediate:
		return "intermediate"
	case Final:
		return "final"
	default:
		return "failed"
	}
}

// Stats summarizes the fitness of one generation.
type Stats struct {
	MeanFitness   float64
	StdDevFitness float64
	Evaluations   uint64
	CacheHits     uint64
}

// StepOutcome is the result of one generation.
type StepOutcome struct {
	Kind       OutcomeKind
	Generation int
	// GenerationBest is the fittest member of the evaluated generation.
	GenerationBest *optimization.Solution
	// AllTimeBest is the best solution seen since the optimizer was created.
	AllTimeBest *optimization.Solution
	Stats       Stats
	// Reason explains why a Final outcome terminated the run.
	Reason string
	// Err is set for failed outcomes.
	Err error
}

type individual struct {
	genome    optimization.Permutation
	result    *evaluation.Result
	fitness   float64
	evaluated bool
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithCache shares an evaluation cache with the optimizer.
func WithCache(c *optimization.Cache[*evaluation.Result]) Option {
	return func(o *Optimizer) {
		o.cache = c
	}
}

// WithOperators replaces the default selection, crossover and mutation operators.
func WithOperators(ops Operators) Option {
	return func(o *Optimizer) {
		o.ops = ops
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Optimizer) {
		o.logger = l
	}
}

// Optimizer is a steppable genetic search over layout permutations.
// It is not safe for concurrent use.
type Optimizer struct {
	params    Parameters
	evaluator evaluation.Evaluator
	generator *optimization.LayoutGenerator
	cache     *optimization.Cache[*evaluation.Result]
	ops       Operators
	pool      *GenomePool
	rng       *rand.Rand
	logger    *logging.Logger

	state      State
	generation int
	stale      int
	population []individual
	best       optimization.BestTracker
	bestResult *evaluation.Result
	lastErr    error
}

// New validates params and builds the initial population. When
// startWithLayout is set, the first member is the generator's base layout.
func New(params Parameters, evaluator evaluation.Evaluator, generator *optimization.LayoutGenerator, startWithLayout bool, opts ...Option) (*Optimizer, error) {
	params, err := params.Validate()
	if err != nil {
		return nil, err
	}
	if evaluator == nil || generator == nil {
		return nil, optimization.NewError(optimization.ErrConfig, "evaluator and layout generator are required").WithComponent("genetic")
	}

	o := &Optimizer{
		params:    params,
		evaluator: evaluator,
		generator: generator,
		ops:       DefaultOperators(params),
		pool:      NewGenomePool(generator.Len()),
		rng:       optimization.NewRand(params.Seed),
		logger:    logging.Nop(),
		state:     Initialized,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cache == nil {
		o.cache = optimization.NewCache[*evaluation.Result]()
	}

	o.population = make([]individual, params.PopulationSize)
	for i := range o.population {
		if i == 0 && startWithLayout {
			o.population[i].genome = generator.Identity()
			continue
		}
		o.population[i].genome = generator.Random(o.rng)
	}

	o.logger.Debug("Genetic optimizer initialized", map[string]interface{}{
		"population_size":  params.PopulationSize,
		"generation_limit": params.GenerationLimit,
		"slots":            generator.Describe(),
		"seeded":           startWithLayout,
	})

	o.state = Stepping
	return o, nil
}

// Parameters returns the validated parameters.
func (o *Optimizer) Parameters() Parameters {
	return o.params
}

// State returns the lifecycle state.
func (o *Optimizer) State() State {
	return o.state
}

// Generation returns the number of completed generations.
func (o *Optimizer) Generation() int {
	return o.generation
}

// Err returns the error that failed the run, if any.
func (o *Optimizer) Err() error {
	return o.lastErr
}

// Best returns the all-time best solution, if any generation has been evaluated.
func (o *Optimizer) Best() (*optimization.Solution, bool) {
	_, genome, ok := o.best.Best()
	if !ok {
		return nil, false
	}
	sol, err := o.solution(genome, o.bestResult)
	if err != nil {
		return nil, false
	}
	return sol, true
}

// Step advances the search by one generation.
func (o *Optimizer) Step() StepOutcome {
	if o.state == Converged || o.state == Failed {
		return o.outcome(FailedOutcome, nil, Stats{}, "", optimization.NewErrorf(
			optimization.ErrAlreadyTerminated, "optimizer is %s", o.state).WithComponent("genetic").WithOperation("step"))
	}

	if err := o.evaluate(o.population); err != nil {
		return o.fail(err)
	}

	genBest := o.population[0]
	fitness := make([]float64, len(o.population))
	for i, ind := range o.population {
		fitness[i] = ind.fitness
		if ind.fitness > genBest.fitness {
			genBest = ind
		}
	}
	if o.best.Offer(genBest.fitness, genBest.genome) {
		o.bestResult = genBest.result
		o.stale = 0
	} else {
		o.stale++
	}
	o.generation++

	mean, std := stat.MeanStdDev(fitness, nil)
	hits, misses := o.cache.Stats()
	stats := Stats{MeanFitness: mean, StdDevFitness: std, Evaluations: misses, CacheHits: hits}

	genSolution, err := o.solution(genBest.genome, genBest.result)
	if err != nil {
		return o.fail(err)
	}

	if reason := o.terminationReason(); reason != "" {
		o.state = Converged
		o.logger.Info("Genetic optimization finished", map[string]interface{}{
			"generation": o.generation,
			"reason":     reason,
			"best_cost":  o.bestCost(),
		})
		return o.outcome(Final, genSolution, stats, reason, nil)
	}

	if err := o.breed(); err != nil {
		return o.fail(err)
	}

	o.logger.Debug("Generation finished", map[string]interface{}{
		"generation":      o.generation,
		"generation_cost": genBest.result.TotalCost(),
		"best_cost":       o.bestCost(),
		"mean_fitness":    mean,
	})
	return o.outcome(Intermediate, genSolution, stats, "", nil)
}

// bestCost returns the all-time best cost, or NaN before anything was recorded.
func (o *Optimizer) bestCost() float64 {
	if o.bestResult == nil {
		return math.NaN()
	}
	return o.bestResult.TotalCost()
}

func (o *Optimizer) terminationReason() string {
	if o.generation >= o.params.GenerationLimit {
		return "generation limit reached"
	}
	if o.params.PlateauGenerations > 0 && o.stale >= o.params.PlateauGenerations {
		return "fitness plateau"
	}
	return ""
}

// breed replaces the population with selected, recombined and mutated offspring.
func (o *Optimizer) breed() error {
	fitness := make([]float64, len(o.population))
	for i, ind := range o.population {
		fitness[i] = ind.fitness
	}

	group := o.params.NumIndividualsPerParents
	nParents := int(math.Round(o.params.SelectionRatio * float64(len(o.population))))
	if nParents < group {
		nParents = group
	}
	nParents -= nParents % group
	parents := o.ops.Selector.Select(fitness, nParents, o.rng)

	offspring := make([]individual, 0, nParents)
	for start := 0; start < len(parents); start += group {
		members := parents[start : start+group]
		for k := range members {
			p1 := o.population[members[k]].genome
			p2 := o.population[members[(k+1)%group]].genome
			child := o.pool.Get()
			o.ops.Crossover.Cross(p1, p2, child, o.rng)
			o.ops.Mutator.Mutate(child, o.rng)
			offspring = append(offspring, individual{genome: child})
		}
	}

	if err := o.evaluate(offspring); err != nil {
		for _, ind := range offspring {
			o.pool.Put(ind.genome)
		}
		return err
	}

	o.population = o.reinsert(offspring)
	return nil
}

// reinsert keeps the fittest share of the offspring and fills the rest of
// the population with the fittest previous members.
func (o *Optimizer) reinsert(offspring []individual) []individual {
	byFitness := func(s []individual) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].fitness > s[j].fitness })
	}
	byFitness(offspring)
	old := append([]individual(nil), o.population...)
	byFitness(old)

	size := len(o.population)
	nOff := int(math.Round(o.params.ReinsertionRatio * float64(len(offspring))))
	if nOff > size {
		nOff = size
	}

	next := make([]individual, 0, size)
	next = append(next, offspring[:nOff]...)
	next = append(next, old[:size-nOff]...)

	for _, ind := range offspring[nOff:] {
		o.pool.Put(ind.genome)
	}
	for _, ind := range old[size-nOff:] {
		o.pool.Put(ind.genome)
	}
	return next
}

// evaluate scores every unevaluated member through the cache.
func (o *Optimizer) evaluate(members []individual) error {
	for i := range members {
		ind := &members[i]
		if ind.evaluated {
			continue
		}
		if err := ind.genome.Validate(o.generator.Len()); err != nil {
			return err
		}
		res, _, err := o.cache.GetOrCompute(ind.genome, func() (*evaluation.Result, error) {
			l, err := o.generator.GenerateLayout(ind.genome)
			if err != nil {
				return nil, err
			}
			res, err := o.evaluator.Evaluate(l)
			if err != nil {
				return nil, optimization.WrapError(optimization.ErrEvaluation, err, "could not evaluate layout "+l.Text())
			}
			return res, nil
		})
		if err != nil {
			return err
		}
		cost := res.TotalCost()
		if math.IsNaN(cost) {
			text, _ := o.generator.GenerateString(ind.genome)
			return optimization.NewErrorf(optimization.ErrEvaluation, "layout %s has an undefined cost", text).
				WithComponent("genetic").WithOperation("evaluate")
		}
		ind.result = res
		ind.fitness = -cost
		ind.evaluated = true
	}
	return nil
}

func (o *Optimizer) fail(err error) StepOutcome {
	o.state = Failed
	o.lastErr = err
	o.logger.Error("Genetic optimization failed", map[string]interface{}{
		"generation": o.generation,
		"error":      err,
	})
	return o.outcome(FailedOutcome, nil, Stats{}, "", err)
}

func (o *Optimizer) outcome(kind OutcomeKind, genBest *optimization.Solution, stats Stats, reason string, err error) StepOutcome {
	out := StepOutcome{
		Kind:           kind,
		Generation:     o.generation,
		GenerationBest: genBest,
		Stats:          stats,
		Reason:         reason,
		Err:            err,
	}
	if best, ok := o.Best(); ok {
		out.AllTimeBest = best
	}
	return out
}

func (o *Optimizer) solution(genome optimization.Permutation, res *evaluation.Result) (*optimization.Solution, error) {
	text, err := o.generator.GenerateString(genome)
	if err != nil {
		return nil, err
	}
	return &optimization.Solution{
		Permutation: genome.Clone(),
		Layout:      text,
		Result:      res,
	}, nil
}
