package annealing

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/layoutevo/internal/evaluation"
	"github.com/copyleftdev/layoutevo/internal/layout"
	"github.com/copyleftdev/layoutevo/internal/optimization"
)

// positionEvaluator charges i+1 for every position i whose character differs from target.
type positionEvaluator struct {
	target []rune
	fail   bool
}

func (e *positionEvaluator) Evaluate(l *layout.Layout) (*evaluation.Result, error) {
	if e.fail {
		return nil, errors.New("evaluator unavailable")
	}
	cost := 0.0
	for i, r := range []rune(l.Text()) {
		if r != e.target[i] {
			cost += float64(i + 1)
		}
	}
	return &evaluation.Result{Metrics: []evaluation.MetricCost{{Name: "position", Weight: 1, Cost: cost}}}, nil
}

func lineGenerator(t *testing.T, base, fixed string) *optimization.LayoutGenerator {
	t.Helper()
	n := len([]rune(base))
	efforts := make([]float64, n)
	fingers := make([]int, n)
	for i := range efforts {
		efforts[i] = 1
		fingers[i] = i % layout.NumFingers
	}
	kb, err := layout.NewKeyboard(layout.KeyboardSpec{Efforts: [][]float64{efforts}, Fingers: [][]int{fingers}})
	require.NoError(t, err)
	g, err := optimization.NewLayoutGenerator("", fixed, base, layout.NewGenerator(kb))
	require.NoError(t, err)
	return g
}

type recorder struct {
	starts   []int
	progress []int
	layouts  []string
	costs    []float64
}

func (r *recorder) observer() Observer {
	return ObserverFuncs{
		Start:    func(n int) { r.starts = append(r.starts, n) },
		Progress: func(i int) { r.progress = append(r.progress, i) },
		NewBest: func(text string, res *evaluation.Result) {
			r.layouts = append(r.layouts, text)
			r.costs = append(r.costs, res.TotalCost())
		},
	}
}

// checkingNeighbor asserts that every proposal is a valid permutation.
type checkingNeighbor struct {
	t     *testing.T
	inner Neighbor
}

func (c checkingNeighbor) Propose(next optimization.Permutation, rng *rand.Rand) {
	c.inner.Propose(next, rng)
	require.NoError(c.t, next.Validate(len(next)))
}

func TestCorrectInitTemp(t *testing.T) {
	tests := []struct {
		in      float64
		want    float64
		wantErr bool
	}{
		{in: 0, want: DefaultInitTemp},
		{in: -5, want: 5},
		{in: 12.5, want: 12.5},
		{in: math.NaN(), wantErr: true},
		{in: math.Inf(1), wantErr: true},
		{in: math.Inf(-1), wantErr: true},
	}
	for _, tt := range tests {
		p := Parameters{InitTemp: tt.in}
		err := p.CorrectInitTemp()
		if tt.wantErr {
			assert.ErrorIs(t, err, optimization.ErrInvalidParameter, "init_temp %v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, p.InitTemp)
	}
}

func TestValidate(t *testing.T) {
	p, err := Parameters{MaxIters: 100}.Validate()
	require.NoError(t, err)
	assert.Equal(t, DefaultInitTemp, p.InitTemp)
	assert.Equal(t, ScheduleExponential, p.Schedule)
	assert.Equal(t, 10, p.ProgressInterval)
	assert.Equal(t, 1, p.KeySwitches)

	invalid := map[string]Parameters{
		"no budget":          {},
		"cooling rate one":   {MaxIters: 10, CoolingRate: 1},
		"negative cooling":   {MaxIters: 10, CoolingRate: -0.5},
		"unknown schedule":   {MaxIters: 10, Schedule: "linear"},
		"negative switches":  {MaxIters: 10, KeySwitches: -1},
		"negative interval":  {MaxIters: 10, ProgressInterval: -2},
		"uncorrectable temp": {MaxIters: 10, InitTemp: math.NaN()},
	}
	for name, params := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := params.Validate()
			assert.ErrorIs(t, err, optimization.ErrInvalidParameter)
		})
	}

	p, err = Parameters{MaxIters: 10, CoolingRate: 3, Schedule: ScheduleFast}.Validate()
	require.NoError(t, err, "cooling rate only applies to the exponential schedule")
	assert.Equal(t, ScheduleFast, p.Schedule)
}

func TestParseParameters(t *testing.T) {
	p, err := ParseParameters([]byte("init_temp: -20\nmax_iters: 500\nschedule: boltzmann\nkey_switches: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 20.0, p.InitTemp)
	assert.Equal(t, 500, p.MaxIters)
	assert.Equal(t, ScheduleBoltzmann, p.Schedule)
	assert.Equal(t, 2, p.KeySwitches)

	_, err = ParseParameters([]byte("max_iters: {"))
	assert.ErrorIs(t, err, optimization.ErrConfig)

	_, err = ParseParameters([]byte("max_iters: -1\n"))
	assert.ErrorIs(t, err, optimization.ErrInvalidParameter)
}

func TestOptimizeNotifications(t *testing.T) {
	gen := lineGenerator(t, "abcdefgh", "")
	rec := &recorder{}

	res, err := Optimize(context.Background(), Parameters{InitTemp: 0, MaxIters: 100, Seed: 3},
		&positionEvaluator{target: []rune("hgfedcba")}, gen, true, WithObserver(rec.observer()))
	require.NoError(t, err)

	assert.Equal(t, []int{100}, rec.starts)
	assert.Equal(t, []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, rec.progress)
	assert.Equal(t, 100, res.Iterations)

	require.Equal(t, len(rec.costs), res.Improvements)
	for i := 1; i < len(rec.costs); i++ {
		assert.Less(t, rec.costs[i], rec.costs[i-1], "new best costs strictly decrease")
	}
	if n := len(rec.layouts); n > 0 {
		assert.Equal(t, rec.layouts[n-1], res.Best.Layout)
		assert.Equal(t, rec.costs[n-1], res.Best.Cost())
	}
	assert.LessOrEqual(t, res.Best.Cost(), res.LastAccepted.Cost())
	assert.Less(t, res.Best.Cost(), 36.0, "the start layout costs 36")
}

func TestOptimizeKeepsPermutationsValid(t *testing.T) {
	gen := lineGenerator(t, "abcdefghij", "ej")
	res, err := Optimize(context.Background(),
		Parameters{MaxIters: 300, KeySwitches: 3, Schedule: ScheduleBoltzmann, Seed: 9},
		&positionEvaluator{target: []rune("dcbaehgfij")}, gen, false,
		WithNeighbor(checkingNeighbor{t: t, inner: SwapNeighbor{Switches: 3}}))
	require.NoError(t, err)

	require.NoError(t, res.Best.Permutation.Validate(gen.Len()))
	assert.Equal(t, 'e', []rune(res.Best.Layout)[4])
	assert.Equal(t, 'j', []rune(res.Best.Layout)[9])
}

func TestOptimizeDeterministic(t *testing.T) {
	run := func() (*Result, *recorder) {
		rec := &recorder{}
		gen := lineGenerator(t, "abcdefghij", "")
		res, err := Optimize(context.Background(), Parameters{InitTemp: 5, MaxIters: 400, Seed: 77},
			&positionEvaluator{target: []rune("jihgfedcba")}, gen, false, WithObserver(rec.observer()))
		require.NoError(t, err)
		return res, rec
	}

	res1, rec1 := run()
	res2, rec2 := run()
	assert.Equal(t, res1.Best.Layout, res2.Best.Layout)
	assert.Equal(t, res1.LastAccepted.Layout, res2.LastAccepted.Layout)
	assert.Equal(t, res1.Accepted, res2.Accepted)
	assert.Equal(t, rec1.layouts, rec2.layouts)
}

func TestOptimizeCancellation(t *testing.T) {
	gen := lineGenerator(t, "abcdef", "")
	eval := &positionEvaluator{target: []rune("fedcba")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Optimize(ctx, Parameters{MaxIters: 50}, eval, gen, true)
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	var progress []int
	obs := ObserverFuncs{Progress: func(i int) {
		progress = append(progress, i)
		if i == 20 {
			cancel()
		}
	}}
	res, err := Optimize(ctx, Parameters{MaxIters: 1000, Seed: 1}, eval, gen, true, WithObserver(obs))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{10, 20}, progress)
}

func TestOptimizeEvaluationFailure(t *testing.T) {
	gen := lineGenerator(t, "abcdef", "")
	rec := &recorder{}
	res, err := Optimize(context.Background(), Parameters{MaxIters: 10},
		&positionEvaluator{target: []rune("abcdef"), fail: true}, gen, true, WithObserver(rec.observer()))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, optimization.ErrEvaluation)
	assert.Empty(t, rec.starts)

	_, err = Optimize(context.Background(), Parameters{MaxIters: 10}, nil, gen, true)
	assert.ErrorIs(t, err, optimization.ErrConfig)
}

func TestOptimizeSharedCache(t *testing.T) {
	gen := lineGenerator(t, "abcde", "")
	cache := optimization.NewCache[*evaluation.Result]()
	eval := &positionEvaluator{target: []rune("edcba")}

	_, err := Optimize(context.Background(), Parameters{MaxIters: 200, Seed: 5}, eval, gen, true, WithCache(cache))
	require.NoError(t, err)
	hits, misses := cache.Stats()
	assert.Equal(t, uint64(201), hits+misses)
	assert.Equal(t, uint64(cache.Len()), misses)
	assert.LessOrEqual(t, cache.Len(), 120, "only 5! permutations exist")
}

func TestChannelObserver(t *testing.T) {
	gen := lineGenerator(t, "abcdefgh", "")
	obs := NewChannelObserver(8)

	done := make(chan []Event)
	go func() {
		var events []Event
		for ev := range obs.Events() {
			events = append(events, ev)
		}
		done <- events
	}()

	_, err := Optimize(context.Background(), Parameters{MaxIters: 50, Seed: 2},
		&positionEvaluator{target: []rune("hgfedcba")}, gen, true, WithObserver(obs))
	require.NoError(t, err)
	obs.Close()
	events := <-done

	require.NotEmpty(t, events)
	assert.Equal(t, EventStart, events[0].Kind)
	assert.Equal(t, 50, events[0].MaxIters)

	var progress []int
	for _, ev := range events[1:] {
		switch ev.Kind {
		case EventProgress:
			progress = append(progress, ev.Iteration)
		case EventNewBest:
			assert.NotEmpty(t, ev.Layout)
			assert.NotNil(t, ev.Result)
		default:
			t.Fatalf("unexpected event %s", ev.Kind)
		}
	}
	assert.Equal(t, []int{10, 20, 30, 40, 50}, progress)
}

func TestMultiObserver(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := MultiObserver{a.observer(), b.observer()}
	m.OnStart(5)
	m.OnProgress(1)
	m.OnNewBest("ab", &evaluation.Result{})
	for _, r := range []*recorder{a, b} {
		assert.Equal(t, []int{5}, r.starts)
		assert.Equal(t, []int{1}, r.progress)
		assert.Equal(t, []string{"ab"}, r.layouts)
	}
}

func TestSchedules(t *testing.T) {
	schedules := []Schedule{ExponentialSchedule{Rate: 0.9}, BoltzmannSchedule{}, FastSchedule{}}
	for _, s := range schedules {
		assert.InDelta(t, 100.0, s.Temperature(100, 0), 1e-9, "%T", s)
		prev := s.Temperature(100, 0)
		for k := 1; k < 50; k++ {
			cur := s.Temperature(100, k)
			assert.Less(t, cur, prev, "%T at %d", s, k)
			assert.Greater(t, cur, 0.0)
			prev = cur
		}
	}

	s, err := ScheduleFor(Parameters{Schedule: ScheduleFast})
	require.NoError(t, err)
	assert.Equal(t, FastSchedule{}, s)
	_, err = ScheduleFor(Parameters{Schedule: "geometric"})
	assert.ErrorIs(t, err, optimization.ErrInvalidParameter)
}

func TestMetropolis(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := Metropolis{}
	assert.True(t, m.Accept(10, 5, 0, rng))
	assert.True(t, m.Accept(10, 10, 0, rng))
	assert.False(t, m.Accept(10, 11, 0, rng))
	assert.False(t, m.Accept(10, 1e6, 1e-3, rng))

	accepted := 0
	for i := 0; i < 100; i++ {
		if m.Accept(10, 10+1e-9, 1e6, rng) {
			accepted++
		}
	}
	assert.Equal(t, 100, accepted)
}

func TestSwapNeighbor(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for n := 2; n < 12; n++ {
		p := optimization.Identity(n)
		SwapNeighbor{Switches: 1}.Propose(p, rng)
		require.NoError(t, p.Validate(n))
		assert.False(t, p.Equal(optimization.Identity(n)), "a single swap always moves two slots")
	}

	one := optimization.Permutation{0}
	SwapNeighbor{Switches: 4}.Propose(one, rng)
	assert.Equal(t, optimization.Permutation{0}, one)
}
