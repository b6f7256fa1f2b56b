package optimization

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/layoutevo/internal/layout"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(ErrConfig, "bad layout").WithComponent("layout generator").WithOperation("new")
	assert.Equal(t, "layout generator: new: configuration error: bad layout", err.Error())
	assert.True(t, errors.Is(err, ErrConfig))
	assert.False(t, errors.Is(err, ErrParse))

	inner := errors.New("boom")
	wrapped := WrapError(ErrEvaluation, inner, "scoring failed")
	assert.Equal(t, "evaluation failed: scoring failed: boom", wrapped.Error())
	assert.True(t, errors.Is(wrapped, ErrEvaluation))
	assert.True(t, errors.Is(wrapped, inner))

	outer := fmt.Errorf("step: %w", wrapped)
	e, ok := IsOptimizationError(outer)
	require.True(t, ok)
	assert.Same(t, wrapped, e)

	assert.Nil(t, WrapError(ErrEvaluation, nil, "nothing"))
	_, ok = IsOptimizationError(inner)
	assert.False(t, ok)

	var nilErr *Error
	assert.Equal(t, "<nil>", nilErr.Error())
	assert.Equal(t, "invalid parameter", NewError(ErrInvalidParameter, "").Error())
}

func TestPermutationValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Permutation
		n       int
		wantErr bool
	}{
		{"identity", Identity(4), 4, false},
		{"shuffled", Permutation{2, 0, 3, 1}, 4, false},
		{"too short", Permutation{0, 1, 2}, 4, true},
		{"too long", Permutation{0, 1, 2, 3, 4}, 4, true},
		{"duplicate", Permutation{0, 1, 1, 3}, 4, true},
		{"negative", Permutation{0, -1, 2, 3}, 4, true},
		{"out of range", Permutation{0, 1, 2, 4}, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate(tt.n)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPermutation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRandomPermutationIsBijection(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 1; n < 40; n++ {
		assertPermutation(t, RandomPermutation(n, rng), n)
	}
}

func TestPermutationHelpers(t *testing.T) {
	p := Permutation{3, 1, 0, 2}
	q := p.Clone()
	q[0] = 9
	assert.Equal(t, 3, p[0])
	assert.True(t, p.Equal(Permutation{3, 1, 0, 2}))
	assert.False(t, p.Equal(q))
	assert.False(t, p.Equal(Permutation{3, 1, 0}))
	assert.Equal(t, "3,1,0,2", p.Key())
	assert.NotEqual(t, Permutation{1, 12}.Key(), Permutation{11, 2}.Key())
}

func TestNewLayoutGeneratorValidation(t *testing.T) {
	gen := lineGenerator(6)

	tests := []struct {
		name  string
		slots string
		fixed string
		base  string
	}{
		{"character both fixed and movable", "abcd", "de", "abcdef"},
		{"duplicate base character", "", "", "abcdea"},
		{"fixed character missing from base", "", "z", "abcdef"},
		{"fixed character listed twice", "", "aa", "abcdef"},
		{"movable character missing from base", "abcdz", "f", "abcdef"},
		{"movable character listed twice", "abcdd", "f", "abcdef"},
		{"base character unaccounted for", "abcd", "f", "abcdef"},
		{"nothing movable", "", "abcdef", "abcdef"},
		{"base does not fit keyboard", "", "", "abcde"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewLayoutGenerator(tt.slots, tt.fixed, tt.base, gen)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}

	_, err := NewLayoutGenerator("", "", "abcdef", nil)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestLayoutGenerator(t *testing.T) {
	g, err := NewLayoutGenerator("", ",./;", qwerty, layout.NewGenerator(layout.DefaultKeyboard()))
	require.NoError(t, err)

	assert.Equal(t, 26, g.Len())
	assert.Equal(t, ";,./", g.FixedCharacters())
	assert.Equal(t, "qwertyuiopasdfghjklzxcvbnm", g.Slots())
	assert.Equal(t, qwerty, g.BaseLayout())
	assert.Contains(t, g.Describe(), "fixed=;,./")

	text, err := g.GenerateString(g.Identity())
	require.NoError(t, err)
	assert.Equal(t, qwerty, text)

	// Swapping the first two slots swaps q and w only.
	p := g.Identity()
	p[0], p[1] = p[1], p[0]
	text, err = g.GenerateString(p)
	require.NoError(t, err)
	assert.Equal(t, "wqertyuiopasdfghjkl;zxcvbnm,./", text)

	l, err := g.GenerateLayout(p)
	require.NoError(t, err)
	assert.Equal(t, text, l.Text())

	_, err = g.GenerateString(Permutation{0, 1})
	assert.ErrorIs(t, err, ErrInvalidPermutation)
	_, err = g.GenerateLayout(append(g.Identity()[:25], 0))
	assert.ErrorIs(t, err, ErrInvalidPermutation)
}

func TestLayoutGeneratorExplicitSlots(t *testing.T) {
	g, err := NewLayoutGenerator("fedc", "ab", "abcdef", lineGenerator(6))
	require.NoError(t, err)
	assert.Equal(t, "cdef", g.Slots(), "slots follow base order")
	assert.Equal(t, "ab", g.FixedCharacters())

	text, err := g.GenerateString(Permutation{3, 2, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, "abfedc", text)
}

func TestPermutationForRoundTrip(t *testing.T) {
	g, err := NewLayoutGenerator("", ",./;", qwerty, layout.NewGenerator(layout.DefaultKeyboard()))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		text, err := g.GenerateString(g.Random(rng))
		require.NoError(t, err)

		p, err := g.PermutationFor(text)
		require.NoError(t, err)
		assertPermutation(t, p, g.Len())

		again, err := g.GenerateString(p)
		require.NoError(t, err)
		assert.Equal(t, text, again)

		p2, err := g.PermutationFor(again)
		require.NoError(t, err)
		assert.True(t, p.Equal(p2))
	}
}

func TestPermutationForRejectsMalformedText(t *testing.T) {
	g, err := NewLayoutGenerator("", ",./;", qwerty, layout.NewGenerator(layout.DefaultKeyboard()))
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
	}{
		{"too short", "qwerty"},
		{"fixed character moved", "qwertyuiopasdfghjkl,zxcvbnm;./"},
		{"unknown character", "!wertyuiopasdfghjkl;zxcvbnm,./"},
		{"repeated movable character", "qqertyuiopasdfghjkl;zxcvbnm,./"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.PermutationFor(tt.text)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestCacheGetOrCompute(t *testing.T) {
	c := NewCache[float64]()
	calls := map[string]int{}
	compute := func(p Permutation) func() (float64, error) {
		return func() (float64, error) {
			calls[p.Key()]++
			return float64(p[0]), nil
		}
	}

	rng := rand.New(rand.NewSource(3))
	perms := make([]Permutation, 20)
	for i := range perms {
		perms[i] = RandomPermutation(5, rng)
	}

	first := make([]float64, len(perms))
	for i, p := range perms {
		v, _, err := c.GetOrCompute(p, compute(p))
		require.NoError(t, err)
		first[i] = v
	}
	for i, p := range perms {
		// A fresh slice with the same values must hit the same entry.
		v, cached, err := c.GetOrCompute(p.Clone(), compute(p))
		require.NoError(t, err)
		assert.True(t, cached)
		assert.Equal(t, first[i], v)
	}
	for key, n := range calls {
		assert.Equal(t, 1, n, "compute called more than once for %s", key)
	}
	assert.Equal(t, len(calls), c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, uint64(len(calls)), misses)
	assert.Equal(t, uint64(2*len(perms)-len(calls)), hits)

	v, ok := c.Get(perms[0])
	assert.True(t, ok)
	assert.Equal(t, first[0], v)
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	c := NewCache[int]()
	p := Identity(3)
	boom := errors.New("boom")

	_, cached, err := c.GetOrCompute(p, func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, cached)
	assert.Equal(t, 0, c.Len())

	v, cached, err := c.GetOrCompute(p, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 7, v)
}

func TestBestTracker(t *testing.T) {
	var b BestTracker
	_, _, ok := b.Best()
	assert.False(t, ok)

	p := Permutation{0, 1, 2}
	assert.True(t, b.Offer(-5, p))
	p[0] = 2 // the tracker holds its own copy

	fit, best, ok := b.Best()
	require.True(t, ok)
	assert.Equal(t, -5.0, fit)
	assert.Equal(t, Permutation{0, 1, 2}, best)

	assert.False(t, b.Offer(-5, Permutation{2, 1, 0}), "equal fitness keeps the earliest record")
	assert.False(t, b.Offer(-6, Permutation{2, 1, 0}))
	assert.False(t, b.Offer(math.NaN(), Permutation{2, 1, 0}))
	assert.True(t, b.Offer(-4, Permutation{1, 0, 2}))

	fit, best, _ = b.Best()
	assert.Equal(t, -4.0, fit)
	assert.Equal(t, Permutation{1, 0, 2}, best)
}
