package evaluation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/layoutevo/internal/layout"
)

const qwerty = "qwertyuiopasdfghjkl;zxcvbnm,./"

func TestParseFrequencies(t *testing.T) {
	input := "10 ab\n\n 5 cd\n3 a \n2 ab\n"
	counts, err := ParseFrequencies(strings.NewReader(input), 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"ab": 12, "cd": 5, "a ": 3}, counts)

	counts, err = ParseFrequencies(strings.NewReader("7\tab\n4 \t cd\n2  e\n"), 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"ab": 7, "cd": 4, " e": 2}, counts)

	tests := []struct {
		name  string
		input string
	}{
		{"missing separator", "10\n"},
		{"bad count", "x ab\n"},
		{"negative count", "-1 ab\n"},
		{"wrong order", "1 abc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrequencies(strings.NewReader(tt.input), 2)
			assert.Error(t, err)
		})
	}
}

func TestNgramsFromText(t *testing.T) {
	ng := NgramsFromText("Aab ab")

	require.Len(t, ng.Unigrams, 2)
	assert.Equal(t, 'a', ng.Unigrams[0].Chars[0])
	assert.InDelta(t, 0.6, ng.Unigrams[0].Freq, 1e-12)
	assert.InDelta(t, 0.4, ng.Unigrams[1].Freq, 1e-12)

	// "aa", "ab", "ab" -> ab first
	require.Len(t, ng.Bigrams, 2)
	assert.Equal(t, "ab", string(ng.Bigrams[0].Chars))
	assert.InDelta(t, 2.0/3.0, ng.Bigrams[0].Freq, 1e-12)

	require.Len(t, ng.Trigrams, 1)
	assert.Equal(t, "aab", string(ng.Trigrams[0].Chars))
	assert.InDelta(t, 1.0, ng.Trigrams[0].Freq, 1e-12)
}

func TestParseParameters(t *testing.T) {
	params, err := ParseParameters([]byte("metrics:\n  same_finger: 9\n"))
	require.NoError(t, err)
	assert.Equal(t, 9.0, params.Metrics.SameFinger)
	assert.Equal(t, DefaultParameters().Metrics.KeyCost, params.Metrics.KeyCost)

	_, err = ParseParameters([]byte("metrics:\n  key_cost: -1\n"))
	assert.Error(t, err)

	_, err = ParseParameters([]byte("metrics: ["))
	assert.Error(t, err)
}

func TestModelEvaluate(t *testing.T) {
	gen := layout.NewGenerator(layout.DefaultKeyboard())
	model, err := NewModel(NgramsFromText(DefaultCorpus), DefaultParameters())
	require.NoError(t, err)

	l, err := gen.Generate(qwerty)
	require.NoError(t, err)

	res, err := model.Evaluate(l)
	require.NoError(t, err)
	require.Len(t, res.Metrics, 6)
	assert.Greater(t, res.TotalCost(), 0.0)
	assert.Contains(t, res.String(), MetricSameFinger)
	assert.Contains(t, res.String(), "total")

	again, err := model.Evaluate(l)
	require.NoError(t, err)
	assert.Equal(t, res.TotalCost(), again.TotalCost(), "evaluation must be deterministic")

	_, err = model.Evaluate(nil)
	assert.ErrorIs(t, err, ErrNilLayout)
}

func TestModelPrefersHomeRow(t *testing.T) {
	gen := layout.NewGenerator(layout.DefaultKeyboard())
	ng := NewNgrams(map[string]float64{"e": 10, "q": 1}, nil, nil)
	model, err := NewModel(ng, Parameters{Metrics: Weights{KeyCost: 1}})
	require.NoError(t, err)

	// 'e' on the home row index key versus the top row.
	home, err := gen.Generate("qwfrtyuiopasdeghjkl;zxcvbnm,./")
	require.NoError(t, err)
	top, err := gen.Generate(qwerty)
	require.NoError(t, err)

	homeRes, err := model.Evaluate(home)
	require.NoError(t, err)
	topRes, err := model.Evaluate(top)
	require.NoError(t, err)
	assert.Less(t, homeRes.TotalCost(), topRes.TotalCost())
}

func TestSameFingerBigram(t *testing.T) {
	gen := layout.NewGenerator(layout.DefaultKeyboard())
	ng := NewNgrams(nil, map[string]float64{"ed": 1}, nil)
	model, err := NewModel(ng, Parameters{Metrics: Weights{SameFinger: 1, SameHand: 1}})
	require.NoError(t, err)

	// In qwerty 'e' and 'd' share the left middle finger.
	l, err := gen.Generate(qwerty)
	require.NoError(t, err)
	res, err := model.Evaluate(l)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.TotalCost(), 1e-12)
}

func TestNewModelRequiresNgrams(t *testing.T) {
	_, err := NewModel(nil, DefaultParameters())
	assert.Error(t, err)
}
