package evaluation

import (
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/layoutevo/internal/layout"
)

// Metric names reported in a Result.
const (
	MetricKeyCost     = "key_cost"
	MetricSameFinger  = "same_finger"
	MetricRowJump     = "row_jump"
	MetricSameHand    = "same_hand"
	MetricRedirect    = "redirect"
	MetricHandBalance = "hand_balance"
)

// Weights configures the contribution of each metric. A zero weight disables the metric.
type Weights struct {
	KeyCost     float64 `yaml:"key_cost" json:"key_cost"`
	SameFinger  float64 `yaml:"same_finger" json:"same_finger"`
	RowJump     float64 `yaml:"row_jump" json:"row_jump"`
	SameHand    float64 `yaml:"same_hand" json:"same_hand"`
	Redirect    float64 `yaml:"redirect" json:"redirect"`
	HandBalance float64 `yaml:"hand_balance" json:"hand_balance"`
}

// Parameters configures the reference cost model.
type Parameters struct {
	Metrics Weights `yaml:"metrics" json:"metrics"`
}

// DefaultParameters returns the default metric weights.
func DefaultParameters() Parameters {
	return Parameters{
		Metrics: Weights{
			KeyCost:     1.0,
			SameFinger:  5.0,
			RowJump:     2.0,
			SameHand:    0.5,
			Redirect:    1.0,
			HandBalance: 0.5,
		},
	}
}

// ParseParameters reads model parameters from YAML. Omitted fields keep their defaults.
func ParseParameters(data []byte) (Parameters, error) {
	params := DefaultParameters()
	if err := yaml.Unmarshal(data, &params); err != nil {
		return Parameters{}, fmt.Errorf("could not read evaluation parameters: %w", err)
	}
	if err := params.Validate(); err != nil {
		return Parameters{}, err
	}
	return params, nil
}

// Validate checks that all weights are finite and non-negative.
func (p Parameters) Validate() error {
	w := p.Metrics
	for name, v := range map[string]float64{
		MetricKeyCost:     w.KeyCost,
		MetricSameFinger:  w.SameFinger,
		MetricRowJump:     w.RowJump,
		MetricSameHand:    w.SameHand,
		MetricRedirect:    w.Redirect,
		MetricHandBalance: w.HandBalance,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("metric %s: invalid weight %v", name, v)
		}
	}
	return nil
}

// ErrNilLayout is returned when Evaluate is called without a layout.
var ErrNilLayout = errors.New("nil layout")

// Model is the reference cost model: key effort plus bigram and trigram penalties.
type Model struct {
	ngrams *Ngrams
	params Parameters
}

// NewModel creates a cost model over the given n-grams.
func NewModel(ngrams *Ngrams, params Parameters) (*Model, error) {
	if ngrams == nil {
		return nil, errors.New("evaluation model requires n-gram data")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Model{ngrams: ngrams, params: params}, nil
}

// Parameters returns the model parameters.
func (m *Model) Parameters() Parameters {
	return m.params
}

// Evaluate implements Evaluator.
func (m *Model) Evaluate(l *layout.Layout) (*Result, error) {
	if l == nil {
		return nil, ErrNilLayout
	}

	w := m.params.Metrics
	res := &Result{}
	add := func(name string, weight, cost float64) {
		if weight != 0 {
			res.Metrics = append(res.Metrics, MetricCost{Name: name, Weight: weight, Cost: cost})
		}
	}

	keyCost, left, right := m.unigramCosts(l)
	sameFinger, rowJump, sameHand := m.bigramCosts(l)

	add(MetricKeyCost, w.KeyCost, keyCost)
	add(MetricSameFinger, w.SameFinger, sameFinger)
	add(MetricRowJump, w.RowJump, rowJump)
	add(MetricSameHand, w.SameHand, sameHand)
	add(MetricRedirect, w.Redirect, m.redirectCost(l))
	add(MetricHandBalance, w.HandBalance, math.Abs(left-right))

	return res, nil
}

func (m *Model) unigramCosts(l *layout.Layout) (effort, left, right float64) {
	for _, u := range m.ngrams.Unigrams {
		key, ok := l.KeyFor(u.Chars[0])
		if !ok {
			continue
		}
		effort += u.Freq * key.Effort
		if key.Finger.Hand() == layout.Left {
			left += u.Freq
		} else {
			right += u.Freq
		}
	}
	return effort, left, right
}

func (m *Model) bigramCosts(l *layout.Layout) (sameFinger, rowJump, sameHand float64) {
	for _, b := range m.ngrams.Bigrams {
		k1, ok1 := l.KeyFor(b.Chars[0])
		k2, ok2 := l.KeyFor(b.Chars[1])
		if !ok1 || !ok2 || k1 == k2 {
			continue
		}
		if k1.Finger.Hand() != k2.Finger.Hand() {
			continue
		}
		sameHand += b.Freq
		if k1.Finger == k2.Finger {
			sameFinger += b.Freq
			continue
		}
		if abs(k1.Row-k2.Row) >= 2 {
			rowJump += b.Freq
		}
	}
	return sameFinger, rowJump, sameHand
}

// redirectCost sums trigrams typed by three different fingers of one hand
// that change direction in the middle.
func (m *Model) redirectCost(l *layout.Layout) float64 {
	cost := 0.0
	for _, t := range m.ngrams.Trigrams {
		k1, ok1 := l.KeyFor(t.Chars[0])
		k2, ok2 := l.KeyFor(t.Chars[1])
		k3, ok3 := l.KeyFor(t.Chars[2])
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		f1, f2, f3 := k1.Finger, k2.Finger, k3.Finger
		if f1.Hand() != f2.Hand() || f2.Hand() != f3.Hand() {
			continue
		}
		if f1 == f2 || f2 == f3 || f1 == f3 {
			continue
		}
		if (f2-f1 > 0) != (f3-f2 > 0) {
			cost += t.Freq
		}
	}
	return cost
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
