package optimization

import (
	"math/rand"
	"strings"

	"github.com/copyleftdev/layoutevo/internal/layout"
)

// Materializer turns layout text into a Layout.
type Materializer interface {
	Generate(text string) (*layout.Layout, error)
}

// LayoutGenerator maps permutations of the movable characters of a base
// layout onto complete layouts. Fixed characters keep their base position.
type LayoutGenerator struct {
	base           []rune
	slots          []rune
	slotPositions  []int
	slotIndex      map[rune]int
	fixed          []rune
	fixedPositions []int
	layouts        Materializer
}

// NewLayoutGenerator validates that baseLayout partitions exactly into the
// fixed characters and the slot characters. An empty slots string selects
// every base character that is not fixed, in base order.
func NewLayoutGenerator(slots, fixedCharacters, baseLayout string, layouts Materializer) (*LayoutGenerator, error) {
	fail := func(format string, args ...interface{}) (*LayoutGenerator, error) {
		return nil, NewErrorf(ErrConfig, format, args...).WithComponent("layout generator")
	}

	if layouts == nil {
		return fail("no layout materializer")
	}

	base := []rune(baseLayout)
	basePos := make(map[rune]int, len(base))
	for i, r := range base {
		if j, ok := basePos[r]; ok {
			return fail("base layout repeats %q at positions %d and %d", r, j, i)
		}
		basePos[r] = i
	}

	fixedSet := make(map[rune]bool)
	for _, r := range fixedCharacters {
		if fixedSet[r] {
			return fail("fixed character %q listed twice", r)
		}
		if _, ok := basePos[r]; !ok {
			return fail("fixed character %q is not part of the base layout", r)
		}
		fixedSet[r] = true
	}

	slotSet := make(map[rune]bool)
	if slots == "" {
		for _, r := range base {
			if !fixedSet[r] {
				slotSet[r] = true
			}
		}
	} else {
		for _, r := range slots {
			if fixedSet[r] {
				return fail("character %q is both fixed and movable", r)
			}
			if slotSet[r] {
				return fail("movable character %q listed twice", r)
			}
			if _, ok := basePos[r]; !ok {
				return fail("movable character %q is not part of the base layout", r)
			}
			slotSet[r] = true
		}
	}
	if len(slotSet) == 0 {
		return fail("no movable characters")
	}

	g := &LayoutGenerator{
		base:      base,
		slotIndex: make(map[rune]int, len(slotSet)),
		layouts:   layouts,
	}
	for i, r := range base {
		switch {
		case fixedSet[r]:
			g.fixed = append(g.fixed, r)
			g.fixedPositions = append(g.fixedPositions, i)
		case slotSet[r]:
			g.slotIndex[r] = len(g.slots)
			g.slots = append(g.slots, r)
			g.slotPositions = append(g.slotPositions, i)
		default:
			return fail("base character %q is neither fixed nor movable", r)
		}
	}

	if _, err := layouts.Generate(baseLayout); err != nil {
		return nil, WrapError(ErrConfig, err, "base layout does not fit the keyboard").WithComponent("layout generator")
	}

	return g, nil
}

// Len returns the number of movable slots, which is the permutation length.
func (g *LayoutGenerator) Len() int {
	return len(g.slots)
}

// Slots returns the movable characters in base order.
func (g *LayoutGenerator) Slots() string {
	return string(g.slots)
}

// FixedCharacters returns the fixed characters in base order.
func (g *LayoutGenerator) FixedCharacters() string {
	return string(g.fixed)
}

// BaseLayout returns the layout text the generator was built from.
func (g *LayoutGenerator) BaseLayout() string {
	return string(g.base)
}

// Identity returns the permutation that reproduces the base layout.
func (g *LayoutGenerator) Identity() Permutation {
	return Identity(len(g.slots))
}

// Random returns a random permutation of the movable slots.
func (g *LayoutGenerator) Random(rng *rand.Rand) Permutation {
	return RandomPermutation(len(g.slots), rng)
}

// GenerateString places the movable characters according to p and returns the layout text.
func (g *LayoutGenerator) GenerateString(p Permutation) (string, error) {
	if err := p.Validate(len(g.slots)); err != nil {
		return "", err
	}
	out := make([]rune, len(g.base))
	for i, pos := range g.fixedPositions {
		out[pos] = g.fixed[i]
	}
	for i, pos := range g.slotPositions {
		out[pos] = g.slots[p[i]]
	}
	return string(out), nil
}

// GenerateLayout materializes the layout described by p.
func (g *LayoutGenerator) GenerateLayout(p Permutation) (*layout.Layout, error) {
	text, err := g.GenerateString(p)
	if err != nil {
		return nil, err
	}
	l, err := g.layouts.Generate(text)
	if err != nil {
		// Every valid permutation of a validated base layout materializes.
		return nil, WrapError(ErrInvalidPermutation, err, "could not materialize layout")
	}
	return l, nil
}

// PermutationFor returns the permutation that produces the given layout text.
func (g *LayoutGenerator) PermutationFor(text string) (Permutation, error) {
	fail := func(format string, args ...interface{}) (Permutation, error) {
		return nil, NewErrorf(ErrParse, format, args...).WithComponent("layout generator")
	}

	chars := []rune(text)
	if len(chars) != len(g.base) {
		return fail("layout has %d characters, want %d", len(chars), len(g.base))
	}
	for i, pos := range g.fixedPositions {
		if chars[pos] != g.fixed[i] {
			return fail("fixed character %q must stay at position %d", g.fixed[i], pos)
		}
	}

	p := make(Permutation, len(g.slots))
	seen := make([]bool, len(g.slots))
	for i, pos := range g.slotPositions {
		idx, ok := g.slotIndex[chars[pos]]
		if !ok {
			return fail("character %q at position %d is not movable", chars[pos], pos)
		}
		if seen[idx] {
			return fail("character %q appears more than once", chars[pos])
		}
		seen[idx] = true
		p[i] = idx
	}
	return p, nil
}

// Describe returns a short summary of the slot configuration.
func (g *LayoutGenerator) Describe() string {
	var b strings.Builder
	b.WriteString("movable=")
	b.WriteString(string(g.slots))
	b.WriteString(" fixed=")
	b.WriteString(string(g.fixed))
	return b.String()
}
