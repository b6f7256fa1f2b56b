// Package layout models keyboard geometry and the character layouts placed on it.
package layout

import (
	"errors"
	"fmt"
)

// Finger identifies the finger that presses a key.
// Left hand fingers are 0-3 (pinky to index), right hand fingers are 4-7 (index to pinky).
type Finger int

const (
	LeftPinky Finger = iota
	LeftRing
	LeftMiddle
	LeftIndex
	RightIndex
	RightMiddle
	RightRing
	RightPinky
)

// NumFingers is the number of fingers used by the geometry model.
const NumFingers = 8

// Hand identifies a hand.
type Hand int

const (
	Left Hand = iota
	Right
)

// Hand returns the hand a finger belongs to.
func (f Finger) Hand() Hand {
	if f <= LeftIndex {
		return Left
	}
	return Right
}

func (f Finger) String() string {
	names := [...]string{"LP", "LR", "LM", "LI", "RI", "RM", "RR", "RP"}
	if f < 0 || int(f) >= len(names) {
		return fmt.Sprintf("Finger(%d)", int(f))
	}
	return names[f]
}

// Key is a physical key position.
type Key struct {
	Row    int
	Col    int
	Finger Finger
	// Effort is the relative cost of pressing the key.
	Effort float64
}

// KeyboardSpec is the serialized form of a keyboard geometry.
type KeyboardSpec struct {
	// Efforts holds one row of key efforts per keyboard row.
	Efforts [][]float64 `yaml:"efforts" json:"efforts"`
	// Fingers holds one row of finger indices per keyboard row.
	Fingers [][]int `yaml:"fingers" json:"fingers"`
}

// Keyboard is an ordered set of keys. The order of Keys is the order in which
// characters of a layout text are placed.
type Keyboard struct {
	Keys    []Key
	rowLens []int
}

var (
	// ErrGeometry is returned when a keyboard specification is inconsistent.
	ErrGeometry = errors.New("invalid keyboard geometry")
)

// NewKeyboard builds a keyboard from its specification.
func NewKeyboard(spec KeyboardSpec) (*Keyboard, error) {
	if len(spec.Efforts) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrGeometry)
	}
	if len(spec.Efforts) != len(spec.Fingers) {
		return nil, fmt.Errorf("%w: %d effort rows but %d finger rows", ErrGeometry, len(spec.Efforts), len(spec.Fingers))
	}

	kb := &Keyboard{}
	for row := range spec.Efforts {
		efforts, fingers := spec.Efforts[row], spec.Fingers[row]
		if len(efforts) != len(fingers) {
			return nil, fmt.Errorf("%w: row %d has %d efforts but %d fingers", ErrGeometry, row, len(efforts), len(fingers))
		}
		for col := range efforts {
			f := fingers[col]
			if f < 0 || f >= NumFingers {
				return nil, fmt.Errorf("%w: row %d col %d has finger %d", ErrGeometry, row, col, f)
			}
			if efforts[col] < 0 {
				return nil, fmt.Errorf("%w: row %d col %d has negative effort", ErrGeometry, row, col)
			}
			kb.Keys = append(kb.Keys, Key{Row: row, Col: col, Finger: Finger(f), Effort: efforts[col]})
		}
		kb.rowLens = append(kb.rowLens, len(efforts))
	}

	return kb, nil
}

// DefaultKeyboardSpec returns a 3x10 main block with a common effort grid.
func DefaultKeyboardSpec() KeyboardSpec {
	fingerRow := []int{0, 1, 2, 3, 3, 4, 4, 5, 6, 7}
	return KeyboardSpec{
		Efforts: [][]float64{
			{3.0, 2.4, 2.0, 2.2, 3.2, 3.2, 2.2, 2.0, 2.4, 3.0},
			{1.6, 1.3, 1.1, 1.0, 2.9, 2.9, 1.0, 1.1, 1.3, 1.6},
			{3.2, 2.6, 2.3, 1.6, 3.0, 3.0, 1.6, 2.3, 2.6, 3.2},
		},
		Fingers: [][]int{fingerRow, fingerRow, fingerRow},
	}
}

// DefaultKeyboard returns the keyboard built from DefaultKeyboardSpec.
func DefaultKeyboard() *Keyboard {
	kb, err := NewKeyboard(DefaultKeyboardSpec())
	if err != nil {
		panic(err)
	}
	return kb
}

// Size returns the number of keys.
func (kb *Keyboard) Size() int {
	return len(kb.Keys)
}

// RowLengths returns the number of keys in each row.
func (kb *Keyboard) RowLengths() []int {
	return append([]int(nil), kb.rowLens...)
}
