package layout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLength is returned when a layout text does not cover every key.
	ErrLength = errors.New("layout length does not match keyboard")
	// ErrDuplicate is returned when a layout text places a character twice.
	ErrDuplicate = errors.New("duplicate character in layout")
)

// Layout is an immutable assignment of one character to every key of a keyboard.
type Layout struct {
	keyboard *Keyboard
	chars    []rune
	index    map[rune]int
}

// Text returns the layout as a flat string in key order.
func (l *Layout) Text() string {
	return string(l.chars)
}

// Keyboard returns the geometry the layout is placed on.
func (l *Layout) Keyboard() *Keyboard {
	return l.keyboard
}

// Len returns the number of placed characters.
func (l *Layout) Len() int {
	return len(l.chars)
}

// CharAt returns the character placed on key i.
func (l *Layout) CharAt(i int) rune {
	return l.chars[i]
}

// KeyFor returns the key a character is placed on.
func (l *Layout) KeyFor(r rune) (Key, bool) {
	i, ok := l.index[r]
	if !ok {
		return Key{}, false
	}
	return l.keyboard.Keys[i], true
}

// Plot renders the layout as rows of characters separated by a gap between hands.
func (l *Layout) Plot() string {
	var b strings.Builder
	i := 0
	for row, n := range l.keyboard.rowLens {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < n; col++ {
			if col > 0 {
				b.WriteByte(' ')
				if l.keyboard.Keys[i].Finger.Hand() != l.keyboard.Keys[i-1].Finger.Hand() {
					b.WriteString("  ")
				}
			}
			b.WriteRune(l.chars[i])
			i++
		}
	}
	return b.String()
}

// Generator materializes layouts from text on a fixed keyboard.
type Generator struct {
	keyboard *Keyboard
}

// NewGenerator creates a layout generator for the given keyboard.
func NewGenerator(kb *Keyboard) *Generator {
	return &Generator{keyboard: kb}
}

// Keyboard returns the generator's keyboard.
func (g *Generator) Keyboard() *Keyboard {
	return g.keyboard
}

// Generate places the characters of text on the keyboard in key order.
func (g *Generator) Generate(text string) (*Layout, error) {
	chars := []rune(text)
	if len(chars) != g.keyboard.Size() {
		return nil, fmt.Errorf("%w: got %d characters for %d keys", ErrLength, len(chars), g.keyboard.Size())
	}

	index := make(map[rune]int, len(chars))
	for i, r := range chars {
		if j, ok := index[r]; ok {
			return nil, fmt.Errorf("%w: %q at positions %d and %d", ErrDuplicate, r, j, i)
		}
		index[r] = i
	}

	return &Layout{keyboard: g.keyboard, chars: chars, index: index}, nil
}
