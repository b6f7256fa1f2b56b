package optimization

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/layoutevo/internal/layout"
)

const qwerty = "qwertyuiopasdfghjkl;zxcvbnm,./"

// lineGenerator returns a materializer over a single row of n keys.
func lineGenerator(n int) *layout.Generator {
	efforts := make([]float64, n)
	fingers := make([]int, n)
	for i := range efforts {
		efforts[i] = 1
		fingers[i] = i % layout.NumFingers
	}
	kb, err := layout.NewKeyboard(layout.KeyboardSpec{
		Efforts: [][]float64{efforts},
		Fingers: [][]int{fingers},
	})
	if err != nil {
		panic(err)
	}
	return layout.NewGenerator(kb)
}

// assertPermutation checks that p is a bijection over 0..n-1.
func assertPermutation(t *testing.T, p Permutation, n int) {
	t.Helper()
	require.NoError(t, p.Validate(n), "permutation %v", p)
}
