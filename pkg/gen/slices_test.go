package gen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeleteFromSliceUnordered(t *testing.T) {
	a := []int{1, 2, 3}
	a = DeleteFromSliceUnordered(a, 0)
	require.ElementsMatch(t, []int{2, 3}, a)

	a = []int{1}
	a = DeleteFromSliceUnordered(a, 0)
	require.Empty(t, a)
}

func TestClamp(t *testing.T) {
	require.Equal(t, 0.0, Clamp(-1.0, 0.0, 1.0))
	require.Equal(t, 1.0, Clamp(2.0, 0.0, 1.0))
	require.Equal(t, 0.5, Clamp(0.5, 0.0, 1.0))
}
