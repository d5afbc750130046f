package darray

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNilArrayIsEmpty(t *testing.T) {
	var a *Array[int]
	require.Equal(t, 0, a.Len())
	require.Equal(t, 0, a.Cap())
}

func TestAppendGrows(t *testing.T) {
	a := New[int]()
	for i := 0; i < 10; i++ {
		a.Append(i)
	}
	require.Equal(t, 10, a.Len())
	for i := 0; i < 10; i++ {
		require.Equal(t, i, a.Get(i))
	}
}

func TestAppendDoublesCapacity(t *testing.T) {
	a := New[int]()
	a.Append(1)
	require.Equal(t, 1, a.Cap())
	a.Append(2)
	require.Equal(t, 2, a.Cap())
	a.Append(3)
	require.Equal(t, 4, a.Cap())
}

func TestRemoveUnordered(t *testing.T) {
	a := New[int]()
	a.AppendSlice([]int{1, 2, 3, 4})
	a.RemoveUnordered(1)
	require.Equal(t, 3, a.Len())
	require.Equal(t, 4, a.Get(1))
}

func TestClearRetainsCapacity(t *testing.T) {
	a := New[int]()
	a.AppendSlice([]int{1, 2, 3})
	capBefore := a.Cap()
	a.Clear()
	require.Equal(t, 0, a.Len())
	require.Equal(t, capBefore, a.Cap())
}

func TestOverflowErrorMessage(t *testing.T) {
	err := overflowError{requested: 42}
	require.Contains(t, err.Error(), "42")
}
