package objspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassForExactBoundaries(t *testing.T) {
	require.Equal(t, 0, ClassFor(1))
	require.Equal(t, 0, ClassFor(BaseSlotSize))
	require.Equal(t, 1, ClassFor(BaseSlotSize+1))
	require.Equal(t, 1, ClassFor(2*BaseSlotSize))
	require.Equal(t, 2, ClassFor(2*BaseSlotSize+1))
}

func TestClassForZeroIsClassZero(t *testing.T) {
	require.Equal(t, 0, ClassFor(0))
}

func TestClassForOverflowPanics(t *testing.T) {
	largest := classSize(NumSizeClasses - 1)
	require.Panics(t, func() { ClassFor(largest + 1) })
}

func TestSizeAllocatable(t *testing.T) {
	require.True(t, SizeAllocatable(classSize(NumSizeClasses-1)))
	require.False(t, SizeAllocatable(classSize(NumSizeClasses-1)+1))
}

func TestClassSizesDoubleEachStep(t *testing.T) {
	sizes := ClassSizes()
	for i := 1; i < NumSizeClasses; i++ {
		require.Equal(t, sizes[i-1]*2, sizes[i])
	}
}
