package objspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPageThreadsFreelist(t *testing.T) {
	p := newPage(1, 0, 4)
	require.True(t, p.Empty())
	require.False(t, p.Full())

	var got []uint32
	for {
		idx, ok := p.PopFree()
		if !ok {
			break
		}
		got = append(got, idx)
	}
	require.Equal(t, []uint32{0, 1, 2, 3}, got)
	require.True(t, p.Full())
}

func TestPagePushFreeReturnsToHead(t *testing.T) {
	p := newPage(1, 0, 2)
	idx0, _ := p.PopFree()
	p.PushFree(idx0)
	idx, ok := p.PopFree()
	require.True(t, ok)
	require.Equal(t, idx0, idx)
}

func TestAgeIncrementSaturatesAtOld(t *testing.T) {
	a := newAge2(1)
	require.False(t, a.Increment(0)) // 0 -> 1
	require.False(t, a.Increment(0)) // 1 -> 2
	require.True(t, a.Increment(0))  // 2 -> 3 (OLD)
	require.Equal(t, AgeOld, a.Get(0))
	require.False(t, a.Increment(0)) // already OLD, no further signal
	require.Equal(t, AgeOld, a.Get(0))
}

func TestBitsetPopCountAndAnd(t *testing.T) {
	a := newBitset(8)
	b := newBitset(8)
	a.Set(1)
	a.Set(3)
	b.Set(3)
	b.Set(5)
	require.Equal(t, 2, a.PopCount())

	both := andBitsets(&a, &b)
	require.Equal(t, 1, both.PopCount())
	require.True(t, both.Test(3))
	require.False(t, both.Test(1))
}
