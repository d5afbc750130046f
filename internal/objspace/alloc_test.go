package objspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewObjAllocatesDistinctSlots(t *testing.T) {
	os := newTestSpace(newTestGraph())
	cache := NewRactorCache()

	seen := make(map[Ref]bool)
	for i := 0; i < 8; i++ {
		r := allocOne(os, cache, true)
		require.True(t, r.Valid())
		require.False(t, seen[r])
		seen[r] = true
		require.Equal(t, KindObject, r.Page.slots[r.Idx].kind)
	}
	require.EqualValues(t, 8, os.Stat()["total_allocated_objects"])
}

func TestNewObjGrowsHeapWhenPageExhausted(t *testing.T) {
	os := newTestSpace(newTestGraph())
	cache := NewRactorCache()

	for i := 0; i < 8; i++ {
		allocOne(os, cache, true)
	}
	require.EqualValues(t, 1, os.totalPages())

	allocOne(os, cache, true) // exhausts the first page's 8 slots, grows
	require.EqualValues(t, 2, os.totalPages())
}

func TestNewObjWbUnprotectedTracksShadyCount(t *testing.T) {
	os := newTestSpace(newTestGraph())
	cache := NewRactorCache()

	r := allocOne(os, cache, false)
	require.True(t, r.Page.wbUnprotected.Test(int(r.Idx)))
	require.EqualValues(t, 1, os.uncollectibleWbUnprotectedObjects)
}

func TestNewObjOversizeRequestPanics(t *testing.T) {
	os := newTestSpace(newTestGraph())
	cache := NewRactorCache()
	oversize := classSize(NumSizeClasses-1) + 1
	require.Panics(t, func() {
		os.NewObj(cache, &Type{Name: "big"}, 0, 0, 0, true, oversize)
	})
}

func TestDrainCacheReturnsFreeSlotsToPage(t *testing.T) {
	os := newTestSpace(newTestGraph())
	cache := NewRactorCache()
	allocOne(os, cache, true)
	p := cache.classes[0].usingPage
	require.NotNil(t, p)
	freeBefore := len(cache.classes[0].free)
	require.True(t, freeBefore > 0)

	os.DrainCache(cache)
	require.Nil(t, cache.classes[0].usingPage)
	require.Equal(t, freeBefore, p.freeSlots)
}
