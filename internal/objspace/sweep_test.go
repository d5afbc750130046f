package objspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSweepFreesUnmarkedRetainsMarked(t *testing.T) {
	g := newTestGraph()
	os := newTestSpace(g)
	cache := NewRactorCache()

	live := allocOne(os, cache, true)
	dead := allocOne(os, cache, true)
	g.roots = []Ref{live}

	os.DrainCache(cache)
	os.StartMinor()
	for os.SweepStep() {
	}

	require.Equal(t, KindObject, live.Page.slots[live.Idx].kind)
	require.Equal(t, KindFree, dead.Page.slots[dead.Idx].kind)
	require.True(t, os.VerifySweepConservation())
}

func TestSweepSendsFinalizableObjectsToZombie(t *testing.T) {
	g := newTestGraph()
	os := newTestSpace(g)
	cache := NewRactorCache()

	r := allocOne(os, cache, true)
	os.DefineFinalizer(r, func(any) {}, nil)
	g.roots = nil // unreachable

	os.DrainCache(cache)
	os.StartMinor()
	for os.SweepStep() {
	}

	require.Equal(t, KindZombie, r.Page.slots[r.Idx].kind)
	ran := os.RunFinalizers()
	require.Equal(t, 1, ran)
	require.Equal(t, KindFree, r.Page.slots[r.Idx].kind)
}

func TestEmptyPageReclaimedIntoGlobalPool(t *testing.T) {
	g := newTestGraph()
	os := newTestSpace(g)
	cache := NewRactorCache()

	for i := 0; i < 8; i++ {
		allocOne(os, cache, true)
	}
	os.DrainCache(cache)
	g.roots = nil

	os.StartMinor()
	for os.SweepStep() {
	}

	require.EqualValues(t, 0, os.totalPages())
	reused := os.AcquireEmptyPage(0)
	require.NotNil(t, reused)
}
