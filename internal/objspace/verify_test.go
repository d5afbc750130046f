package objspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyInvariantsCleanSpaceHasNoFailures(t *testing.T) {
	g := newTestGraph()
	os := newTestSpace(g)
	cache := NewRactorCache()
	root := allocOne(os, cache, true)
	g.roots = []Ref{root}

	os.StartMinor()
	require.Empty(t, os.VerifyInvariants())
}

func TestVerifyInvariantsCatchesUncollectibleWithoutOldAge(t *testing.T) {
	os := newTestSpace(newTestGraph())
	cache := NewRactorCache()
	r := allocOne(os, cache, true)
	r.Page.uncollectible.Set(int(r.Idx)) // age still 0, inconsistent

	failures := os.VerifyInvariants()
	require.NotEmpty(t, failures)
}

func TestVerifyGenerationalSoundnessCatchesUnrememberedOldToYoungEdge(t *testing.T) {
	g := newTestGraph()
	os := newTestSpace(g)
	cache := NewRactorCache()

	old := allocOne(os, cache, true)
	young := allocOne(os, cache, true)
	old.Page.uncollectible.Set(int(old.Idx))
	g.link(old, young)

	failures := os.VerifyGenerationalSoundness()
	require.NotEmpty(t, failures)
}

func TestVerifyGenerationalSoundnessPassesAfterWriteBarrier(t *testing.T) {
	g := newTestGraph()
	os := newTestSpace(g)
	cache := NewRactorCache()

	old := allocOne(os, cache, true)
	young := allocOne(os, cache, true)
	old.Page.uncollectible.Set(int(old.Idx))
	g.link(old, young)
	os.WriteBarrier(old, young)

	require.Empty(t, os.VerifyGenerationalSoundness())
}

func TestPageChecksumChangesWhenBitmapChanges(t *testing.T) {
	os := newTestSpace(newTestGraph())
	cache := NewRactorCache()
	r := allocOne(os, cache, true)

	before := PageChecksum(r.Page)
	r.Page.mark.Set(int(r.Idx))
	after := PageChecksum(r.Page)
	require.NotEqual(t, before, after)
}

func TestVerifySweepConservationHoldsAcrossCycle(t *testing.T) {
	g := newTestGraph()
	os := newTestSpace(g)
	cache := NewRactorCache()
	root := allocOne(os, cache, true)
	allocOne(os, cache, true) // dead
	g.roots = []Ref{root}
	os.DrainCache(cache)

	os.StartMinor()
	for os.SweepStep() {
	}
	require.True(t, os.VerifySweepConservation())
}
