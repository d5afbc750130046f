package objspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartRunsFullCycleAndCountsCycle(t *testing.T) {
	g := newTestGraph()
	os := newTestSpace(g)
	cache := NewRactorCache()

	root := allocOne(os, cache, true)
	dead := allocOne(os, cache, true)
	g.roots = []Ref{root}
	os.DrainCache(cache)

	os.Start(true, true, true, false)

	require.EqualValues(t, 1, os.GCCount())
	require.Equal(t, KindObject, root.Page.slots[root.Idx].kind)
	require.Equal(t, KindFree, dead.Page.slots[dead.Idx].kind)
}

func TestForceMajorGCSetsReason(t *testing.T) {
	os := newTestSpace(newTestGraph())
	os.ForceMajorGC()
	require.NotZero(t, os.CheckMajorGCTriggers()&ReasonForce)
}

func TestConfigGetSetRoundtrip(t *testing.T) {
	os := newTestSpace(newTestGraph())
	ok := os.ConfigSet("rgengc_allow_full_mark", false)
	require.True(t, ok)
	v, ok := os.ConfigGet("rgengc_allow_full_mark")
	require.True(t, ok)
	require.Equal(t, false, v)
}

func TestConfigGetUnknownKey(t *testing.T) {
	os := newTestSpace(newTestGraph())
	_, ok := os.ConfigGet("not_a_real_key")
	require.False(t, ok)
}

func TestDontGCSuppressesStart(t *testing.T) {
	os := newTestSpace(newTestGraph())
	os.dontGC = true
	os.Start(true, true, true, false)
	require.EqualValues(t, 0, os.GCCount())
}
