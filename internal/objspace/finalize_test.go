package objspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefineFinalizerSkipsExactDuplicate(t *testing.T) {
	os := newTestSpace(newTestGraph())
	cache := NewRactorCache()
	r := allocOne(os, cache, true)

	fn := func(any) {}
	os.DefineFinalizer(r, fn, "data")
	os.DefineFinalizer(r, fn, "data")

	require.Len(t, os.finalizers[r.Page.id][r.Idx], 1)
}

func TestUndefineFinalizerClearsFlagAndEntry(t *testing.T) {
	os := newTestSpace(newTestGraph())
	cache := NewRactorCache()
	r := allocOne(os, cache, true)

	os.DefineFinalizer(r, func(any) {}, nil)
	require.NotZero(t, r.Page.slots[r.Idx].flags&flagFinalize)

	os.UndefineFinalizer(r)
	require.Zero(t, r.Page.slots[r.Idx].flags&flagFinalize)
	_, had := os.finalizers[r.Page.id][r.Idx]
	require.False(t, had)
}

func TestRunFinalizersInvokesAndFreesSlot(t *testing.T) {
	os := newTestSpace(newTestGraph())
	cache := NewRactorCache()
	r := allocOne(os, cache, true)

	called := false
	os.MakeZombie(r, func(any) { called = true }, nil)
	ran := os.RunFinalizers()

	require.Equal(t, 1, ran)
	require.True(t, called)
	require.Equal(t, KindFree, r.Page.slots[r.Idx].kind)
}

func TestRunFinalizersRecoversPanicAndContinues(t *testing.T) {
	os := newTestSpace(newTestGraph())
	cache := NewRactorCache()
	r1 := allocOne(os, cache, true)
	r2 := allocOne(os, cache, true)

	secondCalled := false
	os.MakeZombie(r1, func(any) { panic("boom") }, nil)
	os.MakeZombie(r2, func(any) { secondCalled = true }, nil)

	require.NotPanics(t, func() {
		ran := os.RunFinalizers()
		require.Equal(t, 2, ran)
	})
	require.True(t, secondCalled)
}

func TestCopyFinalizerReplicatesOnDest(t *testing.T) {
	os := newTestSpace(newTestGraph())
	cache := NewRactorCache()
	src := allocOne(os, cache, true)
	dest := allocOne(os, cache, true)

	os.DefineFinalizer(src, func(any) {}, "x")
	os.CopyFinalizer(dest, src)

	require.Len(t, os.finalizers[dest.Page.id][dest.Idx], 1)
}
