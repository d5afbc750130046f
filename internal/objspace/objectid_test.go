package objspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectIDIsStableAndStrided(t *testing.T) {
	os := newTestSpace(newTestGraph())
	cache := NewRactorCache()
	a := allocOne(os, cache, true)
	b := allocOne(os, cache, true)

	idA1 := os.ObjectID(a)
	idA2 := os.ObjectID(a)
	idB := os.ObjectID(b)

	require.Equal(t, idA1, idA2)
	require.NotEqual(t, idA1, idB)
	require.EqualValues(t, objIDIncrement, idA1)
	require.EqualValues(t, 2*objIDIncrement, idB)
}

func TestObjectIDToRefBuildsReverseMapLazily(t *testing.T) {
	os := newTestSpace(newTestGraph())
	cache := NewRactorCache()
	a := allocOne(os, cache, true)
	id := os.ObjectID(a)

	require.Nil(t, os.idToObj)
	got, err := os.ObjectIDToRef(id)
	require.NoError(t, err)
	require.Equal(t, a, got)
	require.NotNil(t, os.idToObj)
}

func TestObjectIDToRefUnknownIDIsRangeError(t *testing.T) {
	os := newTestSpace(newTestGraph())
	_, err := os.ObjectIDToRef(999999)
	require.Error(t, err)
	require.IsType(t, RangeError{}, err)
}

func TestForgetObjectIDNeverReissued(t *testing.T) {
	g := newTestGraph()
	os := newTestSpace(g)
	cache := NewRactorCache()
	a := allocOne(os, cache, true)
	id := os.ObjectID(a)
	g.roots = nil

	os.DrainCache(cache)
	os.StartMinor()
	for os.SweepStep() {
	}

	_, err := os.ObjectIDToRef(id)
	require.Error(t, err)
}
