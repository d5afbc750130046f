package llist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushBackFrontOrder(t *testing.T) {
	l := New[int]()
	l.PushBack(1)
	l.PushBack(2)
	l.PushBack(3)
	require.Equal(t, 3, l.Len())

	var got []int
	l.Each(func(e *Element[int]) { got = append(got, e.Value) })
	require.Equal(t, []int{1, 2, 3}, got)
}

func TestRemove(t *testing.T) {
	l := New[int]()
	e1 := l.PushBack(1)
	e2 := l.PushBack(2)
	l.PushBack(3)

	l.Remove(e2)
	require.Equal(t, 2, l.Len())

	var got []int
	l.Each(func(e *Element[int]) { got = append(got, e.Value) })
	require.Equal(t, []int{1, 3}, got)

	require.Equal(t, 1, e1.Value)
}

func TestMoveToBack(t *testing.T) {
	l := New[int]()
	e1 := l.PushBack(1)
	l.PushBack(2)
	l.PushBack(3)

	l.MoveToBack(e1)

	var got []int
	l.Each(func(e *Element[int]) { got = append(got, e.Value) })
	require.Equal(t, []int{2, 3, 1}, got)
}

func TestEmptyListFrontBackNil(t *testing.T) {
	l := New[int]()
	require.Nil(t, l.Front())
	require.Nil(t, l.Back())
}
