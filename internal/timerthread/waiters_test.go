package timerthread

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitListPopExpiredOrdersByDeadline(t *testing.T) {
	l := newWaitList()
	base := time.Now()
	w1 := &waiter{deadline: base.Add(30 * time.Millisecond), fd: -1, woken: make(chan struct{})}
	w2 := &waiter{deadline: base.Add(10 * time.Millisecond), fd: -1, woken: make(chan struct{})}
	w3 := &waiter{deadline: base.Add(20 * time.Millisecond), fd: -1, woken: make(chan struct{})}
	l.add(w1)
	l.add(w2)
	l.add(w3)

	expired := l.popExpired(base.Add(25 * time.Millisecond))
	require.Len(t, expired, 2)
	require.Equal(t, w2, expired[0])
	require.Equal(t, w3, expired[1])

	d, ok := l.nextDeadline()
	require.True(t, ok)
	require.Equal(t, w1.deadline, d)
}

func TestWaitListRemoveDetachesBothIndices(t *testing.T) {
	l := newWaitList()
	w := &waiter{deadline: time.Now().Add(time.Hour), fd: 7, woken: make(chan struct{})}
	l.add(w)

	got, ok := l.byFileDescriptor(7)
	require.True(t, ok)
	require.Equal(t, w, got)

	l.remove(w)
	_, ok = l.byFileDescriptor(7)
	require.False(t, ok)
	_, ok = l.nextDeadline()
	require.False(t, ok)
}

func TestWaitListNextDeadlineEmptyIsNotOK(t *testing.T) {
	l := newWaitList()
	_, ok := l.nextDeadline()
	require.False(t, ok)
}
