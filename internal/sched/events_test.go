package sched

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"graviton/internal/gclog"
)

func TestAddEventHookFiresOnMatchingEvents(t *testing.T) {
	g := NewGlobal(4, gclog.Nop())
	s := New(g, gclog.Nop())

	var mu sync.Mutex
	var seen []EventKind
	g.AddEventHook(func(kind EventKind, th *Thread, data any) {
		mu.Lock()
		seen = append(seen, kind)
		mu.Unlock()
	}, EventReady|EventResumed, nil)

	th := NewThread(1, s)
	s.ToReady(th)

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, seen, EventReady)
	require.Contains(t, seen, EventResumed)
}

func TestEventHookIgnoresUnmaskedEvents(t *testing.T) {
	g := NewGlobal(4, gclog.Nop())
	s := New(g, gclog.Nop())

	var mu sync.Mutex
	var seen []EventKind
	g.AddEventHook(func(kind EventKind, th *Thread, data any) {
		mu.Lock()
		seen = append(seen, kind)
		mu.Unlock()
	}, EventExited, nil)

	th := NewThread(1, s)
	s.ToReady(th)

	mu.Lock()
	defer mu.Unlock()
	require.Empty(t, seen)
}

func TestRemoveEventHookStopsDelivery(t *testing.T) {
	g := NewGlobal(4, gclog.Nop())
	s := New(g, gclog.Nop())

	var mu sync.Mutex
	count := 0
	handle := g.AddEventHook(func(kind EventKind, th *Thread, data any) {
		mu.Lock()
		count++
		mu.Unlock()
	}, EventAll, nil)

	require.True(t, g.RemoveEventHook(handle))
	require.False(t, g.RemoveEventHook(handle))

	th := NewThread(1, s)
	s.ToReady(th)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 0, count)
}

func TestEventHookReceivesPassedData(t *testing.T) {
	g := NewGlobal(4, gclog.Nop())
	s := New(g, gclog.Nop())

	done := make(chan any, 1)
	g.AddEventHook(func(kind EventKind, th *Thread, data any) {
		done <- data
	}, EventReady, "tag")

	th := NewThread(1, s)
	s.ToReady(th)

	require.Equal(t, "tag", <-done)
}
