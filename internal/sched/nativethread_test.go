package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"graviton/internal/gclog"
)

func TestSpawnDNTRunsThreadToCompletion(t *testing.T) {
	g := NewGlobal(4, gclog.Nop())
	s := New(g, gclog.Nop())
	th := NewThread(1, s)
	s.ToReady(th)

	ran := make(chan struct{})
	g.SpawnDNT(th, func(th *Thread) {
		th.WaitRunningTurn()
		close(ran)
		s.ToDead(th)
	})

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("DNT never ran its thread")
	}
	require.Eventually(t, func() bool { return g.RunningCount() == 0 }, time.Second, time.Millisecond)
}

func TestSpawnSNTServesAssignedSchedThenExitsWhenIdle(t *testing.T) {
	g := NewGlobal(2, gclog.Nop())
	s := New(g, gclog.Nop())
	th := NewThread(1, s)
	s.ToReady(th)

	stop := make(chan struct{})
	ran := make(chan struct{})
	nt := g.SpawnSNT(1, s, func(th *Thread) {
		close(ran)
		s.ToDead(th)
	}, stop)
	require.NotNil(t, nt)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("SNT never picked up the assigned Sched's thread")
	}
	require.Eventually(t, func() bool { return g.SNTCount() == 0 }, time.Second, time.Millisecond)
}

func TestSpawnSNTFailsWhenBudgetExhausted(t *testing.T) {
	g := NewGlobal(1, gclog.Nop())
	require.True(t, g.TryAcquireSNT(4))
	nt := g.SpawnSNT(4, New(g, gclog.Nop()), func(*Thread) {}, make(chan struct{}))
	require.Nil(t, nt)
}
