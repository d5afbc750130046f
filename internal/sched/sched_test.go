package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"graviton/internal/gclog"
)

func newTestSched() (*Global, *Sched) {
	g := NewGlobal(4, gclog.Nop())
	return g, New(g, gclog.Nop())
}

func TestToReadyRunsImmediatelyWhenIdle(t *testing.T) {
	_, s := newTestSched()
	th := NewThread(1, s)
	s.ToReady(th)
	require.Equal(t, StateRunning, th.State())
	require.Equal(t, th, s.Running())
}

func TestToReadySecondThreadQueuesFIFO(t *testing.T) {
	_, s := newTestSched()
	a := NewThread(1, s)
	b := NewThread(2, s)
	c := NewThread(3, s)
	s.ToReady(a)
	s.ToReady(b)
	s.ToReady(c)
	require.Equal(t, a, s.Running())

	s.ToWaiting(a)
	require.Equal(t, b, s.Running())
	s.ToWaiting(b)
	require.Equal(t, c, s.Running())
}

func TestYieldReenqueuesSelfBehindOthers(t *testing.T) {
	_, s := newTestSched()
	a := NewThread(1, s)
	b := NewThread(2, s)
	s.ToReady(a)
	s.ToReady(b)
	require.Equal(t, a, s.Running())

	s.Yield(a)
	require.Equal(t, b, s.Running())

	s.Yield(b)
	require.Equal(t, a, s.Running())
}

func TestYieldNoOpWhenReadyQueueEmpty(t *testing.T) {
	_, s := newTestSched()
	a := NewThread(1, s)
	s.ToReady(a)
	s.Yield(a)
	require.Equal(t, a, s.Running())
}

func TestToDeadFiresExitedAndPassesTurn(t *testing.T) {
	g, s := newTestSched()
	a := NewThread(1, s)
	b := NewThread(2, s)
	s.ToReady(a)
	s.ToReady(b)

	var exited *Thread
	g.OnExited(func(th *Thread) { exited = th })

	s.ToDead(a)
	require.Equal(t, a, exited)
	require.Equal(t, StateDead, a.State())
	require.Equal(t, b, s.Running())
}

func TestWaitRunningTurnUnblocksOnWake(t *testing.T) {
	_, s := newTestSched()
	a := NewThread(1, s)
	b := NewThread(2, s)
	s.ToReady(a) // a runs immediately
	s.ToReady(b) // b joins the ready queue, not yet running

	done := make(chan struct{})
	go func() {
		b.WaitRunningTurn()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("b should not have a turn yet")
	case <-time.After(20 * time.Millisecond):
	}

	s.ToWaiting(a) // passes the turn to b
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("b never got its turn")
	}
}

func TestInterruptFlagsSetAndTake(t *testing.T) {
	_, s := newTestSched()
	th := NewThread(1, s)
	th.SetInterrupt(InterruptBarrier)
	th.SetInterrupt(InterruptTimer)
	got := th.TakeInterrupts()
	require.Equal(t, InterruptBarrier|InterruptTimer, got)
	require.Equal(t, InterruptNone, th.TakeInterrupts())
}
