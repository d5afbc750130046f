package sched

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"graviton/internal/gclog"
)

func TestTryAcquireSNTRespectsMaxCPU(t *testing.T) {
	g := NewGlobal(2, gclog.Nop())
	require.True(t, g.TryAcquireSNT(4))
	require.True(t, g.TryAcquireSNT(4))
	require.False(t, g.TryAcquireSNT(4)) // max_cpu == 2 exhausted
	g.ReleaseSNT()
	require.True(t, g.TryAcquireSNT(4))
}

func TestTryAcquireSNTBoundedByRactorCount(t *testing.T) {
	g := NewGlobal(8, gclog.Nop())
	require.True(t, g.TryAcquireSNT(1))
	require.False(t, g.TryAcquireSNT(1)) // only one ractor to serve
}

func TestRunningThreadsTracking(t *testing.T) {
	g := NewGlobal(4, gclog.Nop())
	s := New(g, gclog.Nop())
	th := NewThread(1, s)
	g.AddRunningThread(th)
	require.Equal(t, 1, g.RunningCount())
	g.DelRunningThread(th)
	require.Equal(t, 0, g.RunningCount())
}

func TestGRQFIFO(t *testing.T) {
	g := NewGlobal(4, gclog.Nop())
	s1 := New(g, gclog.Nop())
	s2 := New(g, gclog.Nop())
	require.Nil(t, g.DequeueGRQ())
	g.EnqueueGRQ(s1)
	g.EnqueueGRQ(s2)
	require.Equal(t, s1, g.DequeueGRQ())
	require.Equal(t, s2, g.DequeueGRQ())
}

func TestBarrierWaitsForAllRunningThreadsToJoin(t *testing.T) {
	g := NewGlobal(4, gclog.Nop())
	s := New(g, gclog.Nop())
	initiator := NewThread(1, s)
	joiners := []*Thread{NewThread(2, s), NewThread(3, s), NewThread(4, s)}

	g.AddRunningThread(initiator)
	for _, th := range joiners {
		g.AddRunningThread(th)
	}

	var wg sync.WaitGroup
	started := make(chan struct{})
	for _, th := range joiners {
		th := th
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-started
			for th.TakeInterrupts()&InterruptBarrier == 0 {
				time.Sleep(time.Millisecond)
			}
			g.JoinBarrier()
		}()
	}
	close(started)

	g.BeginBarrier(initiator)
	require.True(t, g.BarrierWaiting())

	g.EndBarrier()
	require.False(t, g.BarrierWaiting())
	wg.Wait()
}
