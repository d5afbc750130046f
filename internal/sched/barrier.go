package sched

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// barrierState is the stop-the-world coordination block of spec.md
// §4.9: "the initiator atomically takes barrier_waiting ... sets
// VM_BARRIER_INTERRUPT on every other running Thread, then waits on
// barrier_complete_cond until running_cnt - waiting_cnt == 1. Joining
// Threads increment waiting_cnt, signal the initiator, and park on
// barrier_release_cond until barrier_serial advances."
type barrierState struct {
	cond *sync.Cond // guarded by Global.mu

	waiting    bool
	waitingCnt int
	serial     uint64
}

// BeginBarrier is the collector's entry point for a stop-the-world
// phase (full mark start, compaction). It sets InterruptBarrier on
// every currently running Thread other than initiator, using an
// errgroup so delivery to a large running set fans out instead of
// running serially, then blocks until every one of them has parked.
// Grounded on the pack's golang.org/x/sync/errgroup idiom for "fan out
// a bounded batch of independent calls and wait for all".
func (g *Global) BeginBarrier(initiator *Thread) {
	g.mu.Lock()
	g.barrier.waiting = true
	g.barrier.waitingCnt = 0
	running := make([]*Thread, 0, len(g.runningThreads))
	for _, th := range g.runningThreads {
		if th != initiator {
			running = append(running, th)
		}
	}
	g.mu.Unlock()

	grp, _ := errgroup.WithContext(context.Background())
	for _, th := range running {
		th := th
		grp.Go(func() error {
			th.SetInterrupt(InterruptBarrier)
			g.fireEvent(EventBarrierInterrupt, th)
			return nil
		})
	}
	_ = grp.Wait()

	g.mu.Lock()
	for g.barrier.waitingCnt < len(running) {
		g.barrier.cond.Wait()
	}
	g.mu.Unlock()
}

// JoinBarrier is called by a non-initiating Thread when it observes
// InterruptBarrier at a safepoint: it registers itself as parked and
// blocks until EndBarrier advances the serial (spec.md §4.9 "park on
// barrier_release_cond until barrier_serial advances").
func (g *Global) JoinBarrier() {
	g.mu.Lock()
	g.barrier.waitingCnt++
	serial := g.barrier.serial
	g.barrier.cond.Broadcast()
	for g.barrier.serial == serial {
		g.barrier.cond.Wait()
	}
	g.mu.Unlock()
}

// EndBarrier releases every joined Thread (spec.md §4.9's implicit
// "barrier completes").
func (g *Global) EndBarrier() {
	g.mu.Lock()
	g.barrier.waiting = false
	g.barrier.waitingCnt = 0
	g.barrier.serial++
	g.barrier.cond.Broadcast()
	g.mu.Unlock()
}

// BarrierWaiting reports whether a stop-the-world barrier is currently
// in progress (spec.md §4.9 invariant: "no Thread outside the
// initiator may transition into running until the barrier
// completes").
func (g *Global) BarrierWaiting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.barrier.waiting
}
