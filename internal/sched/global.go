package sched

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"graviton/internal/gclog"
	"graviton/internal/llist"
)

// Global is the per-ObjectSpace scheduler state of spec.md §4.9: DNT/
// SNT counts, the global ready Ractor queue (GRQ) waiting for a shared
// native thread, and the stop-the-world barrier. sntSem bounds shared
// native thread capacity at max_cpu, grounded on the pack's
// golang.org/x/sync/semaphore weighted-resource idiom (see
// other_examples), generalizing its usual "bound concurrent RPCs" use
// to "bound concurrent SNT goroutines".
type Global struct {
	log gclog.Logger

	mu             sync.Mutex
	runningThreads map[uint64]*Thread
	grq            *llist.List[*Sched]

	dntCnt atomic.Int32
	sntCnt atomic.Int32
	maxCPU int64
	sntSem *semaphore.Weighted

	timesliceThreads map[uint64]*Thread

	barrier barrierState

	nextNativeThreadID atomic.Uint64

	onExited       func(*Thread)
	hooks          map[uint64]registeredHook
	nextHookHandle uint64
}

// NewGlobal constructs the shared scheduler state for one ObjectSpace,
// capping shared native thread count at maxCPU (spec.md §4.9
// "max_cpu caps SNTs").
func NewGlobal(maxCPU int, log gclog.Logger) *Global {
	if maxCPU <= 0 {
		maxCPU = 1
	}
	g := &Global{
		log:              log,
		runningThreads:   make(map[uint64]*Thread),
		grq:              llist.New[*Sched](),
		maxCPU:           int64(maxCPU),
		sntSem:           semaphore.NewWeighted(int64(maxCPU)),
		timesliceThreads: make(map[uint64]*Thread),
	}
	g.barrier.cond = sync.NewCond(&g.mu)
	return g
}

// AddRunningThread records th as executing on, or about to execute
// on, a native thread (spec.md §4.9 "running_threads set ... between
// thread_sched_add_running_thread and the corresponding del").
func (g *Global) AddRunningThread(th *Thread) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.runningThreads[th.ID] = th
}

// DelRunningThread is the matching removal.
func (g *Global) DelRunningThread(th *Thread) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.runningThreads, th.ID)
}

// RunningCount reports len(running_threads).
func (g *Global) RunningCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.runningThreads)
}

// DNTCount and SNTCount report the current native-thread split.
func (g *Global) DNTCount() int { return int(g.dntCnt.Load()) }
func (g *Global) SNTCount() int { return int(g.sntCnt.Load()) }

// TryAcquireSNT attempts to claim one of the max_cpu shared native
// thread slots (spec.md §4.9 "spawn a new SNT ... if snt_cnt <
// min(ractors, max_cpu)"); ractors is the caller's current count of
// live Ractors, since the cap is the lesser of the two.
func (g *Global) TryAcquireSNT(ractors int) bool {
	bound := int64(ractors)
	if bound > g.maxCPU {
		bound = g.maxCPU
	}
	if int64(g.sntCnt.Load()) >= bound {
		return false
	}
	if !g.sntSem.TryAcquire(1) {
		return false
	}
	g.sntCnt.Add(1)
	return true
}

// ReleaseSNT returns a previously acquired slot, called when an SNT
// goroutine exits (no work left for it, or shutdown).
func (g *Global) ReleaseSNT() {
	g.sntCnt.Add(-1)
	g.sntSem.Release(1)
}

// AcquireDNT records a newly spawned dedicated native thread; unlike
// SNTs, DNTs aren't capped by max_cpu (spec.md §4.9 only bounds shared
// capacity).
func (g *Global) AcquireDNT() { g.dntCnt.Add(1) }

// ReleaseDNT is the matching teardown.
func (g *Global) ReleaseDNT() { g.dntCnt.Add(-1) }

// NextNativeThreadID hands out stable identifiers for log lines and
// tests.
func (g *Global) NextNativeThreadID() uint64 { return g.nextNativeThreadID.Add(1) }

// EnqueueGRQ parks s on the global ready queue, waiting for a shared
// native thread to pick it up (spec.md §4.9 wait_running_turn path 3
// "enqueue this Ractor on GRQ").
func (g *Global) EnqueueGRQ(s *Sched) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.grq.PushBack(s)
}

// DequeueGRQ pops the next Sched awaiting service, or nil. Called by
// an SNT's dispatch loop once it has no Thread of its own to run
// (nativethread.go).
func (g *Global) DequeueGRQ() *Sched {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.grq.Front()
	if e == nil {
		return nil
	}
	return g.grq.Remove(e)
}

// registerTimeslice marks th as needing periodic TIMER_INTERRUPT
// delivery from the timer thread (spec.md §4.9 to_ready, §4.10 item
// 3).
func (g *Global) registerTimeslice(th *Thread) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.timesliceThreads[th.ID] = th
}

// TimesliceThreads returns a snapshot of Threads currently registered
// for timeslicing, consumed by the timer thread each iteration.
func (g *Global) TimesliceThreads() []*Thread {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Thread, 0, len(g.timesliceThreads))
	for _, t := range g.timesliceThreads {
		out = append(out, t)
	}
	return out
}

// OnExited registers a callback fired by ToDead (spec.md §4.9 "firing
// EXITED").
func (g *Global) OnExited(fn func(*Thread)) { g.onExited = fn }

func (g *Global) fireExited(th *Thread) {
	if g.onExited != nil {
		g.onExited(th)
	}
	g.fireEvent(EventExited, th)
}
