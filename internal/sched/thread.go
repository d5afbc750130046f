// Package sched implements the cooperative M:N thread scheduler of
// spec.md §4.9: a per-Ractor ready queue dispatching Threads onto
// native threads, with dedicated (1:1) and shared (M:N) native thread
// modes and stop-the-world barrier coordination with the collector.
//
// Go already gives every goroutine its own stack and a preemptive
// runtime scheduler, so there is no mmap'd-chunk stack carving here
// (spec.md §4.9's coroutine/stack-chunk paragraph; see DESIGN.md for
// why that layer is dropped rather than reimplemented). What remains
// worth modeling explicitly is the *policy*: a single ready Thread
// runs at a time per Sched, dedicated vs. shared native thread
// capacity is bounded globally, and the stop-the-world barrier must
// see every running Thread park before it proceeds. A NativeThread
// here is a goroutine that repeatedly takes the next ready Thread's
// turn; "coroutine_transfer" becomes a direct handoff over a
// per-Thread turn channel, grounded on the teacher's runtime/proc.go
// goroutine park/ready handoff idiom (gopark/goready), generalized
// from the Go runtime's M:P:G model to this package's Sched:NT:Thread
// one.
package sched

import "sync/atomic"

// InterruptFlag is a bitmask of pending asynchronous interrupts a
// Thread checks at its next safepoint (spec.md §4.10 item 3 "set
// TIMER_INTERRUPT", §4.9 barrier "VM_BARRIER_INTERRUPT").
type InterruptFlag uint32

const (
	InterruptNone    InterruptFlag = 0
	InterruptBarrier InterruptFlag = 1 << iota
	InterruptTimer
)

// ThreadState mirrors the lifecycle spec.md §4.9's operations move a
// Thread through.
type ThreadState uint8

const (
	StateReady ThreadState = iota
	StateRunning
	StateWaiting // performing a blocking native call, to_waiting
	StateDead
)

func (s ThreadState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateDead:
		return "dead"
	default:
		return "ready"
	}
}

// Thread is one user-visible execution context (spec.md §4.9
// "Thread"). turn is signalled exactly when the scheduler transitions
// this Thread to running; WaitRunningTurn blocks on it, unifying the
// spec's three wake paths (DNT condvar, SNT direct transfer, SNT via
// GRQ) into one channel receive, since Go provides no separate
// coroutine-transfer primitive to distinguish them.
type Thread struct {
	ID    uint64
	sched *Sched

	turn chan struct{}

	state      atomic.Int32
	dedicated  atomic.Int32 // 0 means SNT-eligible; spec.md §4.9 "dedicated counter"
	interrupts atomic.Uint32
}

// NewThread constructs a Thread bound to sched, starting in the ready
// state.
func NewThread(id uint64, s *Sched) *Thread {
	t := &Thread{ID: id, sched: s, turn: make(chan struct{}, 1)}
	t.state.Store(int32(StateReady))
	return t
}

func (t *Thread) State() ThreadState { return ThreadState(t.state.Load()) }

// Dedicated reports whether this Thread has requested exclusive-NT
// mode at least once (spec.md §4.9 "0 means it runs as SNT").
func (t *Thread) Dedicated() bool { return t.dedicated.Load() > 0 }

// SetInterrupt ORs flag into the Thread's pending interrupt bitmask,
// checked at the Thread's next safepoint (spec.md §5 "Implicit
// suspension points ... any host call checking RUBY_VM_INTERRUPTED").
func (t *Thread) SetInterrupt(flag InterruptFlag) {
	for {
		old := t.interrupts.Load()
		next := old | uint32(flag)
		if t.interrupts.CompareAndSwap(old, next) {
			return
		}
	}
}

// TakeInterrupts atomically reads and clears the pending interrupt
// bitmask, the shape every safepoint check takes.
func (t *Thread) TakeInterrupts() InterruptFlag {
	return InterruptFlag(t.interrupts.Swap(0))
}

func (t *Thread) wake() {
	select {
	case t.turn <- struct{}{}:
	default:
	}
}

// WaitRunningTurn blocks until the scheduler has made this Thread the
// one running (spec.md §4.9 wait_running_turn).
func (t *Thread) WaitRunningTurn() {
	<-t.turn
	t.state.Store(int32(StateRunning))
}
