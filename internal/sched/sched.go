package sched

import (
	"sync"

	"graviton/internal/gclog"
	"graviton/internal/llist"
)

// Sched is the per-Ractor scheduler state of spec.md §4.9: a ready
// queue, a pointer to the currently running Thread, and a lock. Lock
// order follows spec.md §4.9: a caller already holding the global
// scheduler's lock may take this one, never the reverse (see
// global.go).
type Sched struct {
	mu      sync.Mutex
	log     gclog.Logger
	readyq  *llist.List[*Thread]
	running *Thread

	// timesliceRegistered tracks whether the running Thread has already
	// been registered with the timer thread for TIMER_INTERRUPT delivery
	// (spec.md §4.9 to_ready: "if the current running Thread lacks a
	// slice slot, register it for timeslicing").
	timesliceRegistered map[uint64]bool

	global *Global
}

// New constructs an empty Sched attached to the shared global
// scheduler g (spec.md §6 thread_sched_init).
func New(g *Global, log gclog.Logger) *Sched {
	return &Sched{
		log:                  log,
		readyq:               llist.New[*Thread](),
		timesliceRegistered:  make(map[uint64]bool),
		global:               g,
	}
}

// Destroy releases s's ready queue (spec.md §6 thread_sched_destroy).
// The original only ever does this at VM shutdown, racing nothing by
// construction; Go's GC reclaims the rest, so this just drops the
// queue a caller might otherwise hold onto.
func (s *Sched) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readyq = llist.New[*Thread]()
	s.timesliceRegistered = make(map[uint64]bool)
}

// ToReady enqueues th (spec.md §4.9 to_ready): if no Thread is
// running, th becomes running immediately; otherwise it joins the
// ready queue FIFO, and the currently running Thread is registered
// for timeslicing if it wasn't already.
func (s *Sched) ToReady(th *Thread) {
	s.mu.Lock()
	th.state.Store(int32(StateReady))

	var register *Thread
	ranImmediately := s.running == nil
	if ranImmediately {
		s.running = th
		th.state.Store(int32(StateRunning))
		th.wake()
	} else {
		s.readyq.PushBack(th)
		if !s.timesliceRegistered[s.running.ID] {
			s.timesliceRegistered[s.running.ID] = true
			register = s.running
		}
	}
	s.mu.Unlock()

	// Registered after s.mu is released: the global lock is never taken
	// while holding this one.
	if register != nil {
		s.global.registerTimeslice(register)
	}

	s.global.fireEvent(EventReady, th)
	if ranImmediately {
		s.global.fireEvent(EventResumed, th)
	}
}

// passTurnToNext hands the running slot to the next ready Thread, or
// clears it if the queue is empty. Caller must hold s.mu. Returns the
// Thread that was woken, if any, so the caller can fire EventResumed
// once it has released the lock.
func (s *Sched) passTurnToNext() *Thread {
	e := s.readyq.Front()
	if e == nil {
		s.running = nil
		return nil
	}
	next := s.readyq.Remove(e)
	s.running = next
	next.state.Store(int32(StateRunning))
	delete(s.timesliceRegistered, next.ID)
	next.wake()
	return next
}

// ToWaiting takes th's NT out of rotation and passes the turn to the
// next ready Thread (spec.md §4.9 to_waiting), used before a blocking
// native call. dedicated is incremented: a Thread that goes on to
// perform blocking I/O is a candidate for promotion to a DNT so it
// stops competing for the shared pool.
func (s *Sched) ToWaiting(th *Thread) {
	th.dedicated.Add(1)
	th.state.Store(int32(StateWaiting))
	s.mu.Lock()
	var woken *Thread
	if s.running == th {
		woken = s.passTurnToNext()
	}
	s.mu.Unlock()

	s.global.fireEvent(EventSuspended, th)
	if woken != nil {
		s.global.fireEvent(EventResumed, woken)
	}
}

// ToDead retires th permanently (spec.md §4.9 to_dead): like
// ToWaiting but dedicated is left untouched and the Thread is marked
// StateDead rather than StateWaiting.
func (s *Sched) ToDead(th *Thread) {
	th.state.Store(int32(StateDead))
	s.mu.Lock()
	var woken *Thread
	if s.running == th {
		woken = s.passTurnToNext()
	}
	s.mu.Unlock()

	s.global.fireExited(th)
	if woken != nil {
		s.global.fireEvent(EventResumed, woken)
	}
}

// Yield passes the turn to the next ready Thread and re-enqueues self
// at the back, or continues running uninterrupted if the ready queue
// is empty (spec.md §4.9 yield).
func (s *Sched) Yield(th *Thread) {
	s.mu.Lock()
	if s.readyq.Len() == 0 {
		s.mu.Unlock()
		return
	}
	s.readyq.PushBack(th)
	woken := s.passTurnToNext()
	s.mu.Unlock()

	s.global.fireEvent(EventSuspended, th)
	if woken != nil {
		s.global.fireEvent(EventResumed, woken)
	}
}

// Running reports the currently running Thread, or nil.
func (s *Sched) Running() *Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
