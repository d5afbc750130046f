// Package timerthread implements the single native thread of
// spec.md §4.10 that owns the process's timer sleeps and readiness
// multiplexing: a self-pipe wakeup, an epoll based fd multiplexer
// (Linux only; there is no poll fallback), and a sorted wait list of
// parked Threads ordered by absolute deadline. It does no signal
// forwarding.
package timerthread

import (
	"container/heap"
	"time"

	"graviton/internal/sched"
)

// waiter is one parked Thread with a deadline, the unit the sorted
// wait list of spec.md §4.10 orders by ascending deadline.
type waiter struct {
	th       *sched.Thread
	deadline time.Time
	fd       int  // -1 if this is a pure timer sleep, no fd registration
	woken    chan struct{}
	index    int // heap.Interface bookkeeping
}

// waitHeap adapts []*waiter to container/heap.Interface, grounded on
// the teacher's container/heap package (kept as in-tree reference
// during development; see DESIGN.md for why the final tree imports
// the standard library's copy directly instead of keeping a duplicate
// under this module).
type waitHeap []*waiter

func (h waitHeap) Len() int            { return len(h) }
func (h waitHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h waitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *waitHeap) Push(x interface{}) {
	w := x.(*waiter)
	w.index = len(*h)
	*h = append(*h, w)
}
func (h *waitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*h = old[:n-1]
	return w
}

// waitList is the sorted (by ascending deadline) parked-Thread list
// spec.md §4.10 describes, plus a secondary index by fd for "find the
// Thread parked on that fd" (step 6 of the timer thread's iteration).
type waitList struct {
	byDeadline waitHeap
	byFD       map[int]*waiter
}

func newWaitList() *waitList {
	return &waitList{byFD: make(map[int]*waiter)}
}

// add parks w onto both indices.
func (l *waitList) add(w *waiter) {
	heap.Push(&l.byDeadline, w)
	if w.fd >= 0 {
		l.byFD[w.fd] = w
	}
}

// remove detaches w from both indices, used once it's woken by either
// path so it can't be woken twice.
func (l *waitList) remove(w *waiter) {
	if w.index >= 0 && w.index < len(l.byDeadline) && l.byDeadline[w.index] == w {
		heap.Remove(&l.byDeadline, w.index)
	}
	if w.fd >= 0 {
		delete(l.byFD, w.fd)
	}
}

// popExpired removes and returns every waiter whose deadline has
// passed as of now (spec.md §4.10 item 2 "wake Threads whose deadline
// has passed").
func (l *waitList) popExpired(now time.Time) []*waiter {
	var expired []*waiter
	for len(l.byDeadline) > 0 && !l.byDeadline[0].deadline.After(now) {
		w := heap.Pop(&l.byDeadline).(*waiter)
		if w.fd >= 0 {
			delete(l.byFD, w.fd)
		}
		expired = append(expired, w)
	}
	return expired
}

// nextDeadline reports the earliest pending deadline, used to bound
// the multiplexer's poll call (spec.md §4.10 "poll bounded by the next
// timeout"). ok is false if the list is empty.
func (l *waitList) nextDeadline() (d time.Time, ok bool) {
	if len(l.byDeadline) == 0 {
		return time.Time{}, false
	}
	return l.byDeadline[0].deadline, true
}

// byFileDescriptor finds the waiter parked on fd, if any (step 6).
func (l *waitList) byFileDescriptor(fd int) (*waiter, bool) {
	w, ok := l.byFD[fd]
	return w, ok
}
