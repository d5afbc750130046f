package timerthread

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"graviton/internal/gclog"
	"graviton/internal/sched"
)

// maxEvents bounds one epoll_wait batch, grounded on the pack's
// eventloop fixed-size event buffer idiom (see other_examples'
// alternatetwo poller doc, "eventBuf []unix.EpollEvent").
const maxEvents = 256

// Timer is the single native thread of spec.md §4.10: a self-pipe for
// wakeup, an epoll readiness multiplexer, and the sorted wait list of
// parked Threads. One Timer serves every Sched/Global belonging to one
// ObjectSpace.
type Timer struct {
	log    gclog.Logger
	global *sched.Global

	epfd     int
	wakeR    int
	wakeW    int
	wakeBuf  [1]byte

	mu    sync.Mutex
	waits *waitList

	stop chan struct{}
	done chan struct{}
}

// New creates a Timer and its epoll instance/self-pipe, but does not
// start its loop — call Run in its own goroutine.
func New(global *sched.Global, log gclog.Logger) (*Timer, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		unix.Close(epfd)
		return nil, err
	}
	t := &Timer{
		log:    log,
		global: global,
		epfd:   epfd,
		wakeR:  fds[0],
		wakeW:  fds[1],
		waits:  newWaitList(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, t.wakeR, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(t.wakeR)}); err != nil {
		unix.Close(epfd)
		unix.Close(t.wakeR)
		unix.Close(t.wakeW)
		return nil, err
	}
	return t, nil
}

// Close releases the epoll instance and self-pipe file descriptors.
func (t *Timer) Close() {
	close(t.stop)
	<-t.done
	unix.Close(t.epfd)
	unix.Close(t.wakeR)
	unix.Close(t.wakeW)
}

// wake writes one byte to the self-pipe, the wakeup primitive spec.md
// §4.10 describes ("writing one byte ... the timer thread's
// epoll_wait returns and the loop resumes").
func (t *Timer) wake() {
	_, _ = unix.Write(t.wakeW, t.wakeBuf[:1])
}

// SleepUntil registers th to be woken at deadline and blocks until the
// timer loop releases it once the deadline has passed, returning
// whether the deadline had been reached when the wait ended. There is
// no early wake.
func (t *Timer) SleepUntil(th *sched.Thread, deadline time.Time) (timedOut bool) {
	w := &waiter{th: th, deadline: deadline, fd: -1, woken: make(chan struct{})}
	t.mu.Lock()
	t.waits.add(w)
	t.mu.Unlock()
	t.wake()

	<-w.woken
	return time.Now().After(deadline) || time.Now().Equal(deadline)
}

// WaitEvents is the shared-NT I/O wait primitive of spec.md §4.10
// wait_events(fd, flags, timeout): registers fd with the epoll
// multiplexer, parks th on the Timer (releasing its NT to serve other
// Threads via the caller's own Sched.ToWaiting), and returns whether
// the deadline expired before fd became ready. If fd cannot be
// registered with epoll, it returns true at once without waiting.
func (t *Timer) WaitEvents(th *sched.Thread, fd int, events uint32, timeout time.Duration) (timedOut bool) {
	deadline := time.Now().Add(timeout)
	w := &waiter{th: th, deadline: deadline, fd: fd, woken: make(chan struct{})}

	t.mu.Lock()
	t.waits.add(w)
	t.mu.Unlock()
	if err := unix.EpollCtl(t.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)}); err != nil {
		t.mu.Lock()
		t.waits.remove(w)
		t.mu.Unlock()
		close(w.woken)
		return true
	}

	<-w.woken
	_ = unix.EpollCtl(t.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	return time.Now().After(deadline)
}

// Run executes the timer thread's loop (spec.md §4.10 "responsibilities
// every iteration"). It blocks until Close is called.
func (t *Timer) Run() {
	defer close(t.done)
	var events [maxEvents]unix.EpollEvent

	for {
		select {
		case <-t.stop:
			return
		default:
		}

		timeoutMs := t.nextTimeoutMs()
		n, err := unix.EpollWait(t.epfd, events[:], timeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			t.log.Warnw("timer thread epoll_wait failed", "err", err)
			continue
		}

		now := time.Now()
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == t.wakeR {
				t.drainSelfPipe()
				continue
			}
			t.mu.Lock()
			w, ok := t.waits.byFileDescriptor(fd)
			if ok {
				t.waits.remove(w)
			}
			t.mu.Unlock()
			if ok {
				close(w.woken)
			}
		}

		t.mu.Lock()
		expired := t.waits.popExpired(now)
		t.mu.Unlock()
		for _, w := range expired {
			close(w.woken)
		}

		for _, th := range t.global.TimesliceThreads() {
			th.SetInterrupt(sched.InterruptTimer)
			t.global.FireEvent(sched.EventTimerInterrupt, th)
		}
	}
}

func (t *Timer) nextTimeoutMs() int {
	t.mu.Lock()
	deadline, ok := t.waits.nextDeadline()
	t.mu.Unlock()
	if !ok {
		return 1000 // spec.md §4.10's periodic SNT-need check still wants to run
	}
	d := time.Until(deadline)
	if d <= 0 {
		return 0
	}
	ms := d.Milliseconds()
	if ms > int64(^uint32(0)>>1) {
		ms = int64(^uint32(0) >> 1)
	}
	return int(ms)
}

func (t *Timer) drainSelfPipe() {
	var buf [64]byte
	for {
		n, err := unix.Read(t.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}
