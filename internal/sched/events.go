package sched

// EventKind is the bitmask spec.md §6 describes for
// internal_thread_add_event_hook(cb, mask, data): STARTED, READY,
// RESUMED, SUSPENDED, EXITED, plus two events this scheduler adds for
// its own interrupt delivery (BarrierInterrupt, TimerInterrupt) with no
// analogue among the named five but a natural home in the same hook
// mechanism.
type EventKind uint32

const (
	EventStarted EventKind = 1 << iota
	EventReady
	EventResumed
	EventSuspended
	EventExited
	EventBarrierInterrupt
	EventTimerInterrupt

	EventAll = EventStarted | EventReady | EventResumed | EventSuspended |
		EventExited | EventBarrierInterrupt | EventTimerInterrupt
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventReady:
		return "ready"
	case EventResumed:
		return "resumed"
	case EventSuspended:
		return "suspended"
	case EventExited:
		return "exited"
	case EventBarrierInterrupt:
		return "barrier_interrupt"
	case EventTimerInterrupt:
		return "timer_interrupt"
	default:
		return "unknown"
	}
}

// EventHook is the callback shape spec.md §6 names: cb(event, data).
// th is the Thread the event concerns; data is whatever the caller
// passed to AddEventHook.
type EventHook func(kind EventKind, th *Thread, data any)

type registeredHook struct {
	cb   EventHook
	mask EventKind
	data any
}

// AddEventHook registers cb to fire for every event in mask, returning
// a handle for RemoveEventHook (spec.md §6
// internal_thread_add_event_hook).
func (g *Global) AddEventHook(cb EventHook, mask EventKind, data any) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	handle := g.nextHookHandle
	g.nextHookHandle++
	if g.hooks == nil {
		g.hooks = make(map[uint64]registeredHook)
	}
	g.hooks[handle] = registeredHook{cb: cb, mask: mask, data: data}
	return handle
}

// RemoveEventHook unregisters a previously added hook, reporting
// whether it was still present (spec.md §6
// internal_thread_remove_event_hook).
func (g *Global) RemoveEventHook(handle uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.hooks[handle]; !ok {
		return false
	}
	delete(g.hooks, handle)
	return true
}

// FireEvent invokes every registered hook whose mask includes kind,
// for callers outside this package (the timer thread delivering
// EventTimerInterrupt).
func (g *Global) FireEvent(kind EventKind, th *Thread) { g.fireEvent(kind, th) }

// fireEvent invokes every registered hook whose mask includes kind.
// Hooks run with g.mu unlocked so a slow or reentrant callback can't
// deadlock the scheduler.
func (g *Global) fireEvent(kind EventKind, th *Thread) {
	g.mu.Lock()
	var matched []registeredHook
	for _, h := range g.hooks {
		if h.mask&kind != 0 {
			matched = append(matched, h)
		}
	}
	g.mu.Unlock()
	for _, h := range matched {
		h.cb(kind, th, h.data)
	}
}
