package sched

// NativeThread models one OS-thread-equivalent: a goroutine that is
// either pinned to a single Thread (DNT) or loops serving whichever
// Sched has work (SNT). Real stack-chunk carving (spec.md §4.9's
// mmap'd 512 MiB chunks with guard pages) has no Go analogue — every
// goroutine already owns a managed, growable stack — so NativeThread
// only reimplements the *scheduling* policy: which Thread gets to run
// next and on what NT.
type NativeThread struct {
	ID     uint64
	Kind   NativeThreadKind
	global *Global
}

// NativeThreadKind distinguishes dedicated from shared native threads
// (spec.md §4.9 "Dedicated (DNT): pinned 1:1 ... Shared (SNT): serves
// many Threads via a coroutine context").
type NativeThreadKind uint8

const (
	KindDNT NativeThreadKind = iota
	KindSNT
)

// SpawnDNT starts a dedicated native thread pinned to th: it runs th
// to completion (or until th blocks, at which point it keeps serving
// only th — a DNT never picks up other Threads, matching spec.md's
// 1:1 pinning). run is the host-supplied body; it should call
// th.WaitRunningTurn() internally at its own suspension points and
// return when the Thread reaches StateDead.
func (g *Global) SpawnDNT(th *Thread, run func(*Thread)) *NativeThread {
	nt := &NativeThread{ID: g.NextNativeThreadID(), Kind: KindDNT, global: g}
	th.dedicated.Add(1)
	g.AcquireDNT()
	g.AddRunningThread(th)
	go func() {
		defer g.ReleaseDNT()
		defer g.DelRunningThread(th)
		g.fireEvent(EventStarted, th)
		run(th)
	}()
	return nt
}

// SpawnSNT starts a shared native thread's dispatch loop: it repeatedly
// looks for a Sched with a ready Thread — first its own assigned Sched
// s, then the global ready queue (GRQ) — and runs that Thread's body
// until the Thread yields the NT back (to_waiting/to_dead) or the
// stop-flag closes. Returns nil if the shared-thread budget (max_cpu)
// is already exhausted for the given ractor count.
//
// runBody is the host callback that drives one Thread's turn: given
// the Thread made running by a Sched, it executes host code until the
// Thread suspends, then returns. This is the coroutine-transfer
// boundary of spec.md §4.9, collapsed here into an ordinary function
// call/return because Go goroutines don't need an explicit stack
// switch to move between them.
func (g *Global) SpawnSNT(ractors int, assigned *Sched, runBody func(*Thread), stop <-chan struct{}) *NativeThread {
	if !g.TryAcquireSNT(ractors) {
		return nil
	}
	nt := &NativeThread{ID: g.NextNativeThreadID(), Kind: KindSNT, global: g}
	go nt.dispatchLoop(assigned, runBody, stop)
	return nt
}

func (nt *NativeThread) dispatchLoop(assigned *Sched, runBody func(*Thread), stop <-chan struct{}) {
	defer nt.global.ReleaseSNT()
	for {
		select {
		case <-stop:
			return
		default:
		}

		s := assigned
		th := s.Running()
		if th == nil {
			s = nt.global.DequeueGRQ()
			if s == nil {
				return // no work anywhere; idle SNT exits (spec.md's implicit SNT reclamation)
			}
			th = s.Running()
			if th == nil {
				continue
			}
		}

		nt.global.AddRunningThread(th)
		runBody(th)
		nt.global.DelRunningThread(th)
	}
}
