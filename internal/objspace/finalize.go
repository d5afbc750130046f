package objspace

import (
	"sync/atomic"
	"unsafe"
)

// finalizerEntry is one callable registered on an object, equivalent to
// the teacher's runtime/mfinal.go finalizer{fn, arg, ...} entry, but
// holding a host-level closure rather than a raw funcval/type triple
// since the host object model is out of scope (spec.md §1).
type finalizerEntry struct {
	fn   func(userData any)
	data any
}

// DefineFinalizer sets the FINALIZE flag and appends fn to r's
// finalizer list, skipping exact duplicates the way spec.md §4.7
// describes ("avoiding duplicates via host equality" — here, same
// function pointer and data).
func (os *ObjectSpace) DefineFinalizer(r Ref, fn func(userData any), data any) {
	if !r.Valid() {
		return
	}
	p, idx := r.Page, int(r.Idx)
	p.slots[idx].flags |= flagFinalize
	key := idx

	pageMap, ok := os.finalizers[p.id]
	if !ok {
		pageMap = make(map[uint32][]finalizerEntry)
		os.finalizers[p.id] = pageMap
	}
	for _, e := range pageMap[uint32(key)] {
		if sameFn(e.fn, fn) && e.data == data {
			return
		}
	}
	pageMap[uint32(key)] = append(pageMap[uint32(key)], finalizerEntry{fn: fn, data: data})
	p.finalSlots++
	os.stats.finalizerCount++
}

func sameFn(a, b func(userData any)) bool {
	return reflectValuePointer(a) == reflectValuePointer(b)
}

// reflectValuePointer extracts the pointer a function value holds (its
// closure object, not its code address) for identity comparison, since
// Go funcs aren't otherwise comparable.
func reflectValuePointer(f func(userData any)) uintptr {
	type funcHeader struct{ p unsafe.Pointer }
	if f == nil {
		return 0
	}
	return uintptr((*funcHeader)(unsafe.Pointer(&f)).p)
}

// UndefineFinalizer clears FINALIZE and deletes r's table entry
// (spec.md §4.7 undefine_finalizer).
func (os *ObjectSpace) UndefineFinalizer(r Ref) {
	if !r.Valid() {
		return
	}
	p, idx := r.Page, int(r.Idx)
	if p.slots[idx].flags&flagFinalize == 0 {
		return
	}
	p.slots[idx].flags &^= flagFinalize
	if pageMap, ok := os.finalizers[p.id]; ok {
		if _, had := pageMap[uint32(idx)]; had {
			delete(pageMap, uint32(idx))
			p.finalSlots--
		}
	}
}

// CopyFinalizer copies dest's finalizer list from src (spec.md §6
// copy_finalizer).
func (os *ObjectSpace) CopyFinalizer(dest, src Ref) {
	if pageMap, ok := os.finalizers[src.Page.id]; ok {
		if entries, ok := pageMap[src.Idx]; ok && len(entries) > 0 {
			cp := append([]finalizerEntry(nil), entries...)
			for _, e := range cp {
				os.DefineFinalizer(dest, e.fn, e.data)
			}
		}
	}
}

// zombieNode is one link of the lock-free deferred_final list (spec.md
// §3 "queued on a per-ObjectSpace MPSC-like lock-free list
// (deferred_final)").
type zombieNode struct {
	ref  Ref
	next unsafe.Pointer // *zombieNode
}

type deferredFinal struct {
	head unsafe.Pointer // *zombieNode
}

// push CASes n onto the head of the list (spec.md §4.7 "appended ...
// via CAS on its head").
func (d *deferredFinal) push(n *zombieNode) {
	for {
		old := atomic.LoadPointer(&d.head)
		n.next = old
		if atomic.CompareAndSwapPointer(&d.head, old, unsafe.Pointer(n)) {
			return
		}
	}
}

// drain atomically takes the whole list, returning it oldest-push-last
// (the caller reverses if insertion order matters; the finalizer runner
// doesn't care about order across distinct objects).
func (d *deferredFinal) drain() *zombieNode {
	for {
		old := atomic.LoadPointer(&d.head)
		if old == nil {
			return nil
		}
		if atomic.CompareAndSwapPointer(&d.head, old, nil) {
			return (*zombieNode)(old)
		}
	}
}

// MakeZombie converts r into a ZOMBIE sentinel and enqueues it for
// finalization (spec.md §6 make_zombie, §3 "Zombie" lifecycle).
func (os *ObjectSpace) MakeZombie(r Ref, dfree func(userData any), data any) {
	p, idx := r.Page, int(r.Idx)
	p.slots[idx].kind = KindZombie
	p.slots[idx].finalizerFn = dfree
	p.slots[idx].zombieData = data
	os.deferred.push(&zombieNode{ref: r})
}

// RunFinalizers drains the deferred_final list, invoking each zombie's
// dfree callback and any host finalizer callables, then frees the
// underlying slot (spec.md §4.7's "postponed job"). A panic inside a
// host finalizer is recovered and logged, never propagated — spec.md
// §7 "Finalizer exceptions: swallowed/logged by the host; must not
// propagate into the GC."
func (os *ObjectSpace) RunFinalizers() int {
	n := os.deferred.drain()
	ran := 0
	for n != nil {
		next := (*zombieNode)(n.next)
		os.runOneFinalizer(n.ref)
		ran++
		n = next
	}
	return ran
}

func (os *ObjectSpace) runOneFinalizer(r Ref) {
	defer func() {
		if rec := recover(); rec != nil {
			os.log.Warnw("finalizer panicked", "recovered", rec)
		}
	}()
	p, idx := r.Page, int(r.Idx)
	s := &p.slots[idx]
	if s.finalizerFn != nil {
		s.finalizerFn(s.zombieData)
	}
	if s.flags&flagFinalize != 0 {
		if pageMap, ok := os.finalizers[p.id]; ok {
			for _, e := range pageMap[r.Idx] {
				e.fn(e.data)
			}
			delete(pageMap, r.Idx)
		}
		p.finalSlots--
		os.forgetObjectID(r)
	}
	p.PushFree(idx)
}
