// Package objspace implements the collector's heap model: size-classed
// pages, bitmaps, the allocator fast path, write barrier, mark/sweep/
// compact phases, finalizers, object ids and weak references (spec.md
// §2 items 1-6, §3, §4.1-§4.8). It is grounded on the teacher's
// runtime/mstats.go, runtime/mfinal.go and runtime/mprof.go for the
// ambient statistics/finalizer shape, and on cloudfly-readgo's
// runtime/malloc.go, mcentral.go and msize.go for the size-classed
// heap/allocator algorithm spec.md §4.2-§4.3 describe.
package objspace

import "fmt"

// Type is a lightweight stand-in for the host VM's class/type pointer.
// The collector only needs to compare identity and ask a type for its
// storage size; the host object model itself is out of scope (spec.md
// §1 "Out of scope").
type Type struct {
	Name string
	// Size is the object's storage footprint in bytes, used to pick a
	// size class at allocation time.
	Size uintptr
}

// gcFlags packs the per-slot bits spec.md §3 describes as living in the
// slot's first machine word: type tag bits plus a handful of GC bits
// not already covered by the page-level bitmaps (mark/pinned/etc. live
// in the page, not here — see page.go).
type gcFlags uint32

const (
	flagNone gcFlags = 0
	// flagFinalize marks a slot as having a finalizer registered;
	// spec.md §4.7 "set the FINALIZE flag".
	flagFinalize gcFlags = 1 << iota
	flagShady
)

// Kind distinguishes the sentinel slot types from ordinary objects
// (spec.md §3 "Slot (object cell)").
type Kind uint8

const (
	// KindObject is an ordinary, host-owned object.
	KindObject Kind = iota
	// KindFree marks a slot threaded onto a page's freelist.
	KindFree
	// KindMoved is the forwarding sentinel left by compaction.
	KindMoved
	// KindZombie is an object awaiting finalizer execution.
	KindZombie
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindFree:
		return "free"
	case KindMoved:
		return "moved"
	case KindZombie:
		return "zombie"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Ref is a handle to one slot: which page it lives on and its index
// within that page's bitmaps. This is the "explicit {page_id, slot_index}
// handle" spec.md §9's design notes recommend in place of raw pointer
// arithmetic for languages without it.
type Ref struct {
	Page *Page
	Idx  uint32
}

// Valid reports whether r refers to an actual page.
func (r Ref) Valid() bool { return r.Page != nil }

// SlotSize returns the storage footprint of r's size class, in bytes
// (spec.md §6 obj_slot_size).
func (r Ref) SlotSize() uintptr {
	if !r.Valid() {
		return 0
	}
	return r.Page.slotSize
}

func (r Ref) String() string {
	if !r.Valid() {
		return "Ref(nil)"
	}
	return fmt.Sprintf("Ref(page=%d,idx=%d)", r.Page.id, r.Idx)
}

// slot is the storage backing one object cell. free/moved/zombie reuse
// the same struct with different Kind tags and payload fields, mirroring
// spec.md §3's MOVED/ZOMBIE sentinels sharing the slot's word layout.
type slot struct {
	kind  Kind
	flags gcFlags
	typ   *Type

	// object payload: three host-provided initial words (spec.md §6
	// new_obj's v1,v2,v3) plus an arbitrary value for larger storage
	// (the decimal/float fragment's digit buffer, for instance).
	v1, v2, v3 uintptr
	extra      any

	// MOVED payload.
	destination     Ref
	origShapeID     uint32

	// FREE payload: next free slot in this page's freelist.
	freeNext uint32

	// ZOMBIE payload.
	finalizerFn   func(userData any)
	zombieData    any
	nextZombie    *slot
}
