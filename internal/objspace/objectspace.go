package objspace

import (
	"sort"
	"sync"

	"graviton/internal/gcconfig"
	"graviton/internal/gclog"
)

// Mode is the collector's current phase, spec.md §3 "Mode: one of
// {none, marking, sweeping, compacting}".
type Mode uint8

const (
	ModeNone Mode = iota
	ModeMarking
	ModeSweeping
	ModeCompacting
)

func (m Mode) String() string {
	switch m {
	case ModeMarking:
		return "marking"
	case ModeSweeping:
		return "sweeping"
	case ModeCompacting:
		return "compacting"
	default:
		return "none"
	}
}

// MajorGCReason is one bit of the OR'd trigger set spec.md §4.11
// describes (NOFREE, OLDGEN, SHADY, OLDMALLOC, FORCE).
type MajorGCReason uint32

const (
	ReasonNofree MajorGCReason = 1 << iota
	ReasonOldgen
	ReasonShady
	ReasonOldmalloc
	ReasonMalloc
	ReasonForce
)

// RootSource enumerates roots for a mark cycle: stacks, globals,
// registers and collector-owned tables. Out of scope (spec.md §1) is
// reimplementing the host's stack/register walker; ObjectSpace consumes
// it through this callback interface instead.
type RootSource interface {
	// EnumerateRoots calls visit for every live root reference. Roots
	// are always pinned per spec.md §4.4.
	EnumerateRoots(visit func(Ref))
}

// MarkChildren is the host callback invoked once per popped mark-stack
// entry, re-entering the mark primitive for each outgoing reference
// (spec.md §4.4 "Host callback 'mark children of X'").
type MarkChildren func(os *ObjectSpace, r Ref, visit func(Ref))

// UpdateReferences rewrites every outgoing pointer of r through
// os.Location (spec.md §4.6 "Full-references-update").
type UpdateReferences func(os *ObjectSpace, r Ref)

// FinalizeObject tears down a non-finalizable object's host-side state
// during sweep (spec.md §4.5 "run the host's per-type teardown").
type FinalizeObject func(r Ref)

// Hooks bundles every host callback ObjectSpace needs. All fields are
// required; a nil hook is a construction-time bug, not a runtime one.
type Hooks struct {
	Roots            RootSource
	MarkChildren      MarkChildren
	UpdateReferences UpdateReferences
	FinalizeObject   FinalizeObject
}

// ObjectSpace is the whole GC state for one isolated VM instance
// (spec.md §3 "ObjectSpace", GLOSSARY). Concurrency note: per spec.md
// §5 "Object space is not locked per-heap; mutators reach it only via
// the Sched" — osMu exists only to protect the bookkeeping maps/slices
// below from the timer thread and background finalizer goroutine,
// which run concurrently with a Sched's single running Thread.
type ObjectSpace struct {
	log gclog.Logger
	cfg gcconfig.Config

	osMu sync.Mutex

	heaps [NumSizeClasses]*Heap

	// pageIndex is sorted by page id, standing in for address order
	// (spec.md §3 "Page index: sorted dynamic array of page-metadata
	// pointers for binary search by address"). Grounded on the
	// teacher's sort/search.go binary-search idiom, consumed directly
	// via stdlib sort.Search.
	pageIndex []*Page
	nextPageID uint32

	markStack markStack

	markedSlots uint64

	mode              Mode
	duringMinorGC     bool
	duringIncremental bool
	duringCompacting  bool
	duringRefUpdate   bool
	immediateSweep    bool
	dontGC            bool
	dontIncremental   bool
	measureGC         bool

	oldObjects                        uint64
	oldObjectsLimit                   uint64
	uncollectibleWbUnprotectedObjects uint64
	uncollectibleWbUnprotectedLimit   uint64
	needMajorGC                       MajorGCReason

	mallocIncrease     uint64
	mallocLimit        uint64
	oldMallocIncrease  uint64
	oldMallocLimit     uint64

	finalizers map[uint32]map[uint32][]finalizerEntry

	objToID map[Ref]int64
	idToObj map[int64]Ref
	nextID  int64

	emptyPages []*Page

	stats stats

	hooks Hooks

	weak weakRegistry

	deferred deferredFinal

	gcCount uint64

	profile          []ProfileRecord
	totalGCTimeNanos int64
	stressFlags      StressFlags
}

const objIDIncrement = 8 // spec.md §3 "strided by OBJ_ID_INCREMENT"

// New constructs an empty ObjectSpace with the given configuration,
// logger and host hooks (spec.md §6 "objspace_alloc + objspace_init").
func New(cfg gcconfig.Config, log gclog.Logger, hooks Hooks) *ObjectSpace {
	os := &ObjectSpace{
		log:             log,
		cfg:             cfg,
		hooks:           hooks,
		finalizers:      make(map[uint32]map[uint32][]finalizerEntry),
		objToID:         make(map[Ref]int64),
		idToObj:         nil, // built lazily, spec.md §4.7 + Open Question
		nextID:          objIDIncrement,
		oldObjectsLimit: 1 << 20,
		mallocLimit:     cfg.MallocLimitMin,
		oldMallocLimit:  cfg.OldMallocLimitMin,
		measureGC:       true,
	}
	for i := 0; i < NumSizeClasses; i++ {
		os.heaps[i] = newHeap(i)
	}
	os.markStack = newMarkStack()
	return os
}

// Free releases every page this ObjectSpace owns (spec.md §6
// "objspace_free"). Safe to call once, after no Thread holds a
// reference to os.
func (os *ObjectSpace) Free() {
	os.osMu.Lock()
	defer os.osMu.Unlock()
	for i := range os.heaps {
		os.heaps[i] = newHeap(i)
	}
	os.pageIndex = nil
}

// registerPage inserts p into the sorted page index at the correct
// binary-search position, and into its heap (spec.md §4.2
// heap_page_allocate). Grounded on the teacher's sort/search.go:
// "Search(len(data), func(i int) bool { return data[i] >= x })".
func (os *ObjectSpace) registerPage(h *Heap, totalSlots int) *Page {
	id := os.nextPageID
	os.nextPageID++
	p := newPage(id, h.class, totalSlots)
	h.addPage(p)

	i := sort.Search(len(os.pageIndex), func(i int) bool {
		return os.pageIndex[i].id >= id
	})
	os.pageIndex = append(os.pageIndex, nil)
	copy(os.pageIndex[i+1:], os.pageIndex[i:])
	os.pageIndex[i] = p
	return p
}

// unregisterPage removes p from the sorted page index, keeping it
// sorted (spec.md §4.2 heap_page_free).
func (os *ObjectSpace) unregisterPage(p *Page) {
	i := sort.Search(len(os.pageIndex), func(i int) bool {
		return os.pageIndex[i].id >= p.id
	})
	if i < len(os.pageIndex) && os.pageIndex[i] == p {
		os.pageIndex = append(os.pageIndex[:i], os.pageIndex[i+1:]...)
	}
}

// PageFor returns the page owning ref, or nil. In a real pointer-based
// implementation this is page_for(ptr) masking the address down to
// PAGE_ALIGN; here Ref already carries its Page directly, so PageFor is
// only useful for validating a Ref came from this ObjectSpace (spec.md
// §8 testable property 1's "page_for(addr) returns that page").
func (os *ObjectSpace) PageFor(r Ref) *Page {
	if !r.Valid() {
		return nil
	}
	i := sort.Search(len(os.pageIndex), func(i int) bool {
		return os.pageIndex[i].id >= r.Page.id
	})
	if i < len(os.pageIndex) && os.pageIndex[i] == r.Page {
		return r.Page
	}
	return nil
}

// Mode reports the collector's current phase.
func (os *ObjectSpace) Mode() Mode { return os.mode }
