package objspace

import "graviton/internal/llist"

// PageElem is the llist element type used when iterating a heap's page
// list; exported so sibling files (mark.go, sweep.go, compact.go) can
// name it without re-deriving the generic instantiation.
type PageElem = llist.Element[*Page]

// Heap owns every page for one size class (spec.md §3 "Heap (per size
// class)"). The page list, free list and pooled list are all
// llist.List instances adapted from the teacher's container/list —
// generalized from container/list.Element's `interface{}` payload to a
// generic *Page payload, grounded on cloudfly-readgo's mcentral.go
// nonempty/empty mspan lists, which this mirrors at a coarser (page,
// not span) granularity.
type Heap struct {
	class int

	pages      *llist.List[*Page]
	pageElems  map[uint32]*llist.Element[*Page]
	freePages  *llist.List[*Page]
	freeElems  map[uint32]*llist.Element[*Page]
	pooledPages *llist.List[*Page]

	sweepingPage *llist.Element[*Page]
	compactCursor *llist.Element[*Page]

	totalPages            int
	totalSlots            int
	totalAllocatedObjects uint64
	totalFreedObjects     uint64
	finalSlotsCount       int
	freedSlots            int
	emptySlots            int
}

func newHeap(class int) *Heap {
	return &Heap{
		class:       class,
		pages:       llist.New[*Page](),
		pageElems:   make(map[uint32]*llist.Element[*Page]),
		freePages:   llist.New[*Page](),
		freeElems:   make(map[uint32]*llist.Element[*Page]),
		pooledPages: llist.New[*Page](),
	}
}

// addPage registers a freshly allocated page, appending it to both the
// page list and (since a new page always has free slots) the free list.
func (h *Heap) addPage(p *Page) {
	p.heap = h
	e := h.pages.PushBack(p)
	h.pageElems[p.id] = e
	h.totalPages++
	h.totalSlots += p.totalSlots
	if !p.Full() {
		h.pushFreePage(p)
	}
}

func (h *Heap) pushFreePage(p *Page) {
	if _, ok := h.freeElems[p.id]; ok {
		return
	}
	h.freeElems[p.id] = h.freePages.PushBack(p)
}

func (h *Heap) removeFreePage(p *Page) {
	if e, ok := h.freeElems[p.id]; ok {
		h.freePages.Remove(e)
		delete(h.freeElems, p.id)
	}
}

// popFreePage returns a page known to have at least one free slot, or
// nil if the heap has none (the caller must then grow the heap).
func (h *Heap) popFreePage() *Page {
	e := h.freePages.Front()
	if e == nil {
		return nil
	}
	return e.Value
}

// removePage fully detaches p from the heap, used when sweep drains a
// page to zero live slots and hands it to the global empty-pages pool
// (spec.md §4.5 "A page whose live count drops to zero is fully
// detached ... appended to the global empty-page pool").
func (h *Heap) removePage(p *Page) {
	h.removeFreePage(p)
	if e, ok := h.pageElems[p.id]; ok {
		h.pages.Remove(e)
		delete(h.pageElems, p.id)
	}
	h.totalPages--
	h.totalSlots -= p.totalSlots
}

// Stats returns a snapshot of this heap's counters for Stat/StatHeap.
type HeapStats struct {
	Class                 int
	Pages                 int
	Slots                 int
	AllocatedObjects      uint64
	FreedObjects          uint64
	FinalSlots            int
	FreeSlots             int
	LiveSlots             int
}

func (h *Heap) Stats() HeapStats {
	free := 0
	h.pages.Each(func(e *llist.Element[*Page]) { free += e.Value.freeSlots })
	return HeapStats{
		Class:            h.class,
		Pages:            h.totalPages,
		Slots:            h.totalSlots,
		AllocatedObjects: h.totalAllocatedObjects,
		FreedObjects:     h.totalFreedObjects,
		FinalSlots:       h.finalSlotsCount,
		FreeSlots:        free,
		LiveSlots:        h.totalSlots - free,
	}
}
