package objspace

// incrementalMarkStepAllocations bounds how many allocations the fast
// path will serve before it must run a mark step (spec.md §4.3 step 3,
// INCREMENTAL_MARK_STEP_ALLOCATIONS = 500).
const incrementalMarkStepAllocations = 500

// classFreelist is one {freelist, using_page} pair of the per-execution
// context cache (spec.md §3 "Allocator fast path / ractor cache").
// Unlike Page's freelist (linked through slot.freeNext), the cache's
// freelist is a plain slice of slot indices into usingPage: once the
// cache takes over a page's freelist the page's own free_slots count is
// zeroed until the cache drains back into it (spec.md §4.3 step 4).
type classFreelist struct {
	usingPage *Page
	free      []uint32
}

// RactorCache is the per-execution-context allocator cache (spec.md §2
// item 4, §4.3). One exists per Thread-owning execution context; it is
// not itself concurrency-safe, matching "mutators reach it only via the
// Sched" (spec.md §5).
type RactorCache struct {
	classes [NumSizeClasses]classFreelist

	allocsSinceMarkStep int
}

// NewRactorCache constructs an empty cache.
func NewRactorCache() *RactorCache { return &RactorCache{} }

// NewObj is the external `new_obj` entry point (spec.md §6). v1,v2,v3
// are the caller-supplied initial words; wbProtected controls whether
// the slot starts wb-unprotected (shady) or not.
func (os *ObjectSpace) NewObj(cache *RactorCache, typ *Type, v1, v2, v3 uintptr, wbProtected bool, allocSize uintptr) Ref {
	if !SizeAllocatable(allocSize) {
		throw("objspace: allocation request exceeds largest size class", allocSize)
	}
	class := ClassFor(allocSize)
	r := os.allocFromCache(cache, class)

	p, idx := r.Page, int(r.Idx)
	p.slots[idx] = slot{kind: KindObject, typ: typ, v1: v1, v2: v2, v3: v3}
	if !wbProtected {
		p.wbUnprotected.Set(idx)
		os.uncollectibleWbUnprotectedObjects++
		p.hasUncollectibleWbUnprotected = true
	}

	os.stats.totalAllocatedObjects++
	h := os.heaps[class]
	h.totalAllocatedObjects++

	cache.allocsSinceMarkStep++
	if os.duringIncremental && cache.allocsSinceMarkStep >= incrementalMarkStepAllocations {
		os.incrementalMarkStep()
		cache.allocsSinceMarkStep = 0
	}
	return r
}

// allocFromCache implements the four-step fast path of spec.md §4.3.
func (os *ObjectSpace) allocFromCache(cache *RactorCache, class int) Ref {
	cl := &cache.classes[class]

	if n := len(cl.free); n > 0 {
		idx := cl.free[n-1]
		cl.free = cl.free[:n-1]
		return Ref{Page: cl.usingPage, Idx: idx}
	}

	if os.duringIncremental {
		// Refuse without first running a mark step, bounded at
		// incrementalMarkStepAllocations between steps (spec.md §4.3
		// step 3).
		os.incrementalMarkStep()
	}

	h := os.heaps[class]
	p := h.popFreePage()
	if p == nil {
		p = os.growHeap(h)
	}

	// The cache takes over the page's remaining freelist; free_slots
	// is zeroed on the page side until the cache drains back
	// (spec.md §4.3 step 4).
	free := make([]uint32, 0, p.freeSlots)
	for {
		idx, ok := p.PopFree()
		if !ok {
			break
		}
		free = append(free, idx)
	}
	h.removeFreePage(p)

	idx := free[len(free)-1]
	cl.usingPage = p
	cl.free = free[:len(free)-1]
	return Ref{Page: p, Idx: idx}
}

// growHeap allocates a fresh page for h, registering it with the page
// index (spec.md §4.2 heap_page_allocate). Size matches
// HeapInitSlots[h.class] for a heap's first page and grows by
// HeapGrowthFactor thereafter, capped by HeapGrowthMaxSlots if set.
func (os *ObjectSpace) growHeap(h *Heap) *Page {
	n := os.cfg.HeapInitSlots[h.class]
	if h.totalPages > 0 {
		grown := float64(n) * os.cfg.HeapGrowthFactor
		n = int(grown)
		if os.cfg.HeapGrowthMaxSlots > 0 && n > os.cfg.HeapGrowthMaxSlots {
			n = os.cfg.HeapGrowthMaxSlots
		}
	}
	if n <= 0 {
		n = 1
	}
	return os.registerPage(h, n)
}

// incrementalMarkStep runs one scheduled mark step, with a slot budget
// computed the way spec.md §4.4 describes: "step_slots = (marked_slots
// * 2) / max(1, pooled_slots/500 + 1)".
func (os *ObjectSpace) incrementalMarkStep() {
	pooled := 0
	for _, h := range os.heaps {
		h.pooledPages.Each(func(*PageElem) { pooled++ })
	}
	budget := int((os.markedSlots * 2) / uint64(maxInt(1, pooled/500+1)))
	if budget <= 0 {
		budget = markChunkSize
	}
	processed := os.MarkStep(budget)
	if processed == 0 && os.markStack.Empty() {
		os.finishMarks()
	}
}

// DrainCache returns every slot a RactorCache is still holding back to
// its owning page's freelist, and the page itself back to its heap's
// free-pages list. Called at a safepoint before a stop-the-world phase
// so the heap's free-page accounting is exact (spec.md §4.3 step 4's
// "until the cache is drained back").
func (os *ObjectSpace) DrainCache(cache *RactorCache) {
	for i := range cache.classes {
		cl := &cache.classes[i]
		if cl.usingPage == nil {
			continue
		}
		for _, idx := range cl.free {
			cl.usingPage.PushFree(idx)
		}
		if !cl.usingPage.Full() {
			os.heaps[i].pushFreePage(cl.usingPage)
		}
		cl.free = nil
		cl.usingPage = nil
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
