package objspace

// sweepIncSlotBudget and sweepIncPoolBudget are the lazy sweep budgets
// of spec.md §4.5: "up to GC_INCREMENTAL_SWEEP_SLOT_COUNT = 2048 freed
// slots and GC_INCREMENTAL_SWEEP_POOL_SLOT_COUNT = 1024 pooled before
// yielding."
const (
	sweepIncSlotBudget = 2048
	sweepIncPoolBudget = 1024
)

// SweepStep sweeps up to the lazy budget across all heaps, returning
// whether any heap still has sweeping left to do. Callers (the Sched's
// GC-trigger path, or a background sweeper) call this repeatedly until
// it returns false (spec.md §4.5 "Lazy sweep budget").
func (os *ObjectSpace) SweepStep() bool {
	os.mode = ModeSweeping
	freed, pooled := 0, 0
	more := false
	for _, h := range os.heaps {
		if h.sweepingPage == nil {
			h.sweepingPage = h.pages.Front()
		}
		for h.sweepingPage != nil && freed < sweepIncSlotBudget && pooled < sweepIncPoolBudget {
			p := h.sweepingPage.Value
			next := h.sweepingPage.Next() // sweepPage may unlink p
			f := os.sweepPage(h, p)
			freed += f
			pooled++
			h.sweepingPage = next
		}
		if h.sweepingPage != nil {
			more = true
		} else {
			os.finishHeapSweep(h, freed)
		}
	}
	if !more {
		os.mode = ModeNone
		os.duringMinorGC = false
	}
	return more
}

// sweepPage walks one page's bitmap planes, retaining marked slots and
// freeing/zombifying unmarked ones (spec.md §4.5). Returns the number
// of slots freed (for the caller's sweep budget accounting).
func (os *ObjectSpace) sweepPage(h *Heap, p *Page) int {
	freedThisPage := 0

	for idx := 0; idx < p.totalSlots; idx++ {
		s := &p.slots[idx]
		if s.kind == KindFree {
			continue
		}
		if p.mark.Test(idx) {
			// Retain: clear the marking bit. The mark bit stays set
			// (compaction reads it) until the next StartMinor or
			// StartMajor resets the mark bitmap.
			p.marking.Clear(idx)
			continue
		}

		r := Ref{Page: p, Idx: uint32(idx)}
		switch s.kind {
		case KindMoved:
			throw("objspace: swept a MOVED slot", r)
		case KindZombie:
			// Already counted when it became a zombie.
			continue
		default:
			os.forgetObjectID(r)
			if s.flags&flagFinalize != 0 {
				os.MakeZombie(r, nil, nil)
				continue
			}
			os.hooks.FinalizeObject(r)
			p.PushFree(uint32(idx))
			freedThisPage++
			os.stats.totalFreedObjects++
			h.totalFreedObjects++
		}
	}

	if p.freelistHead >= 0 {
		h.pushFreePage(p)
	}
	if p.Empty() {
		h.removePage(p)
		os.unregisterPage(p)
		os.emptyPages = append(os.emptyPages, p)
	}
	return freedThisPage
}

// finishHeapSweep runs the per-heap finish step (spec.md §4.5 "Per-heap
// finish: compute swept = freed + empty; if below the configured free
// slot floor, either grow allocatable-slot budget ... or request a
// major GC on the next cycle (MAJOR_BY_NOFREE)").
func (os *ObjectSpace) finishHeapSweep(h *Heap, freed int) {
	h.sweepingPage = nil
	st := h.Stats()
	if st.Slots == 0 {
		return
	}
	ratio := float64(st.FreeSlots) / float64(st.Slots)
	if ratio < os.cfg.HeapFreeSlotsFloor {
		if os.duringIncremental {
			// Grow allocatable-slot budget: request one extra page
			// ahead of demand instead of waiting for the next miss.
			os.growHeap(h)
		} else {
			os.needMajorGC |= ReasonNofree
		}
	}
}

// AcquireEmptyPage drops one page from the global empty-pages pool and
// registers a fresh page, with a new id, in targetClass's heap, sized
// for that class (spec.md §4.2 "Recyclable pages live in the
// per-ObjectSpace empty pages list"). The dropped page's storage is not
// reused. Returns nil when the pool is empty.
func (os *ObjectSpace) AcquireEmptyPage(targetClass int) *Page {
	if len(os.emptyPages) == 0 {
		return nil
	}
	os.emptyPages = os.emptyPages[:len(os.emptyPages)-1]
	h := os.heaps[targetClass]
	return os.registerPage(h, os.cfg.HeapInitSlots[targetClass])
}
