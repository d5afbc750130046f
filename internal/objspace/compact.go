package objspace

import "sort"

// PageOrder is the pluggable comparator spec.md §4.6 calls
// compare_func, ordering pages before a compaction pass. The default
// mirrors the original's: ascending pinned-slot count, "so the
// most-movable pages drain first".
type PageOrder func(a, b *Page) bool

// DefaultPageOrder implements the original's default compare_func.
func DefaultPageOrder(a, b *Page) bool { return a.pinned.PopCount() < b.pinned.PopCount() }

// CompactOptions configures one compaction pass.
type CompactOptions struct {
	Order PageOrder
}

// StartCompaction moves live, unpinned, movable slots from the tail of
// each heap's page list toward the head, converging two cursors per
// heap (spec.md §4.6): compactCursor walks backward from the tail, a
// local forward cursor walks forward from the head, and the pass stops
// when they meet.
func (os *ObjectSpace) StartCompaction(opts CompactOptions) {
	if opts.Order == nil {
		opts.Order = DefaultPageOrder
	}
	os.mode = ModeCompacting
	os.duringCompacting = true

	for _, h := range os.heaps {
		os.sortPagesForCompaction(h, opts.Order)
		h.compactCursor = h.pages.Back()
		forward := h.pages.Front()
		for forward != nil && h.compactCursor != nil && forward != h.compactCursor {
			src := h.compactCursor
			os.compactPage(h, src.Value)
			prev := src.Prev()
			h.compactCursor = prev
			if prev == forward {
				break
			}
			forward = forward.Next()
		}
	}

	os.updateAllReferences()
	os.duringCompacting = false
	os.duringRefUpdate = false
	os.mode = ModeNone
}

// sortPagesForCompaction reorders h's page list per order. The pages
// are snapshotted into a slice, sorted with sort.Slice, then walked
// back into list order via MoveToBack; this runs once per compaction,
// not per allocation, so the snapshot's allocation cost doesn't matter.
func (os *ObjectSpace) sortPagesForCompaction(h *Heap, order PageOrder) {
	pages := make([]*Page, 0, h.pages.Len())
	h.pages.Each(func(e *PageElem) { pages = append(pages, e.Value) })

	sort.Slice(pages, func(i, j int) bool { return order(pages[i], pages[j]) })

	for _, p := range pages {
		h.pages.MoveToBack(h.pageElems[p.id])
	}
}

// compactPage moves every marked, movable, unpinned slot off src into a
// destination page, leaving a MOVED sentinel behind (spec.md §4.6).
// Once fully processed, src is marked protected: further reads must
// resolve through Location rather than touching src directly — the
// branch-check read barrier (see Location below) instead of an actual
// mprotect fault.
func (os *ObjectSpace) compactPage(h *Heap, src *Page) {
	for idx := 0; idx < src.totalSlots; idx++ {
		if src.slots[idx].kind != KindObject {
			continue
		}
		if !src.mark.Test(idx) {
			continue
		}
		if src.pinned.Test(idx) {
			continue
		}

		origSize := src.slotSize
		destClass := ClassFor(origSize)
		dst, dstIdx, ok := os.findCompactionDestination(destClass, src, idx)
		if !ok {
			// No room to move it this pass; leave it in place.
			continue
		}

		moved := src.slots[idx]
		dst.slots[dstIdx] = moved
		dst.slots[dstIdx].kind = KindObject
		copyBit(&dst.mark, dstIdx, true)
		copyBit(&dst.pinned, dstIdx, src.pinned.Test(idx))
		copyBit(&dst.uncollectible, dstIdx, src.uncollectible.Test(idx))
		copyBit(&dst.wbUnprotected, dstIdx, src.wbUnprotected.Test(idx))
		copyBit(&dst.remembered, dstIdx, src.remembered.Test(idx))
		dst.age.Set(dstIdx, src.age.Get(idx))

		if pageMap, ok := os.finalizers[src.id]; ok {
			if entries, had := pageMap[uint32(idx)]; had {
				if os.finalizers[dst.id] == nil {
					os.finalizers[dst.id] = make(map[uint32][]finalizerEntry)
				}
				os.finalizers[dst.id][uint32(dstIdx)] = entries
				delete(pageMap, uint32(idx))
			}
		}
		if id, had := os.objToID[Ref{Page: src, Idx: uint32(idx)}]; had {
			delete(os.objToID, Ref{Page: src, Idx: uint32(idx)})
			newRef := Ref{Page: dst, Idx: uint32(dstIdx)}
			os.objToID[newRef] = id
			if os.idToObj != nil {
				os.idToObj[id] = newRef
			}
		}

		src.slots[idx] = slot{
			kind:        KindMoved,
			destination: Ref{Page: dst, Idx: uint32(dstIdx)},
			origShapeID: 0,
		}
		src.pinned.Set(idx)
	}
	src.protected = true
}

func copyBit(b *bitset, idx int, v bool) {
	if v {
		b.Set(idx)
	} else {
		b.Clear(idx)
	}
}

// findCompactionDestination picks a free slot on a page other than src
// large enough for destClass, popping it off that page's freelist.
func (os *ObjectSpace) findCompactionDestination(destClass int, src *Page, srcIdx int) (*Page, int, bool) {
	h := os.heaps[destClass]
	var result *Page
	var idx uint32
	h.pages.Each(func(e *PageElem) {
		if result != nil {
			return
		}
		p := e.Value
		if p == src {
			return
		}
		if p.freelistHead < 0 {
			return
		}
		i, ok := p.PopFree()
		if !ok {
			return
		}
		result, idx = p, i
	})
	if result == nil {
		return nil, 0, false
	}
	return result, int(idx), true
}

// Location resolves ref through any MOVED forwarder, converging on the
// final destination (spec.md §4.6 "location(p)"). This is the
// branch-check read barrier spec.md §9 sanctions as the non-SIGSEGV
// alternative: every dereference through the host's "update_references"
// callback (and any direct collector code) must call Location instead
// of touching ref.Page.slots[ref.Idx] when ref.Page.protected might be
// true.
func (os *ObjectSpace) Location(ref Ref) Ref {
	for ref.Valid() && ref.Page.slots[ref.Idx].kind == KindMoved {
		ref = ref.Page.slots[ref.Idx].destination
	}
	return ref
}

// MarkAndMove rewrites *ptr to its post-compaction location (spec.md §6
// mark_and_move), used only during the reference-update pass.
func (os *ObjectSpace) MarkAndMove(ptr *Ref) {
	*ptr = os.Location(*ptr)
}

// updateAllReferences is the full-references-update pass (spec.md §4.6):
// after sweeping finishes, every live slot's outgoing pointers are
// rewritten through Location via the host callback, and weak references
// are rewritten too.
func (os *ObjectSpace) updateAllReferences() {
	os.duringRefUpdate = true
	for _, h := range os.heaps {
		h.pages.Each(func(e *PageElem) {
			p := e.Value
			for idx := 0; idx < p.totalSlots; idx++ {
				if p.slots[idx].kind != KindObject || !p.mark.Test(idx) {
					continue
				}
				os.hooks.UpdateReferences(os, Ref{Page: p, Idx: uint32(idx)})
			}
		})
	}
	for i := range os.weak.entries {
		*os.weak.entries[i].slot = os.Location(*os.weak.entries[i].slot)
	}
	// Any page fully drained on the source side during compaction is
	// now dead weight: reclaim it into the empty-pages pool, matching
	// spec.md §4.5's handling of a page whose live count drops to zero.
	for _, h := range os.heaps {
		var dead []*Page
		h.pages.Each(func(e *PageElem) {
			p := e.Value
			if p.protected && os.pageFullyForwarded(p) {
				dead = append(dead, p)
			}
		})
		for _, p := range dead {
			h.removePage(p)
			os.unregisterPage(p)
			os.emptyPages = append(os.emptyPages, p)
		}
	}
}

func (os *ObjectSpace) pageFullyForwarded(p *Page) bool {
	for idx := 0; idx < p.totalSlots; idx++ {
		if p.slots[idx].kind == KindObject {
			return false
		}
	}
	return true
}

// VerifyCompactionReferences re-walks every live object and confirms
// none of its outgoing references still point at a MOVED slot (spec.md
// §8 testable property 4). Intended for test/debug use, not the hot
// path.
func (os *ObjectSpace) VerifyCompactionReferences() []Ref {
	var bad []Ref
	for _, h := range os.heaps {
		h.pages.Each(func(e *PageElem) {
			p := e.Value
			for idx := 0; idx < p.totalSlots; idx++ {
				if p.slots[idx].kind != KindObject || !p.mark.Test(idx) {
					continue
				}
				self := Ref{Page: p, Idx: uint32(idx)}
				os.hooks.MarkChildren(os, self, func(child Ref) {
					if child.Valid() && child.Page.slots[child.Idx].kind == KindMoved {
						bad = append(bad, child)
					}
				})
			}
		})
	}
	return bad
}
