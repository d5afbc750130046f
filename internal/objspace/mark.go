package objspace

import "sort"

// markChunkSize is the number of Refs held per mark stack chunk
// (spec.md §3 "Mark stack: chunked stack of slot references (chunks of
// 500)").
const markChunkSize = 500

type markChunk struct {
	refs [markChunkSize]Ref
	n    int
	prev *markChunk
}

// markStack is a chunked, explicit stack of Refs (spec.md §9 "Cyclic
// mark stack: use an explicit Vec<SlotRef> with a chunked free-list; do
// not recurse"), with a small chunk cache so repeated mark cycles don't
// reallocate chunks (spec.md §3 "with a small chunk cache").
type markStack struct {
	top   *markChunk
	cache []*markChunk
}

func newMarkStack() markStack {
	return markStack{}
}

func (s *markStack) chunk() *markChunk {
	if n := len(s.cache); n > 0 {
		c := s.cache[n-1]
		s.cache = s.cache[:n-1]
		c.n = 0
		return c
	}
	return &markChunk{}
}

func (s *markStack) release(c *markChunk) {
	if len(s.cache) < 8 {
		s.cache = append(s.cache, c)
	}
}

func (s *markStack) Push(r Ref) {
	if s.top == nil || s.top.n == markChunkSize {
		c := s.chunk()
		c.prev = s.top
		s.top = c
	}
	s.top.refs[s.top.n] = r
	s.top.n++
}

func (s *markStack) Pop() (Ref, bool) {
	for s.top != nil {
		if s.top.n > 0 {
			s.top.n--
			return s.top.refs[s.top.n], true
		}
		done := s.top
		s.top = s.top.prev
		s.release(done)
	}
	return Ref{}, false
}

func (s *markStack) Empty() bool { return s.top == nil || (s.top.n == 0 && s.top.prev == nil) }

// color spec.md §4.4: white = ¬mark; black = mark ∧ ¬marking; grey =
// mark ∧ marking.
type color uint8

const (
	colorWhite color = iota
	colorBlack
	colorGrey
)

func colorOf(p *Page, idx int) color {
	marked := p.mark.Test(idx)
	marking := p.marking.Test(idx)
	switch {
	case !marked:
		return colorWhite
	case marking:
		return colorGrey
	default:
		return colorBlack
	}
}

// IsWbProtected reports whether the slot at r honors the write barrier
// (spec.md GLOSSARY "Shady / wb-unprotected").
func (os *ObjectSpace) IsWbProtected(r Ref) bool {
	return !r.Page.wbUnprotected.Test(int(r.Idx))
}

// IsOld reports whether r has reached the OLD age (spec.md §3 invariant
// 2: "age == OLD ⇔ uncollectible bit set").
func (os *ObjectSpace) IsOld(r Ref) bool {
	return r.Page.uncollectible.Test(int(r.Idx))
}

// pushRoot marks r as a (pinned) root and pushes it onto the mark stack
// (spec.md §4.4 "Roots ... pushed onto the mark stack with the pinned
// bit set").
func (os *ObjectSpace) pushRoot(r Ref) {
	p, idx := r.Page, int(r.Idx)
	p.pinned.Set(idx)
	if !p.mark.Test(idx) {
		p.mark.Set(idx)
		os.markedSlots++
		if os.duringIncremental {
			p.marking.Set(idx)
		}
		os.markStack.Push(r)
	}
}

// Mark marks r grey (or black outside incremental marking), pushing it
// for later child-tracing. This is the external `mark(objspace, slot)`
// primitive of spec.md §6.
func (os *ObjectSpace) Mark(r Ref) {
	if !r.Valid() {
		return
	}
	p, idx := r.Page, int(r.Idx)
	if p.mark.Test(idx) {
		return
	}
	p.mark.Set(idx)
	os.markedSlots++
	if os.duringIncremental {
		p.marking.Set(idx)
	}
	os.markStack.Push(r)
}

// MarkAndPin marks and additionally sets the pinned bit, so compaction
// will never relocate r (spec.md §6 mark_and_pin).
func (os *ObjectSpace) MarkAndPin(r Ref) {
	if !r.Valid() {
		return
	}
	r.Page.pinned.Set(int(r.Idx))
	os.Mark(r)
}

// EncodeMaybe packs a Ref into the conservative-pointer word mark_maybe
// scans for (spec.md §6 mark_maybe, §9's "explicit {page_id,
// slot_index} handle in place of raw pointer arithmetic"). A real
// collector would instead derive this word from the address range it
// conservatively scans (the stack, saved registers); this collector has
// no raw addresses, so callers that want to exercise mark_maybe build
// the word from a Ref they already hold.
func EncodeMaybe(r Ref) uintptr {
	if !r.Valid() {
		return 0
	}
	return uintptr(r.Page.id)<<32 | uintptr(r.Idx)
}

// MarkMaybe is the conservative "check-and-mark potential interior
// pointer" primitive of spec.md §6 mark_maybe: word may or may not
// decode to a page/slot this ObjectSpace owns, or may point at a slot
// that's free, moved, or already a sentinel. Anything other than a
// live, allocated slot is silently ignored, exactly as a real
// conservative scanner ignores a stack word that merely looks
// pointer-shaped.
func (os *ObjectSpace) MarkMaybe(word uintptr) {
	pageID := uint32(word >> 32)
	idx := uint32(word & 0xffffffff)

	i := sort.Search(len(os.pageIndex), func(i int) bool {
		return os.pageIndex[i].id >= pageID
	})
	if i >= len(os.pageIndex) || os.pageIndex[i].id != pageID {
		return
	}
	p := os.pageIndex[i]
	if int(idx) >= p.totalSlots {
		return
	}
	if p.slots[idx].kind != KindObject {
		return
	}
	os.Mark(Ref{Page: p, Idx: idx})
}

// StartMinor begins a minor (remembered-set) mark cycle. Each page's
// mark bitmap starts as a copy of its uncollectible bitmap, so old
// objects survive without being traced; then the remember set
// (remembered objects and old wb-unprotected ones) and the roots are
// traced. An old object that is neither remembered nor wb-unprotected
// is not traced.
func (os *ObjectSpace) StartMinor() {
	os.mode = ModeMarking
	os.duringMinorGC = true
	os.duringIncremental = false
	for _, h := range os.heaps {
		h.pages.Each(func(e *PageElem) {
			copy(e.Value.mark.words, e.Value.uncollectible.words)
		})
	}
	os.markRememberSet()
	os.hooks.Roots.EnumerateRoots(os.pushRoot)
	os.drainMarkStack()
	os.finishMarks()
}

// StartMajor begins a full mark cycle: the remembered and mark bitmaps
// are cleared first (spec.md §4.4 "Major: full traversal from roots;
// remembered and mark bitmaps are cleared beforehand"), then every
// heap's pages are walked to clear per-page state before tracing roots.
func (os *ObjectSpace) StartMajor(incremental bool) {
	os.mode = ModeMarking
	os.duringMinorGC = false
	os.duringIncremental = incremental
	for _, h := range os.heaps {
		h.pages.Each(func(e *PageElem) {
			p := e.Value
			p.mark.ClearAll()
			p.remembered.ClearAll()
			p.hasRememberedObjects = false
			if incremental {
				p.marking.ClearAll()
			}
		})
	}
	os.hooks.Roots.EnumerateRoots(os.pushRoot)
	if !incremental {
		os.drainMarkStack()
		os.finishMarks()
	}
}

// markRememberSet traces the remembered bitmap and the
// uncollectible∧wb_unprotected intersection on every page with
// has_remembered_objects set (spec.md §4.4 "through
// rgengc_rememberset_mark which walks the remembered bitmap and the
// intersection of uncollectible and wb-unprotected bitmaps").
func (os *ObjectSpace) markRememberSet() {
	for _, h := range os.heaps {
		h.pages.Each(func(e *PageElem) {
			p := e.Value
			if !p.hasRememberedObjects {
				return
			}
			shady := andBitsets(&p.uncollectible, &p.wbUnprotected)
			for i := 0; i < p.totalSlots; i++ {
				if p.remembered.Test(i) || shady.Test(i) {
					os.pushRoot(Ref{Page: p, Idx: uint32(i)})
				}
			}
		})
	}
}

// MarkStep pops up to budget entries from the mark stack, tracing
// children of each through the host MarkChildren callback, aging
// wb-protected survivors (spec.md §4.4). Returns the number of slots
// actually processed, for the incremental scheduler in alloc.go.
func (os *ObjectSpace) MarkStep(budget int) int {
	processed := 0
	for processed < budget {
		r, ok := os.markStack.Pop()
		if !ok {
			break
		}
		processed++
		p, idx := r.Page, int(r.Idx)

		// spec.md §4.4 generational aging: increments on every mark of a
		// young wb-protected object, in both minor and major cycles, once
		// full-mark GCs are allowed at all (disabling them disables aging
		// too, so objects don't get promoted while majors can't run to
		// reclaim them). The uncollectible-bit transition that finalizes
		// the young→OLD promotion only happens during a major cycle: an
		// object whose age plane hits AgeOld during a minor cycle is
		// caught up here the next time a major cycle visits it.
		if os.cfg.AllowFullMark && os.IsWbProtected(r) {
			if p.age.Get(idx) < AgeOld {
				if reachedOld := p.age.Increment(idx); reachedOld && !os.duringMinorGC {
					p.uncollectible.Set(idx)
					os.oldObjects++
				}
			} else if !os.duringMinorGC && !os.IsOld(r) {
				p.uncollectible.Set(idx)
				os.oldObjects++
			}
		}
		if os.duringIncremental {
			p.marking.Clear(idx) // becomes black
		}
		os.hooks.MarkChildren(os, r, os.Mark)
	}
	return processed
}

// drainMarkStack runs MarkStep to exhaustion, used by non-incremental
// (stop-the-world) cycles.
func (os *ObjectSpace) drainMarkStack() {
	for !os.markStack.Empty() {
		os.MarkStep(1 << 20)
	}
}

// finishMarks is gc_marks_finish (spec.md §4.4): drains roots one more
// time, resolves weak references, then transitions to sweep.
func (os *ObjectSpace) finishMarks() {
	os.hooks.Roots.EnumerateRoots(os.pushRoot)
	os.drainMarkStack()
	os.resolveWeakRefs()
	os.duringIncremental = false
	os.mode = ModeSweeping
}
