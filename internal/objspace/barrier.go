package objspace

// WriteBarrier implements "a now references b" (spec.md §4.4). The
// fast path is the single composite predicate spec.md §9 calls for:
// "express the two conditions (a.old && !b.old, and in incremental mode
// a.black && b.white) as a single composite predicate computed from
// packed GC bits" — here that's the two cheap bitmap tests below, no
// branch-heavy dispatch beyond the incremental/non-incremental split.
func (os *ObjectSpace) WriteBarrier(a, b Ref) {
	if !a.Valid() || !b.Valid() {
		return
	}
	aOld := os.IsOld(a)
	bOld := os.IsOld(b)

	if os.duringIncremental {
		if colorOf(a.Page, int(a.Idx)) == colorBlack &&
			colorOf(b.Page, int(b.Idx)) == colorWhite &&
			os.IsWbProtected(a) {
			// mark-from: mark b grey directly, preserving the
			// tri-color invariant without re-scanning a.
			os.markGrey(b)
		} else if aOld && !bOld {
			os.remember(a)
		}
		if os.duringCompacting {
			b.Page.pinned.Set(int(b.Idx))
		}
		return
	}
	if aOld && !bOld {
		os.remember(a)
	}
}

// markGrey marks b grey without aging it as a full Mark() traversal
// step would (spec.md §4.4's write-barrier "mark-from" case only needs
// to flip the mark/marking bits and enqueue; aging happens when the
// entry is popped in MarkStep, same as any other mark).
func (os *ObjectSpace) markGrey(b Ref) {
	if b.Page.mark.Test(int(b.Idx)) {
		return
	}
	b.Page.mark.Set(int(b.Idx))
	b.Page.marking.Set(int(b.Idx))
	os.markedSlots++
	os.markStack.Push(b)
}

// remember sets a's remembered bit and its page's has_remembered_objects
// flag (spec.md §4.4 "remember a").
func (os *ObjectSpace) remember(a Ref) {
	a.Page.remembered.Set(int(a.Idx))
	a.Page.hasRememberedObjects = true
}

// WriteBarrierRemember is the external force-remember primitive
// (spec.md §6 writebarrier_remember), used when a host mutation can't
// go through WriteBarrier directly.
func (os *ObjectSpace) WriteBarrierRemember(a Ref) {
	if a.Valid() {
		os.remember(a)
	}
}

// WriteBarrierUnprotect demotes obj to wb-unprotected (shady), per
// spec.md §4.4: "mark obj as wb-unprotected. If OLD, demote it (age <-
// 0; clear uncollectible; recount old_objects); ensure it is tracked in
// the remembered-unprotected set so every minor GC traces its
// children."
func (os *ObjectSpace) WriteBarrierUnprotect(r Ref) {
	if !r.Valid() {
		return
	}
	p, idx := r.Page, int(r.Idx)
	if p.wbUnprotected.Test(idx) {
		return
	}
	p.wbUnprotected.Set(idx)
	if p.uncollectible.Test(idx) {
		p.age.Set(idx, 0)
		p.uncollectible.Clear(idx)
		if os.oldObjects > 0 {
			os.oldObjects--
		}
	}
	os.remember(r)
	os.uncollectibleWbUnprotectedObjects++
	p.hasUncollectibleWbUnprotected = true
}

// CopyAttributes mirrors the wb-unprotected and finalizer state of src
// onto dest (spec.md §6 copy_attributes), used when the host clones an
// object.
func (os *ObjectSpace) CopyAttributes(dest, src Ref) {
	if src.Page.wbUnprotected.Test(int(src.Idx)) {
		os.WriteBarrierUnprotect(dest)
	}
	os.CopyFinalizer(dest, src)
}
