package objspace

// weakRef is one registered weak pointer-to-pointer entry (spec.md
// §4.8 "A weak reference is a pointer-to-pointer &slot registered with
// the collector").
type weakRef struct {
	parent Ref // owning object, for remove_weak's liveness check
	slot   *Ref
}

// weakRegistry holds every weak reference registered with the
// collector, plus the profile counters spec.md §8's scenario expects
// (weak_references_count, retained_weak_references_count).
type weakRegistry struct {
	entries           []weakRef
	total             uint64
	retainedLastCycle uint64
}

// MarkWeak registers slot for end-of-cycle resolution without tracing
// its pointee (spec.md §6 mark_weak, §4.8 "collected but NOT traced").
func (os *ObjectSpace) MarkWeak(parent Ref, slot *Ref) {
	os.weak.entries = append(os.weak.entries, weakRef{parent: parent, slot: slot})
	os.weak.total++
}

// RemoveWeak removes slot's registration mid-cycle, but only if parent
// is already marked — "the entry is removed only if the parent is
// already marked (else the entry was never effective)" (spec.md §4.8
// remove_weak).
func (os *ObjectSpace) RemoveWeak(parent Ref, slot *Ref) {
	if !parent.Page.mark.Test(int(parent.Idx)) {
		return
	}
	for i, e := range os.weak.entries {
		if e.slot == slot {
			os.weak.entries = append(os.weak.entries[:i], os.weak.entries[i+1:]...)
			return
		}
	}
}

// resolveWeakRefs is the end-of-cycle weak reference pass (spec.md
// §4.8 "At gc_marks_finish, iterate the registered list; if the
// pointee is unmarked, store an UNDEF tombstone at *ptr; else keep.
// Resize the registry to its live count").
func (os *ObjectSpace) resolveWeakRefs() {
	live := os.weak.entries[:0]
	retained := uint64(0)
	for _, e := range os.weak.entries {
		target := *e.slot
		if !target.Valid() || !target.Page.mark.Test(int(target.Idx)) {
			*e.slot = Ref{}
			continue
		}
		retained++
		live = append(live, e)
	}
	os.weak.entries = live
	os.weak.retainedLastCycle = retained
}

// WeakStats reports the counters spec.md §8's weak-reference scenario
// checks: profile.weak_references_count and
// retained_weak_references_count.
type WeakStats struct {
	RegisteredTotal   uint64
	RetainedLastCycle uint64
}

func (os *ObjectSpace) WeakStats() WeakStats {
	return WeakStats{RegisteredTotal: os.weak.total, RetainedLastCycle: os.weak.retainedLastCycle}
}
