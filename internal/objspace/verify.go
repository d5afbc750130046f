package objspace

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
)

// VerificationFailure describes one broken invariant, for the debug
// builds spec.md §7 describes aborting on ("inconsistent bits, marked
// object on tomb page, T_ZOMBIE with extra flags, free-list cycle, page
// whose has_remembered_objects disagrees with its bitmap"). Tests
// collect these instead of aborting the process outright.
type VerificationFailure struct {
	Page   uint32
	Slot   uint32
	Reason string
}

func (f VerificationFailure) String() string {
	return fmt.Sprintf("page=%d slot=%d: %s", f.Page, f.Slot, f.Reason)
}

// VerifyInvariants walks every page and checks the universal invariants
// of spec.md §8 items 1-2 plus the debug-build checks of §7. It never
// panics; callers decide whether a non-empty result is fatal.
func (os *ObjectSpace) VerifyInvariants() []VerificationFailure {
	var out []VerificationFailure

	for _, h := range os.heaps {
		h.pages.Each(func(e *PageElem) {
			p := e.Value

			if p.mark.PopCount() > p.totalSlots {
				out = append(out, VerificationFailure{p.id, 0, "mark popcount exceeds total_slots"})
			}

			if p.hasRememberedObjects && p.remembered.PopCount() == 0 {
				out = append(out, VerificationFailure{p.id, 0, "has_remembered_objects set but remembered bitmap is empty"})
			}

			for idx := 0; idx < p.totalSlots; idx++ {
				s := &p.slots[idx]
				if s.kind == KindZombie && s.flags&flagFinalize == 0 && s.finalizerFn == nil {
					out = append(out, VerificationFailure{p.id, uint32(idx), "zombie slot with no finalizer work pending"})
				}
				if p.mark.Test(idx) && s.kind == KindMoved {
					out = append(out, VerificationFailure{p.id, uint32(idx), "marked MOVED slot survived a full reference update"})
				}
				if p.uncollectible.Test(idx) && p.age.Get(idx) != AgeOld {
					out = append(out, VerificationFailure{p.id, uint32(idx), "uncollectible bit set without age == OLD"})
				}
			}

			if cycle := freelistHasCycle(p); cycle {
				out = append(out, VerificationFailure{p.id, 0, "freelist cycle detected"})
			}
		})
	}
	return out
}

func freelistHasCycle(p *Page) bool {
	slow, fast := p.freelistHead, p.freelistHead
	steps := 0
	for fast >= 0 {
		slow = int32(p.slots[slow].freeNext)
		if slow < 0 {
			return false
		}
		n1 := p.slots[fast].freeNext
		if n1 == ^uint32(0) {
			return false
		}
		fast = int32(n1)
		n2 := p.slots[fast].freeNext
		if n2 == ^uint32(0) {
			return false
		}
		fast = int32(n2)
		steps++
		if steps > p.totalSlots+1 {
			return true
		}
		if slow == fast {
			return true
		}
	}
	return false
}

// PageChecksum hashes p's bitmap planes with fnv-1a. VerificationFailure
// carries no checksum and nothing in this package calls PageChecksum;
// callers compute it themselves: two checksums computed moments apart
// that differ identify which page's bitmaps actually moved.
func PageChecksum(p *Page) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	sum := func(b *bitset) {
		for _, w := range b.words {
			binary.LittleEndian.PutUint64(buf[:], w)
			h.Write(buf[:])
		}
	}
	sum(&p.mark)
	sum(&p.pinned)
	sum(&p.uncollectible)
	sum(&p.marking)
	sum(&p.wbUnprotected)
	sum(&p.remembered)
	return h.Sum64()
}

// VerifySweepConservation checks spec.md §8 property 3: "sum over heaps
// of total_allocated_objects - total_freed_objects - final_slots_count
// == live slots" (only meaningful outside an in-progress sweep).
func (os *ObjectSpace) VerifySweepConservation() bool {
	if os.mode == ModeSweeping {
		return true
	}
	var allocated, freed uint64
	var final, live int
	for _, h := range os.heaps {
		st := h.Stats()
		allocated += st.AllocatedObjects
		freed += st.FreedObjects
		final += st.FinalSlots
		live += st.LiveSlots
	}
	return int64(allocated)-int64(freed)-int64(final) == int64(live)
}

// VerifyGenerationalSoundness checks spec.md §8 property 6: after any
// minor GC, every old wb-protected object referencing a young object is
// remembered. Children are enumerated through the host's MarkChildren
// hook, invoked read-only here.
func (os *ObjectSpace) VerifyGenerationalSoundness() []VerificationFailure {
	var out []VerificationFailure
	for _, h := range os.heaps {
		h.pages.Each(func(e *PageElem) {
			p := e.Value
			for idx := 0; idx < p.totalSlots; idx++ {
				if p.slots[idx].kind != KindObject {
					continue
				}
				if !p.uncollectible.Test(idx) || p.wbUnprotected.Test(idx) {
					continue // not old+wb-protected
				}
				self := Ref{Page: p, Idx: uint32(idx)}
				os.hooks.MarkChildren(os, self, func(child Ref) {
					if !child.Valid() {
						return
					}
					childOld := child.Page.uncollectible.Test(int(child.Idx))
					if childOld {
						return
					}
					if !p.remembered.Test(idx) {
						out = append(out, VerificationFailure{p.id, uint32(idx), "old wb-protected object references a young object but is not remembered"})
					}
				})
			}
		})
	}
	return out
}
