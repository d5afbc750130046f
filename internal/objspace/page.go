package objspace

import "math/bits"

// bitset is a flat bitmap of n bits, one word (uint64) at a time. Each
// of Page's six per-slot bitmaps (spec.md §3: mark, pinned, uncollectible,
// marking, wb_unprotected, remembered) plus the two-bit age plane are
// built from this.
type bitset struct {
	words []uint64
	n     int
}

func newBitset(n int) bitset {
	return bitset{words: make([]uint64, (n+63)/64), n: n}
}

func (b *bitset) Set(i int)    { b.words[i>>6] |= 1 << uint(i&63) }
func (b *bitset) Clear(i int)  { b.words[i>>6] &^= 1 << uint(i&63) }
func (b *bitset) Test(i int) bool {
	return b.words[i>>6]&(1<<uint(i&63)) != 0
}
func (b *bitset) ClearAll() {
	for i := range b.words {
		b.words[i] = 0
	}
}

// PopCount returns the number of set bits, used by the bitmap/counter
// agreement testable property (spec.md §8 item 2).
func (b *bitset) PopCount() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// And returns a new bitset holding the bitwise AND of a and b, used to
// compute the "intersection of uncollectible and wb-unprotected bitmaps"
// the minor mark phase walks (spec.md §4.4).
func andBitsets(a, b *bitset) bitset {
	out := newBitset(a.n)
	for i := range out.words {
		out.words[i] = a.words[i] & b.words[i]
	}
	return out
}

// age2 is the two-bit-per-slot age plane (spec.md §3 "One age bitmap,
// two bits per slot, encoding ages 0..3").
type age2 struct {
	lo, hi bitset
}

func newAge2(n int) age2 {
	return age2{lo: newBitset(n), hi: newBitset(n)}
}

// Age is the saturating 2-bit age counter; 3 is OLD (spec.md GLOSSARY).
const AgeOld = 3

func (a *age2) Get(i int) int {
	v := 0
	if a.lo.Test(i) {
		v |= 1
	}
	if a.hi.Test(i) {
		v |= 2
	}
	return v
}

func (a *age2) Set(i, v int) {
	if v&1 != 0 {
		a.lo.Set(i)
	} else {
		a.lo.Clear(i)
	}
	if v&2 != 0 {
		a.hi.Set(i)
	} else {
		a.hi.Clear(i)
	}
}

// Increment bumps the age by one, saturating at AgeOld, and reports
// whether this increment reached OLD for the first time — the signal
// that drives the uncollectible-bit/old_objects bookkeeping in
// spec.md §4.4's aging step.
func (a *age2) Increment(i int) (reachedOld bool) {
	v := a.Get(i)
	if v >= AgeOld {
		return false
	}
	v++
	a.Set(i, v)
	return v == AgeOld
}

// Page is one aligned, size-classed region of slots plus its bitmaps
// (spec.md §3 "Page"). The mapped body itself is modeled as a plain Go
// slice — see compact.go for how the read-barrier protection is applied
// to it — with page metadata held separately, exactly as spec.md's
// layout diagram specifies ("Page metadata stored separately, not
// inside the mapped body").
type Page struct {
	id       uint32
	class    int
	slotSize uintptr

	slots []slot

	totalSlots  int
	freeSlots   int
	finalSlots  int
	pinnedSlots int

	freelistHead int32 // -1 means empty

	// Flags (spec.md §3).
	beforeSweep                      bool
	hasRememberedObjects             bool
	hasUncollectibleWbUnprotected    bool

	mark          bitset
	pinned        bitset
	uncollectible bitset
	marking       bitset
	wbUnprotected bitset
	remembered    bitset
	age           age2

	// protected is the read-barrier flag the compactor sets when it
	// mprotects this page's body PROT_NONE (spec.md §4.6). Plain Go
	// code can't fault on a protected page the way mprotect'd memory
	// does, so this flag is the enforcement point instead — see
	// compact.go.
	protected bool

	// heap back-pointer, used by sweep/compact bookkeeping.
	heap *Heap
}

// newPage allocates a page of totalSlots slots of the given class,
// threading every slot onto the freelist (spec.md §4.2
// heap_page_allocate: "emit an unused free slot at every slot_size
// offset ... push each onto the page's freelist").
func newPage(id uint32, class int, totalSlots int) *Page {
	p := &Page{
		id:           id,
		class:        class,
		slotSize:     classSize(class),
		slots:        make([]slot, totalSlots),
		totalSlots:   totalSlots,
		freeSlots:    totalSlots,
		freelistHead: 0,

		mark:          newBitset(totalSlots),
		pinned:        newBitset(totalSlots),
		uncollectible: newBitset(totalSlots),
		marking:       newBitset(totalSlots),
		wbUnprotected: newBitset(totalSlots),
		remembered:    newBitset(totalSlots),
		age:           newAge2(totalSlots),
	}
	for i := 0; i < totalSlots; i++ {
		p.slots[i].kind = KindFree
		if i == totalSlots-1 {
			p.slots[i].freeNext = ^uint32(0) // sentinel: end of list
		} else {
			p.slots[i].freeNext = uint32(i + 1)
		}
	}
	if totalSlots == 0 {
		p.freelistHead = -1
	}
	return p
}

// PopFree removes and returns a free slot index, or ok=false if the
// page has none left.
func (p *Page) PopFree() (idx uint32, ok bool) {
	if p.freelistHead < 0 {
		return 0, false
	}
	idx = uint32(p.freelistHead)
	next := p.slots[idx].freeNext
	if next == ^uint32(0) {
		p.freelistHead = -1
	} else {
		p.freelistHead = int32(next)
	}
	p.freeSlots--
	return idx, true
}

// PushFree returns slot idx to the freelist (used by sweep).
func (p *Page) PushFree(idx uint32) {
	if p.freelistHead < 0 {
		p.slots[idx].freeNext = ^uint32(0)
	} else {
		p.slots[idx].freeNext = uint32(p.freelistHead)
	}
	p.freelistHead = int32(idx)
	p.slots[idx].kind = KindFree
	p.freeSlots++
}

// ID returns the page's stable identifier, used by Ref and by the page
// index's address-ordering stand-in (pages don't have real addresses in
// this model; id order substitutes for address order — see
// ObjectSpace.pageIndex in objectspace.go).
func (p *Page) ID() uint32 { return p.id }

// Class reports the page's size class.
func (p *Page) Class() int { return p.class }

// Empty reports whether every slot on the page is free.
func (p *Page) Empty() bool { return p.freeSlots == p.totalSlots }

// Full reports whether the page has no free slots left.
func (p *Page) Full() bool { return p.freeSlots == 0 }
