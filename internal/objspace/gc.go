package objspace

import "time"

// nowNanos is overridable for tests; production code uses time.Now.
var nowNanos = func() int64 { return time.Now().UnixNano() }

// Start runs one collection cycle, the external `start(objspace, full,
// immediate_mark, immediate_sweep, compact)` entry point of spec.md §6.
// full requests a major GC; immediateMark/immediateSweep force the
// mark/sweep phases to run to completion rather than incrementally/
// lazily; compact additionally runs a compaction pass, but only when
// full is also set — a minor cycle ignores compact.
func (os *ObjectSpace) Start(full, immediateMark, immediateSweep, compact bool) {
	if os.dontGC {
		return
	}
	before := os.liveSlotsTotal()
	t0 := nowNanos()

	incremental := !immediateMark
	if full || !os.cfg.AllowFullMark {
		if os.cfg.AllowFullMark {
			os.StartMajor(incremental)
		} else {
			os.StartMinor()
		}
	} else {
		os.StartMinor()
	}

	if incremental && os.mode == ModeMarking {
		// Caller asked for a non-blocking incremental cycle; the mark
		// stack drains on subsequent allocator refills
		// (alloc.go:incrementalMarkStep). Nothing more to do now.
		os.stats.gcCount++
		return
	}

	if immediateSweep || !os.duringIncremental {
		for os.SweepStep() {
		}
	}

	if compact && full {
		os.StartCompaction(CompactOptions{})
	}

	os.stats.gcCount++
	if full {
		os.stats.majorGCCount++
		os.afterMajorGC()
	} else {
		os.stats.minorGCCount++
	}

	after := os.liveSlotsTotal()
	os.recordProfile(ProfileRecord{
		Reasons:         os.needMajorGC,
		DurationNanos:   nowNanos() - t0,
		LiveSlotsBefore: before,
		LiveSlotsAfter:  after,
		Minor:           !full,
	})
	os.needMajorGC = 0
}

func (os *ObjectSpace) liveSlotsTotal() uint64 {
	n := uint64(0)
	for _, h := range os.heaps {
		n += uint64(h.Stats().LiveSlots)
	}
	return n
}

// afterMajorGC resets the generational limits, spec.md §4.11 "After
// each major GC, the limits are reset to factor × current_old_objects
// and factor × current_wb_unprotected_objects."
func (os *ObjectSpace) afterMajorGC() {
	os.oldObjectsLimit = uint64(float64(os.oldObjects) * os.cfg.OldObjectLimitFactor)
	if os.oldObjectsLimit == 0 {
		os.oldObjectsLimit = 1
	}
	os.uncollectibleWbUnprotectedLimit = uint64(float64(os.uncollectibleWbUnprotectedObjects) * os.cfg.RememberedWbUnprotectedFactor * 100)
	if os.uncollectibleWbUnprotectedLimit == 0 {
		os.uncollectibleWbUnprotectedLimit = 1
	}
	os.adaptMallocLimit(os.needMajorGC&ReasonMalloc != 0)
}

// PrepareHeap runs any sweeping left over from a previous cycle to
// completion. It does not drain RactorCaches: the caller must DrainCache
// every live cache first. Together these establish
// the quiescent state spec.md §6's prepare_heap promises callers before
// a blocking operation like fork or heap dump.
func (os *ObjectSpace) PrepareHeap() {
	for os.SweepStep() {
	}
}

// CheckMajorGCTriggers evaluates the OR'd trigger set of spec.md §4.11
// and returns whether a major GC should be requested now.
func (os *ObjectSpace) CheckMajorGCTriggers() MajorGCReason {
	reasons := os.needMajorGC
	if os.oldObjects > os.oldObjectsLimit {
		reasons |= ReasonOldgen
	}
	if os.uncollectibleWbUnprotectedObjects > os.uncollectibleWbUnprotectedLimit {
		reasons |= ReasonShady
	}
	if os.oldMallocIncrease > os.oldMallocLimit {
		reasons |= ReasonOldmalloc
	}
	os.needMajorGC = reasons
	return reasons
}

// ForceMajorGC requests a major GC for the next cycle (spec.md §4.11
// FORCE).
func (os *ObjectSpace) ForceMajorGC() { os.needMajorGC |= ReasonForce }

// GCCount returns the cumulative number of completed GC cycles (spec.md
// §6 gc_count).
func (os *ObjectSpace) GCCount() uint64 { return os.stats.gcCount }

// ConfigGet/ConfigSet implement spec.md §6's single configuration key,
// `rgengc_allow_full_mark`.
func (os *ObjectSpace) ConfigGet(key string) (any, bool) {
	if key == "rgengc_allow_full_mark" {
		return os.cfg.AllowFullMark, true
	}
	return nil, false
}

func (os *ObjectSpace) ConfigSet(key string, value bool) bool {
	if key != "rgengc_allow_full_mark" {
		return false
	}
	os.cfg.AllowFullMark = value
	return true
}
