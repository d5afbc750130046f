package objspace

// stats holds the handful of scalar counters not already tracked
// per-heap (spec.md §3 ObjectSpace malloc accounting plus a couple of
// totals the external Stat/StatHeap interface needs), grounded on the
// shape of the teacher's runtime/mstats.go mstats struct, generalized
// from byte-granular memory counters to this collector's
// object/slot-granular ones.
type stats struct {
	totalAllocatedObjects uint64
	totalFreedObjects     uint64
	finalizerCount        uint64
	gcCount               uint64
	minorGCCount          uint64
	majorGCCount           uint64
}

// Stat returns every statistic spec.md §6's `stat(objspace, key|hash)`
// exposes, as a plain map so callers can pick one key or dump them all
// (mirroring the C API's dual single-key/whole-hash behavior without
// needing two entry points).
func (os *ObjectSpace) Stat() map[string]uint64 {
	liveSlots := uint64(0)
	for _, h := range os.heaps {
		liveSlots += uint64(h.Stats().LiveSlots)
	}
	return map[string]uint64{
		"heap_live_slots":        liveSlots,
		"heap_free_slots":        os.totalFreeSlots(),
		"total_allocated_objects": os.stats.totalAllocatedObjects,
		"total_freed_objects":    os.stats.totalFreedObjects,
		"heap_eden_pages":        uint64(os.totalPages()),
		"old_objects":            os.oldObjects,
		"old_objects_limit":      os.oldObjectsLimit,
		"count":                  os.stats.gcCount,
		"minor_gc_count":         os.stats.minorGCCount,
		"major_gc_count":         os.stats.majorGCCount,
		"marked_slots":           os.markedSlots,
		"malloc_increase_bytes":  os.mallocIncrease,
		"malloc_limit":           os.mallocLimit,
	}
}

// StatHeap returns per-heap statistics for heapIndex (0..4), or every
// heap's statistics keyed by class if heapIndex is nil (spec.md §6
// stat_heap).
func (os *ObjectSpace) StatHeap(heapIndex *int) map[int]HeapStats {
	out := make(map[int]HeapStats)
	if heapIndex != nil {
		out[*heapIndex] = os.heaps[*heapIndex].Stats()
		return out
	}
	for i, h := range os.heaps {
		out[i] = h.Stats()
	}
	return out
}

func (os *ObjectSpace) totalFreeSlots() uint64 {
	n := uint64(0)
	for _, h := range os.heaps {
		n += uint64(h.Stats().FreeSlots)
	}
	return n
}

func (os *ObjectSpace) totalPages() int {
	n := 0
	for _, h := range os.heaps {
		n += h.totalPages
	}
	return n
}

// MallocAccount records a host-side allocate/free/realloc delta
// (spec.md §4.11 "Every host-side allocate/free/realloc updates
// malloc_increase"), triggering a GC with reason MALLOC if the running
// increase has tripped malloc_limit.
func (os *ObjectSpace) MallocAccount(deltaBytes int64, holdsVMLock bool) {
	if deltaBytes > 0 {
		os.mallocIncrease += uint64(deltaBytes)
	} else if uint64(-deltaBytes) <= os.mallocIncrease {
		os.mallocIncrease -= uint64(-deltaBytes)
	} else {
		os.mallocIncrease = 0
	}
	if os.mallocIncrease > os.mallocLimit && holdsVMLock {
		os.needMajorGC |= ReasonMalloc
	}
}

// adaptMallocLimit grows or decays malloc_limit after a GC (spec.md
// §4.11 "malloc_limit adapts: grows by malloc_limit_growth_factor when
// tripped, decays by 0.98 otherwise, clamped [limit_min, limit_max]").
func (os *ObjectSpace) adaptMallocLimit(tripped bool) {
	if tripped {
		grown := float64(os.mallocLimit) * os.cfg.MallocLimitGrowthFactor
		os.mallocLimit = uint64(grown)
	} else {
		os.mallocLimit = uint64(float64(os.mallocLimit) * 0.98)
	}
	if os.mallocLimit < os.cfg.MallocLimitMin {
		os.mallocLimit = os.cfg.MallocLimitMin
	}
	if os.mallocLimit > os.cfg.MallocLimitMax {
		os.mallocLimit = os.cfg.MallocLimitMax
	}
	os.mallocIncrease = 0
}

// LatestGCInfo reports a snapshot about the most recent cycle (spec.md
// §6 latest_gc_info). See profile.go for the fuller cycle history this
// draws from.
func (os *ObjectSpace) LatestGCInfo() map[string]any {
	rec, ok := os.latestProfileRecord()
	info := map[string]any{
		"state": os.mode.String(),
	}
	if ok {
		info["gc_by"] = rec.Reasons
		info["major_by"] = rec.Reasons & ^ReasonMalloc
		info["duration_ns"] = rec.DurationNanos
		info["heap_live_slots_before"] = rec.LiveSlotsBefore
		info["heap_live_slots_after"] = rec.LiveSlotsAfter
	}
	return info
}
