package objspace

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector adapts ObjectSpace.Stat/StatHeap to a prometheus.Collector,
// grounded on other_examples' client_golang collector idiom (a
// describe-then-collect pair reading live state on each scrape rather
// than pushing updates eagerly). Registered once per ObjectSpace by the
// host process.
type Collector struct {
	os *ObjectSpace

	liveSlots   *prometheus.Desc
	freeSlots   *prometheus.Desc
	pages       *prometheus.Desc
	allocated   *prometheus.Desc
	freed       *prometheus.Desc
	oldObjects  *prometheus.Desc
	gcCount     *prometheus.Desc
	gcDuration  *prometheus.Desc
	mallocLimit *prometheus.Desc
}

// NewCollector builds a Collector reading from os. namespace is the
// metric name prefix (e.g. "graviton").
func NewCollector(os *ObjectSpace, namespace string) *Collector {
	classLabel := []string{"size_class"}
	return &Collector{
		os: os,
		liveSlots: prometheus.NewDesc(
			namespace+"_heap_live_slots", "Live slots per size-class heap.", classLabel, nil),
		freeSlots: prometheus.NewDesc(
			namespace+"_heap_free_slots", "Free slots per size-class heap.", classLabel, nil),
		pages: prometheus.NewDesc(
			namespace+"_heap_pages", "Pages owned per size-class heap.", classLabel, nil),
		allocated: prometheus.NewDesc(
			namespace+"_objects_allocated_total", "Cumulative objects allocated.", nil, nil),
		freed: prometheus.NewDesc(
			namespace+"_objects_freed_total", "Cumulative objects freed by sweep.", nil, nil),
		oldObjects: prometheus.NewDesc(
			namespace+"_old_objects", "Objects that have reached the old generation.", nil, nil),
		gcCount: prometheus.NewDesc(
			namespace+"_gc_cycles_total", "Completed GC cycles, by kind.", []string{"kind"}, nil),
		gcDuration: prometheus.NewDesc(
			namespace+"_gc_duration_seconds_total", "Cumulative wall time spent collecting.", nil, nil),
		mallocLimit: prometheus.NewDesc(
			namespace+"_malloc_limit_bytes", "Current adaptive malloc_limit.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.liveSlots
	ch <- c.freeSlots
	ch <- c.pages
	ch <- c.allocated
	ch <- c.freed
	ch <- c.oldObjects
	ch <- c.gcCount
	ch <- c.gcDuration
	ch <- c.mallocLimit
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	os := c.os
	os.osMu.Lock()
	defer os.osMu.Unlock()

	for i, h := range os.heaps {
		st := h.Stats()
		label := classSizeLabel(i)
		ch <- prometheus.MustNewConstMetric(c.liveSlots, prometheus.GaugeValue, float64(st.LiveSlots), label)
		ch <- prometheus.MustNewConstMetric(c.freeSlots, prometheus.GaugeValue, float64(st.FreeSlots), label)
		ch <- prometheus.MustNewConstMetric(c.pages, prometheus.GaugeValue, float64(st.Pages), label)
	}

	s := os.Stat()
	ch <- prometheus.MustNewConstMetric(c.allocated, prometheus.CounterValue, float64(s["total_allocated_objects"]))
	ch <- prometheus.MustNewConstMetric(c.freed, prometheus.CounterValue, float64(s["total_freed_objects"]))
	ch <- prometheus.MustNewConstMetric(c.oldObjects, prometheus.GaugeValue, float64(s["old_objects"]))
	ch <- prometheus.MustNewConstMetric(c.gcCount, prometheus.CounterValue, float64(os.stats.minorGCCount), "minor")
	ch <- prometheus.MustNewConstMetric(c.gcCount, prometheus.CounterValue, float64(os.stats.majorGCCount), "major")
	ch <- prometheus.MustNewConstMetric(c.gcDuration, prometheus.CounterValue, float64(os.totalGCTimeNanos)/1e9)
	ch <- prometheus.MustNewConstMetric(c.mallocLimit, prometheus.GaugeValue, float64(os.mallocLimit))
}

func classSizeLabel(i int) string {
	return strconv.FormatUint(uint64(classSize(i)), 10)
}
