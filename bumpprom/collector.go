// Package bumpprom exports bump arena statistics as Prometheus metrics.
package bumpprom

import (
	"github.com/pavanmanishd/bump"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bump_arena"

// Snapshotter is implemented by *bump.SafeArena, and by *bump.Arena when
// scrapes are synchronized with its owner.
type Snapshotter interface {
	Metrics() bump.ArenaMetrics
}

// Collector is a prometheus.Collector reading one arena at scrape time.
type Collector struct {
	src Snapshotter

	bytesInUse   *prometheus.Desc
	capacity     *prometheus.Desc
	chunks       *prometheus.Desc
	utilization  *prometheus.Desc
	allocations  *prometheus.Desc
	grows        *prometheus.Desc
	reclaimed    *prometheus.Desc
	acquisitions *prometheus.Desc
	failures     *prometheus.Desc
	resets       *prometheus.Desc
}

// NewCollector returns a collector for src. constLabels distinguish arenas
// registered in the same registry.
func NewCollector(src Snapshotter, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, constLabels)
	}
	return &Collector{
		src:          src,
		bytesInUse:   desc("bytes_in_use", "Bytes consumed in the arena's chunks, including padding."),
		capacity:     desc("capacity_bytes", "Total size of the chunks retained by the arena."),
		chunks:       desc("chunks", "Number of chunks retained by the arena."),
		utilization:  desc("utilization_ratio", "Bytes in use divided by capacity."),
		allocations:  desc("allocations_total", "Successful allocations."),
		grows:        desc("grows_total", "Grow calls by outcome.", "mode"),
		reclaimed:    desc("reclaimed_bytes_total", "Bytes returned by shrinking or deallocating the top allocation."),
		acquisitions: desc("chunk_acquisitions_total", "Chunks obtained from the backing source."),
		failures:     desc("failures_total", "Requests that failed for lack of memory."),
		resets:       desc("resets_total", "Arena resets."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.bytesInUse
	ch <- c.capacity
	ch <- c.chunks
	ch <- c.utilization
	ch <- c.allocations
	ch <- c.grows
	ch <- c.reclaimed
	ch <- c.acquisitions
	ch <- c.failures
	ch <- c.resets
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.src.Metrics()
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge(c.bytesInUse, float64(m.SizeInUse))
	gauge(c.capacity, float64(m.Capacity))
	gauge(c.chunks, float64(m.NumChunks))
	gauge(c.utilization, m.Utilization)
	counter(c.allocations, m.Allocations)
	counter(c.grows, m.InPlaceGrows, "in_place")
	counter(c.grows, m.MovedGrows, "moved")
	counter(c.reclaimed, m.ReclaimedBytes)
	counter(c.acquisitions, m.ChunkAcquisitions)
	counter(c.failures, m.Failures)
	counter(c.resets, m.Resets)
}
