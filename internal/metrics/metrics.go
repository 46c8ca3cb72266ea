// Package metrics exposes Strand's Prometheus instrumentation: RPC-side
// counters, storage latency histograms wired into the Pebble hook seam, and a
// collector that scrapes partition engine state (tail, high-water mark, ISR
// size) on demand.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rzbill/strand/internal/partition"
)

const namespace = "strand"

// Metrics owns the registry and the instruments the server layers drive.
type Metrics struct {
	reg *prometheus.Registry

	PublishRequests   *prometheus.CounterVec
	PublishedRecords  *prometheus.CounterVec
	PublishAckTimeout *prometheus.CounterVec
	Subscriptions     *prometheus.GaugeVec
	DeliveredRecords  *prometheus.CounterVec
}

// New builds a registry with process/go collectors plus Strand's instruments.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		reg: reg,
		PublishRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_requests_total",
			Help:      "Publish RPCs received, by stream and outcome.",
		}, []string{"stream", "outcome"}),
		PublishedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_records_total",
			Help:      "Records appended by the leader, by stream.",
		}, []string{"stream"}),
		PublishAckTimeout: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_ack_timeouts_total",
			Help:      "ALL-policy publishes that hit the caller deadline before commit.",
		}, []string{"stream"}),
		Subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_active",
			Help:      "Open subscription sessions, by stream.",
		}, []string{"stream"}),
		DeliveredRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivered_records_total",
			Help:      "Records delivered to subscribers, by stream.",
		}, []string{"stream"}),
	}
	reg.MustRegister(
		m.PublishRequests,
		m.PublishedRecords,
		m.PublishAckTimeout,
		m.Subscriptions,
		m.DeliveredRecords,
	)
	return m
}

// Registry exposes the underlying registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// StatsSource yields live partition snapshots for scraping.
type StatsSource interface {
	PartitionStats() []partition.Stats
}

// engineCollector turns partition snapshots into gauges at scrape time, so
// the engine carries no metrics dependency of its own.
type engineCollector struct {
	src StatsSource

	newest *prometheus.Desc
	hwm    *prometheus.Desc
	oldest *prometheus.Desc
	isr    *prometheus.Desc
	lag    *prometheus.Desc
	epoch  *prometheus.Desc
}

// RegisterEngine attaches the partition-state collector.
func (m *Metrics) RegisterEngine(src StatsSource) {
	labels := []string{"stream", "partition"}
	m.reg.MustRegister(&engineCollector{
		src:    src,
		newest: prometheus.NewDesc(namespace+"_partition_newest_offset", "Highest written offset.", labels, nil),
		hwm:    prometheus.NewDesc(namespace+"_partition_high_water_mark", "Highest committed offset.", labels, nil),
		oldest: prometheus.NewDesc(namespace+"_partition_oldest_offset", "Lowest retained offset.", labels, nil),
		isr:    prometheus.NewDesc(namespace+"_partition_isr_size", "In-sync replica count.", labels, nil),
		lag:    prometheus.NewDesc(namespace+"_partition_replication_lag", "Offsets written but not yet committed.", labels, nil),
		epoch:  prometheus.NewDesc(namespace+"_partition_epoch", "Current leader epoch.", labels, nil),
	})
}

func (c *engineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.newest
	ch <- c.hwm
	ch <- c.oldest
	ch <- c.isr
	ch <- c.lag
	ch <- c.epoch
}

func (c *engineCollector) Collect(ch chan<- prometheus.Metric) {
	for _, st := range c.src.PartitionStats() {
		labels := []string{st.Stream, strconv.Itoa(int(st.Partition))}
		gauge := func(d *prometheus.Desc, v float64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
		}
		gauge(c.newest, float64(st.NewestOffset))
		gauge(c.hwm, float64(st.HighWaterMark))
		gauge(c.oldest, float64(st.OldestOffset))
		gauge(c.isr, float64(len(st.ISR)))
		gauge(c.lag, float64(st.NewestOffset-st.HighWaterMark))
		gauge(c.epoch, float64(st.Epoch))
	}
}

// StorageHook implements the Pebble wrapper's metrics seam with latency and
// size histograms.
type StorageHook struct {
	writeSeconds  prometheus.Histogram
	readSeconds   prometheus.Histogram
	commitSeconds prometheus.Histogram
	writeBytes    prometheus.Histogram
	batchOps      prometheus.Histogram
}

// NewStorageHook builds and registers the storage instrumentation.
func (m *Metrics) NewStorageHook() *StorageHook {
	h := &StorageHook{
		writeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "storage",
			Name: "write_seconds", Help: "Single-key write latency.",
			Buckets: prometheus.ExponentialBuckets(50e-6, 4, 10),
		}),
		readSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "storage",
			Name: "read_seconds", Help: "Point read latency.",
			Buckets: prometheus.ExponentialBuckets(10e-6, 4, 10),
		}),
		commitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "storage",
			Name: "batch_commit_seconds", Help: "Batch commit latency.",
			Buckets: prometheus.ExponentialBuckets(50e-6, 4, 10),
		}),
		writeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "storage",
			Name: "write_bytes", Help: "Bytes per write or batch commit.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		}),
		batchOps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "storage",
			Name: "batch_ops", Help: "Operations per committed batch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	m.reg.MustRegister(h.writeSeconds, h.readSeconds, h.commitSeconds, h.writeBytes, h.batchOps)
	return h
}

// ObserveWrite implements pebblestore.MetricsHook.
func (h *StorageHook) ObserveWrite(elapsed time.Duration, bytes int) {
	h.writeSeconds.Observe(elapsed.Seconds())
	h.writeBytes.Observe(float64(bytes))
}

// ObserveRead implements pebblestore.MetricsHook.
func (h *StorageHook) ObserveRead(elapsed time.Duration, _ int) {
	h.readSeconds.Observe(elapsed.Seconds())
}

// ObserveBatchCommit implements pebblestore.MetricsHook.
func (h *StorageHook) ObserveBatchCommit(elapsed time.Duration, numOps, bytes int) {
	h.commitSeconds.Observe(elapsed.Seconds())
	h.batchOps.Observe(float64(numOps))
	h.writeBytes.Observe(float64(bytes))
}
