// Package prometheus exposes crawl counters as Prometheus metrics.
package prometheus

import (
	"github.com/fwojciec/listscrape"
	"github.com/prometheus/client_golang/prometheus"
)

// Ensure Metrics implements listscrape.Metrics at compile time.
var _ listscrape.Metrics = (*Metrics)(nil)

// Metrics bundles Prometheus collectors for a crawl.
type Metrics struct {
	Registry     *prometheus.Registry
	ItemsTotal   prometheus.Counter
	SkippedTotal prometheus.Counter
	RetriesTotal *prometheus.CounterVec
	PagesTotal   *prometheus.CounterVec
	ItemsPerPage prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	items := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "listscrape_items_collected_total",
		Help: "Total number of detail pages collected.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "listscrape_items_skipped_total",
		Help: "Total number of items dropped after exhausting their attempts.",
	})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listscrape_retries_total",
		Help: "Total number of retries scheduled, by kind.",
	}, []string{"kind"})
	pages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listscrape_pages_total",
		Help: "Total number of list pages processed, by outcome.",
	}, []string{"outcome"})
	perPage := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "listscrape_page_items",
		Help:    "Number of items persisted per page.",
		Buckets: prometheus.LinearBuckets(0, 5, 11),
	})

	registry.MustRegister(items, skipped, retries, pages, perPage)

	return &Metrics{
		Registry:     registry,
		ItemsTotal:   items,
		SkippedTotal: skipped,
		RetriesTotal: retries,
		PagesTotal:   pages,
		ItemsPerPage: perPage,
	}
}

// ItemCollected counts a record added to a batch.
func (m *Metrics) ItemCollected() {
	if m == nil {
		return
	}
	m.ItemsTotal.Inc()
}

// ItemSkipped counts an item dropped after its last attempt.
func (m *Metrics) ItemSkipped() {
	if m == nil {
		return
	}
	m.SkippedTotal.Inc()
}

// Retry counts a retried operation of the given kind.
func (m *Metrics) Retry(kind string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(kind).Inc()
}

// PagePersisted counts a saved page and observes its size.
func (m *Metrics) PagePersisted(items int) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(listscrape.OutcomeSaved).Inc()
	m.ItemsPerPage.Observe(float64(items))
}

// PageFailed counts a page that could not be collected.
func (m *Metrics) PageFailed() {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(listscrape.OutcomeFailed).Inc()
}

// WriteTextfile writes the current values in the text exposition format to
// path, for collection by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
