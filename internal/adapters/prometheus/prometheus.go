// Package prometheus provides a Prometheus implementation of cache.Metrics.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"expcache/internal/cache"
)

const namespace = "expcache"

// cacheMetrics implements cache.Metrics using Prometheus.
type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions *prometheus.CounterVec
	entries   prometheus.Gauge
}

// NewCacheMetrics creates the collectors for one cache and registers them on
// reg. name is attached as a const label so several caches can share a
// registry.
func NewCacheMetrics(reg prometheus.Registerer, name string) cache.Metrics {
	labels := prometheus.Labels{"cache": name}

	m := &cacheMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "hits_total",
			Help:        "Total number of Get calls that returned a live value",
			ConstLabels: labels,
		}),

		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "misses_total",
			Help:        "Total number of Get calls that found no live value",
			ConstLabels: labels,
		}),

		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "evictions_total",
			Help:        "Total number of entries removed by lazy cleanup",
			ConstLabels: labels,
		}, []string{"reason"}),

		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "entries",
			Help:        "Physical entry count, including expired entries not yet swept",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(
		m.hits,
		m.misses,
		m.evictions,
		m.entries,
	)

	return m
}

func (m *cacheMetrics) Hit() {
	m.hits.Inc()
}

func (m *cacheMetrics) Miss() {
	m.misses.Inc()
}

func (m *cacheMetrics) Evicted(reason cache.EvictReason) {
	m.evictions.WithLabelValues(reason.String()).Inc()
}

func (m *cacheMetrics) Size(n int) {
	m.entries.Set(float64(n))
}

var _ cache.Metrics = (*cacheMetrics)(nil)
