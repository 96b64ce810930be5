package resultboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "resultboard"

// storeMetrics are the Prometheus collectors of one Store. With a nil
// registerer the collectors still count but are never exported.
type storeMetrics struct {
	batches        *prometheus.CounterVec
	items          *prometheus.CounterVec
	restores       *prometheus.CounterVec
	restoreItems   *prometheus.CounterVec
	listenerPanics prometheus.Counter
	queueDepth     prometheus.Gauge
}

func newStoreMetrics(reg prometheus.Registerer) *storeMetrics {
	factory := promauto.With(reg)
	return &storeMetrics{
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "batches_total",
			Help:      "Result batches processed, by outcome (applied or stale).",
		}, []string{"outcome"}),
		items: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "items_total",
			Help:      "Result items received in batches, by outcome (stored or dropped).",
		}, []string{"outcome"}),
		restores: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "restores_total",
			Help:      "Restore requests, by outcome (restored or empty).",
		}, []string{"outcome"}),
		restoreItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "restore_items_total",
			Help:      "Items seen by restore requests, by validity.",
		}, []string{"validity"}),
		listenerPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "listener_panics_total",
			Help:      "Panics recovered from subscribers and event listeners.",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "queue_depth",
			Help:      "Batches waiting to be applied.",
		}),
	}
}
