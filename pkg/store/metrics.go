package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const storeMetricNamePrefix = "walrus_store_"

type storeMetrics struct {
	opDuration *prometheus.HistogramVec
	opErrors   *prometheus.CounterVec
}

// newStoreMetrics returns nil when no registry is given, and all methods
// tolerate a nil receiver
func newStoreMetrics(registry prometheus.Registerer) *storeMetrics {
	if registry == nil {
		return nil
	}
	factory := promauto.With(registry)
	return &storeMetrics{
		opDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    storeMetricNamePrefix + "op_duration_seconds",
				Help:    "Duration of record store operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"collection", "op"},
		),
		opErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: storeMetricNamePrefix + "op_errors_total",
				Help: "Total number of failed record store operations",
			},
			[]string{"collection", "op"},
		),
	}
}

func (m *storeMetrics) observe(collection, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(collection, op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.opErrors.WithLabelValues(collection, op).Inc()
	}
}
