package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamePrefix = "walrus_"

// Metrics holds the application level counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	contactsSubmitted  prometheus.Counter
	pitchesCreated     prometheus.Counter
	annualSavingsTotal prometheus.Counter
	validationFailures *prometheus.CounterVec
	authFailures       *prometheus.CounterVec
	rateLimited        prometheus.Counter

	registerOnce sync.Once
}

// New creates metrics and registers them with the given registry.
// If registry is nil, the returned metrics are not exported anywhere.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{}
	m.register(registry)
	return m
}

func (m *Metrics) register(registry prometheus.Registerer) {
	m.registerOnce.Do(func() {
		factory := promauto.With(registry)

		m.contactsSubmitted = factory.NewCounter(prometheus.CounterOpts{
			Name: metricNamePrefix + "contacts_submitted_total",
			Help: "Total number of stored contact submissions",
		})

		m.pitchesCreated = factory.NewCounter(prometheus.CounterOpts{
			Name: metricNamePrefix + "pitches_created_total",
			Help: "Total number of stored pitches",
		})

		m.annualSavingsTotal = factory.NewCounter(prometheus.CounterOpts{
			Name: metricNamePrefix + "pitch_annual_savings_total",
			Help: "Sum of the annual savings quoted in stored pitches",
		})

		m.validationFailures = factory.NewCounterVec(prometheus.CounterOpts{
			Name: metricNamePrefix + "validation_failures_total",
			Help: "Total number of rejected requests by operation",
		}, []string{"operation"})

		m.authFailures = factory.NewCounterVec(prometheus.CounterOpts{
			Name: metricNamePrefix + "operator_auth_failures_total",
			Help: "Total number of denied operator requests by reason",
		}, []string{"reason"})

		m.rateLimited = factory.NewCounter(prometheus.CounterOpts{
			Name: metricNamePrefix + "rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		})
	})
}

func (m *Metrics) ContactSubmitted() {
	if m == nil {
		return
	}
	m.contactsSubmitted.Inc()
}

func (m *Metrics) PitchCreated(annualSavings float64) {
	if m == nil {
		return
	}
	m.pitchesCreated.Inc()
	m.annualSavingsTotal.Add(annualSavings)
}

func (m *Metrics) ValidationFailed(operation string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) AuthFailed(reason string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
