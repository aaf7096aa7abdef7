package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PollerMetrics records per-tenant poll cycle outcomes.
type PollerMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	events   *prometheus.CounterVec
}

// NewPollerMetrics registers the poll cycle metrics on the provided
// registerer. A nil registerer yields a no-op collector.
func NewPollerMetrics(reg prometheus.Registerer) *PollerMetrics {
	if reg == nil {
		return &PollerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poll_cycle_duration_seconds",
		Help:    "Duration of per-tenant poll cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tenant"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_cycle_success",
		Help: "Successful per-tenant poll cycles.",
	}, []string{"tenant"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_cycle_failure",
		Help: "Failed per-tenant poll cycles.",
	}, []string{"tenant"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_events_processed",
		Help: "Events reconciled and acknowledged per tenant.",
	}, []string{"tenant"})
	reg.MustRegister(duration, success, failure, events)
	return &PollerMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		events:   events,
	}
}

// ObserveDuration records the duration of a poll cycle for the tenant.
func (p *PollerMetrics) ObserveDuration(tenant string, d time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(tenant)).Observe(d.Seconds())
}

// IncSuccess increments the success counter for the tenant.
func (p *PollerMetrics) IncSuccess(tenant string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(tenant)).Inc()
}

// IncFailure increments the failure counter for the tenant.
func (p *PollerMetrics) IncFailure(tenant string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(tenant)).Inc()
}

// AddEventsProcessed adds the number of processed events for the tenant.
func (p *PollerMetrics) AddEventsProcessed(tenant string, n int) {
	if p == nil || p.events == nil || n <= 0 {
		return
	}
	p.events.WithLabelValues(normalizeLabel(tenant)).Add(float64(n))
}

func normalizeLabel(tenant string) string {
	if tenant == "" {
		return "unknown"
	}
	return tenant
}
