package metrics

import "github.com/prometheus/client_golang/prometheus"

// DispatchMetrics tracks outbox delivery outcomes.
type DispatchMetrics struct {
	published    prometheus.Counter
	failures     prometheus.Counter
	deadLettered prometheus.Counter
	failovers    *prometheus.CounterVec
}

// NewDispatchMetrics registers the dispatch metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_published_total",
		Help: "Outbox events successfully published.",
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_publish_failures_total",
		Help: "Publish attempts that failed and will be retried.",
	})
	deadLettered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_dead_lettered_total",
		Help: "Outbox events moved to the dead-letter table.",
	})
	failovers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_station_failovers_total",
		Help: "Deliveries re-addressed to a backup station.",
	}, []string{"station"})
	reg.MustRegister(published, failures, deadLettered, failovers)
	return &DispatchMetrics{
		published:    published,
		failures:     failures,
		deadLettered: deadLettered,
		failovers:    failovers,
	}
}

// IncPublished counts a successful publish.
func (m *DispatchMetrics) IncPublished() {
	if m == nil || m.published == nil {
		return
	}
	m.published.Inc()
}

// IncFailure counts a retryable publish failure.
func (m *DispatchMetrics) IncFailure() {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.Inc()
}

// IncDeadLettered counts a terminal failure.
func (m *DispatchMetrics) IncDeadLettered() {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.Inc()
}

// IncFailover counts a backup-station re-address for the named station.
func (m *DispatchMetrics) IncFailover(station string) {
	if m == nil || m.failovers == nil {
		return
	}
	m.failovers.WithLabelValues(normalizeLabel(station)).Inc()
}
