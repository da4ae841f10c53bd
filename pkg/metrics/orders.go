package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics tracks order mutation outcomes and contention.
type OrderMetrics struct {
	mutations        *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
	versionConflicts prometheus.Counter
	tableConflicts   prometheus.Counter
	paymentReplays   prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_mutations_total",
		Help: "Order mutations by operation and result.",
	}, []string{"operation", "result"})
	mutationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_mutation_duration_seconds",
		Help:    "Duration of order mutations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	versionConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_version_conflicts_total",
		Help: "Mutations rejected because the expected version was stale.",
	})
	tableConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_table_conflicts_total",
		Help: "Order creations rejected because the table was occupied.",
	})
	paymentReplays := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_idempotent_replays_total",
		Help: "Payment requests answered from a previously stored payment.",
	})
	reg.MustRegister(mutations, mutationDuration, versionConflicts, tableConflicts, paymentReplays)
	return &OrderMetrics{
		mutations:        mutations,
		mutationDuration: mutationDuration,
		versionConflicts: versionConflicts,
		tableConflicts:   tableConflicts,
		paymentReplays:   paymentReplays,
	}
}

// ObserveMutation records a mutation outcome and its duration.
func (m *OrderMetrics) ObserveMutation(operation, result string, duration time.Duration) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(operation), normalizeLabel(result)).Inc()
	m.mutationDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncVersionConflict counts a stale-version rejection.
func (m *OrderMetrics) IncVersionConflict() {
	if m == nil || m.versionConflicts == nil {
		return
	}
	m.versionConflicts.Inc()
}

// IncTableConflict counts a table-occupied rejection.
func (m *OrderMetrics) IncTableConflict() {
	if m == nil || m.tableConflicts == nil {
		return
	}
	m.tableConflicts.Inc()
}

// IncPaymentReplay counts an idempotency-key replay.
func (m *OrderMetrics) IncPaymentReplay() {
	if m == nil || m.paymentReplays == nil {
		return
	}
	m.paymentReplays.Inc()
}
