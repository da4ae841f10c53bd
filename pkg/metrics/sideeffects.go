package metrics

import "github.com/prometheus/client_golang/prometheus"

// SideEffectMetrics tracks the fire-and-forget task pool.
type SideEffectMetrics struct {
	queueDepth prometheus.Gauge
	dropped    prometheus.Counter
	failures   *prometheus.CounterVec
}

// NewSideEffectMetrics registers the task pool metrics on the provided registerer.
func NewSideEffectMetrics(reg prometheus.Registerer) *SideEffectMetrics {
	if reg == nil {
		return &SideEffectMetrics{}
	}
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "side_effect_queue_depth",
		Help: "Tasks waiting in the side-effect pool.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "side_effect_dropped_total",
		Help: "Tasks dropped because the pool queue was full.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "side_effect_failures_total",
		Help: "Side-effect tasks that returned an error.",
	}, []string{"task"})
	reg.MustRegister(queueDepth, dropped, failures)
	return &SideEffectMetrics{
		queueDepth: queueDepth,
		dropped:    dropped,
		failures:   failures,
	}
}

// SetQueueDepth records the current queue length.
func (m *SideEffectMetrics) SetQueueDepth(depth int) {
	if m == nil || m.queueDepth == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// IncDropped counts a task rejected at submission.
func (m *SideEffectMetrics) IncDropped() {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.Inc()
}

// IncFailure counts a failed task by name.
func (m *SideEffectMetrics) IncFailure(task string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(task)).Inc()
}
