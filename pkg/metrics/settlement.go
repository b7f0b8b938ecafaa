package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics tracks monthly settlement runs.
type SettlementMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	invoices prometheus.Counter
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "settlement",
		Name:      "runs_total",
		Help:      "Settlement runs by final state.",
	}, []string{"state"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "settlement",
		Name:      "run_duration_seconds",
		Help:      "Duration of settlement runs in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"state"})
	invoices := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "settlement",
		Name:      "invoices_committed_total",
		Help:      "Invoices written by committed settlement runs.",
	})
	reg.MustRegister(runs, duration, invoices)
	return &SettlementMetrics{runs: runs, duration: duration, invoices: invoices}
}

// ObserveRun counts a finished run and records how long it took.
func (m *SettlementMetrics) ObserveRun(state string, duration time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	label := normalizeLabel(state)
	m.runs.WithLabelValues(label).Inc()
	m.duration.WithLabelValues(label).Observe(duration.Seconds())
}

// AddInvoices adds committed invoices to the running total.
func (m *SettlementMetrics) AddInvoices(count int) {
	if m == nil || m.invoices == nil || count <= 0 {
		return
	}
	m.invoices.Add(float64(count))
}
