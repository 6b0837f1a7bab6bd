package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the ledger collectors. A nil *Metrics records nothing.
type Metrics struct {
	Workflows *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	Transfers *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Workflows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loyalty",
			Name:      "workflows_total",
			Help:      "Ledger workflows by outcome.",
		}, []string{"workflow", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loyalty",
			Name:      "workflow_duration_seconds",
			Help:      "Time spent inside a ledger workflow including commit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"workflow"}),
		Transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loyalty",
			Name:      "transfers_total",
			Help:      "Transfers written to the ledger.",
		}, []string{"type", "refund"}),
	}
	reg.MustRegister(m.Workflows, m.Duration, m.Transfers)
	return m
}

func (m *Metrics) ObserveWorkflow(workflow, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Workflows.WithLabelValues(workflow, outcome).Inc()
	m.Duration.WithLabelValues(workflow).Observe(elapsed.Seconds())
}

func (m *Metrics) CountTransfer(typeName string, refund bool) {
	if m == nil {
		return
	}
	m.Transfers.WithLabelValues(typeName, strconv.FormatBool(refund)).Inc()
}
