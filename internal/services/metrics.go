package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SettlementMetrics counts settlement attempts by operation and outcome.
// The stuck outcome is the one operators page on: it means on-chain value
// moved but the mirror was never updated.
type SettlementMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	return &SettlementMetrics{
		outcomes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "gorsocial",
			Subsystem: "settlement",
			Name:      "attempts_total",
			Help:      "Settlement attempts by operation and terminal outcome.",
		}, []string{"operation", "outcome"}),
	}
}

func (m *SettlementMetrics) Observe(operation, outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(operation, outcome).Inc()
}
