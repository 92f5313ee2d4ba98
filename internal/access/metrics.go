package access

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"freightdesk/pkg/domain"
)

// Metrics counts authorization decisions by capability and outcome.
type Metrics struct {
	Decisions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "freightdesk_authorization_decisions_total",
			Help: "Capability checks by outcome (allowed, denied, no_user, unauthenticated, error)",
		}, []string{"capability", "outcome"}),
	}
}

func (m *Metrics) IncDecision(c domain.Capability, outcome string) {
	m.Decisions.WithLabelValues(string(c), outcome).Inc()
}
