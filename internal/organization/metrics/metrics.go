package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks organization lifecycle changes.
type Metrics struct {
	StatusChanges *prometheus.CounterVec
	ProviderSyncs *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "freightdesk_organization_status_changes_total",
			Help: "Organization suspensions and activations by resulting status",
		}, []string{"status"}),
		ProviderSyncs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "freightdesk_organization_provider_syncs_total",
			Help: "Identity-provider organization sync events applied, by operation",
		}, []string{"op"}),
	}
}

func (m *Metrics) IncStatusChange(status string) {
	m.StatusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) IncProviderSync(op string) {
	m.ProviderSyncs.WithLabelValues(op).Inc()
}
