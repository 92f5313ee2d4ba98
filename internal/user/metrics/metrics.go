package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks user sync and privilege changes.
type Metrics struct {
	Logins            prometheus.Counter
	ProviderSyncs     *prometheus.CounterVec
	MembershipChanges *prometheus.CounterVec
	RoleChanges       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounter(prometheus.CounterOpts{
			Name: "freightdesk_user_logins_total",
			Help: "Sign-in syncs of the caller's user record",
		}),
		ProviderSyncs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "freightdesk_user_provider_syncs_total",
			Help: "Identity-provider user sync events applied, by operation",
		}, []string{"op"}),
		MembershipChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "freightdesk_user_membership_changes_total",
			Help: "Organization joins and leaves",
		}, []string{"change"}),
		RoleChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "freightdesk_user_role_changes_total",
			Help: "Role changes by new role",
		}, []string{"role"}),
	}
}

func (m *Metrics) IncLogin() { m.Logins.Inc() }

func (m *Metrics) IncProviderSync(op string) {
	m.ProviderSyncs.WithLabelValues(op).Inc()
}

func (m *Metrics) IncMembershipChange(change string) {
	m.MembershipChanges.WithLabelValues(change).Inc()
}

func (m *Metrics) IncRoleChange(role string) {
	m.RoleChanges.WithLabelValues(role).Inc()
}
