package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the audit recorder and the outbox relay.
type Metrics struct {
	EntriesRecorded *prometheus.CounterVec
	PersistFailures prometheus.Counter
	AppendDuration  prometheus.Histogram
	ListDuration    *prometheus.HistogramVec
	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter
	OutboxPending   prometheus.Gauge
	EntriesPurged   prometheus.Counter
}

// New registers the audit metrics on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EntriesRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "freightdesk_audit_entries_recorded_total",
			Help: "Audit entries persisted, by entity type and entry path (event, log)",
		}, []string{"entity_type", "path"}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "freightdesk_audit_persist_failures_total",
			Help: "Audit inserts that failed and aborted their enclosing operation",
		}),
		AppendDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "freightdesk_audit_append_duration_seconds",
			Help:    "Duration of audit entry inserts including the outbox row",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ListDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "freightdesk_audit_list_duration_seconds",
			Help:    "Duration of audit reads by index used",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"index"}),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "freightdesk_audit_outbox_published_total",
			Help: "Outbox rows delivered to Kafka",
		}),
		OutboxFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "freightdesk_audit_outbox_publish_failures_total",
			Help: "Failed outbox publish batches",
		}),
		OutboxPending: f.NewGauge(prometheus.GaugeOpts{
			Name: "freightdesk_audit_outbox_pending",
			Help: "Unpublished outbox rows seen by the last relay tick",
		}),
		EntriesPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "freightdesk_audit_entries_purged_total",
			Help: "Test-data audit entries removed by purges",
		}),
	}
}

func (m *Metrics) IncRecorded(entityType, path string) {
	m.EntriesRecorded.WithLabelValues(entityType, path).Inc()
}

func (m *Metrics) IncPersistFailure() {
	m.PersistFailures.Inc()
}

// ObserveAppend records an insert started at start.
func (m *Metrics) ObserveAppend(start time.Time) {
	m.AppendDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveList(index string, start time.Time) {
	m.ListDuration.WithLabelValues(index).Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddPublished(n int) {
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) IncPublishFailure() {
	m.OutboxFailures.Inc()
}

func (m *Metrics) SetPending(n int) {
	m.OutboxPending.Set(float64(n))
}

func (m *Metrics) AddPurged(n int64) {
	m.EntriesPurged.Add(float64(n))
}
