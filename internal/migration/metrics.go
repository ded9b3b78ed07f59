package migration

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds migration counters on a private registry. Migrations run as
// batch jobs, so the registry is written to a node-exporter textfile rather
// than scraped.
type Metrics struct {
	registry   *prometheus.Registry
	runs       *prometheus.CounterVec
	assets     *prometheus.GaugeVec
	duration   *prometheus.GaugeVec
	lastApply  *prometheus.GaugeVec
	mismatches *prometheus.GaugeVec
}

// NewMetrics creates and registers the migration metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xcmreserve",
			Subsystem: "migration",
			Name:      "runs_total",
			Help:      "Migration apply runs by outcome.",
		}, []string{"migration_id", "outcome"}),
		assets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "xcmreserve",
			Subsystem: "migration",
			Name:      "assets",
			Help:      "Assets seen by the last apply run, by state.",
		}, []string{"migration_id", "state"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "xcmreserve",
			Subsystem: "migration",
			Name:      "last_apply_duration_seconds",
			Help:      "Wall time of the last apply run.",
		}, []string{"migration_id"}),
		lastApply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "xcmreserve",
			Subsystem: "migration",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful apply run.",
		}, []string{"migration_id"}),
		mismatches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "xcmreserve",
			Subsystem: "migration",
			Name:      "check_mismatches",
			Help:      "Assets whose stored records disagree with the rule table, by check mode.",
		}, []string{"migration_id", "mode"}),
	}
	m.registry.MustRegister(m.runs, m.assets, m.duration, m.lastApply, m.mismatches)
	return m
}

// Gatherer exposes the registry for tests and custom exporters.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the current values in text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observeApply(id string, report ApplyReport, err error, elapsed time.Duration) {
	if err != nil {
		m.runs.WithLabelValues(id, "failure").Inc()
		return
	}
	m.runs.WithLabelValues(id, "success").Inc()
	m.assets.WithLabelValues(id, "resolved").Set(float64(report.Resolved))
	m.assets.WithLabelValues(id, "unresolved").Set(float64(report.Unresolved))
	m.assets.WithLabelValues(id, "changed").Set(float64(report.Changed))
	m.assets.WithLabelValues(id, "unchanged").Set(float64(report.Unchanged))
	m.duration.WithLabelValues(id).Set(elapsed.Seconds())
	m.lastApply.WithLabelValues(id).SetToCurrentTime()
}

func (m *Metrics) observeCheck(id string, report CheckReport) {
	m.mismatches.WithLabelValues(id, string(report.Mode)).Set(float64(report.Mismatches()))
}
