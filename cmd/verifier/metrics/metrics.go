// Package metrics provides Prometheus metrics instrumentation for the verifier.
//
// It exposes operational metrics about the verification pipeline, including
// the duration of each stage (reference collection, skill computation, the
// bootstrap), the age of the stored snapshot, and error tracking. All metrics
// are exposed via the /metrics HTTP endpoint for Prometheus scraping.
//
// Metrics exposed:
//   - driftcast_adapter_collect_seconds: Histogram of reference collection duration
//   - driftcast_verify_compute_seconds: Histogram of skill computation duration
//   - driftcast_bootstrap_compute_seconds: Histogram of bootstrap duration
//   - driftcast_snapshot_age_seconds: Gauge of current snapshot age
//   - driftcast_skill_lead_one: Gauge of the lead-1 skill score
//   - driftcast_bootstrap_replicates_total: Counter of bootstrap replicates run
//   - driftcast_errors_total: Counter of errors by component and reason
//
// All metrics include the job label for multi-job deployments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the verifier.
type Metrics struct {
	AdapterCollectSeconds    prometheus.Histogram
	VerifyComputeSeconds     prometheus.Histogram
	BootstrapComputeSeconds  prometheus.Histogram
	SnapshotAgeSeconds       prometheus.Gauge
	SkillLeadOne             prometheus.Gauge
	BootstrapReplicatesTotal prometheus.Counter
	ErrorsTotal              *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New(job string) *Metrics {
	return &Metrics{
		AdapterCollectSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "driftcast_adapter_collect_seconds",
			Help: "Time spent collecting the reference series from the adapter",
			ConstLabels: prometheus.Labels{
				"job": job,
			},
			Buckets: prometheus.DefBuckets, // Default buckets: .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
		}),

		VerifyComputeSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "driftcast_verify_compute_seconds",
			Help: "Time spent computing skill scores",
			ConstLabels: prometheus.Labels{
				"job": job,
			},
			Buckets: prometheus.DefBuckets,
		}),

		BootstrapComputeSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "driftcast_bootstrap_compute_seconds",
			Help: "Time spent running the bootstrap",
			ConstLabels: prometheus.Labels{
				"job": job,
			},
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		SnapshotAgeSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "driftcast_snapshot_age_seconds",
			Help: "Age of the current skill snapshot in seconds",
			ConstLabels: prometheus.Labels{
				"job": job,
			},
		}),

		SkillLeadOne: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "driftcast_skill_lead_one",
			Help: "Skill score at the shortest lead",
			ConstLabels: prometheus.Labels{
				"job": job,
			},
		}),

		BootstrapReplicatesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "driftcast_bootstrap_replicates_total",
			Help: "Total number of bootstrap replicates run",
			ConstLabels: prometheus.Labels{
				"job": job,
			},
		}),

		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "driftcast_errors_total",
			Help: "Total number of errors by component and reason",
			ConstLabels: prometheus.Labels{
				"job": job,
			},
		}, []string{"component", "reason"}),
	}
}

// RecordCollect records the time spent collecting the reference series.
func (m *Metrics) RecordCollect(seconds float64) {
	m.AdapterCollectSeconds.Observe(seconds)
}

// RecordVerify records the time spent computing skill.
func (m *Metrics) RecordVerify(seconds float64) {
	m.VerifyComputeSeconds.Observe(seconds)
}

// RecordBootstrap records the time spent running the bootstrap.
func (m *Metrics) RecordBootstrap(seconds float64, replicates int) {
	m.BootstrapComputeSeconds.Observe(seconds)
	m.BootstrapReplicatesTotal.Add(float64(replicates))
}

// SetSnapshotAge sets the current snapshot age.
func (m *Metrics) SetSnapshotAge(seconds float64) {
	m.SnapshotAgeSeconds.Set(seconds)
}

// SetSkillLeadOne sets the skill score at the shortest lead.
func (m *Metrics) SetSkillLeadOne(value float64) {
	m.SkillLeadOne.Set(value)
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}
