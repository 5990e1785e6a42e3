package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder publishes reconciliation counters to Prometheus.
type Recorder struct {
	runsTotal       *prometheus.CounterVec
	matchesTotal    *prometheus.CounterVec
	exceptionsTotal *prometheus.CounterVec
	clustersTotal   *prometheus.CounterVec
	slaBreaches     prometheus.Counter
	escalations     prometheus.Counter
	matchRate       prometheus.Gauge
	runDuration     *prometheus.HistogramVec
}

// New creates a Recorder registered against the given registerer. Passing
// a fresh prometheus.NewRegistry() keeps tests independent; production
// callers pass prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traderecon_runs_total",
				Help: "Total number of reconciliation runs",
			},
			[]string{"kind"}, // "two_way" or "n_way"
		),
		matchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traderecon_matches_total",
				Help: "Total number of matched trades",
			},
			[]string{"kind"},
		),
		exceptionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traderecon_exceptions_total",
				Help: "Total number of exceptions raised",
			},
			[]string{"type"},
		),
		clustersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traderecon_clusters_total",
				Help: "Total number of exception clusters formed",
			},
			[]string{"method"},
		),
		slaBreaches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "traderecon_sla_breaches_total",
				Help: "Total number of assignments past their SLA deadline",
			},
		),
		escalations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "traderecon_escalations_total",
				Help: "Total number of assignment escalations",
			},
		),
		matchRate: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "traderecon_match_rate_pct",
				Help: "Match rate of the most recent two-way run",
			},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "traderecon_run_duration_seconds",
				Help:    "Duration of reconciliation runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}
}

// RecordRun records one completed reconciliation run.
func (r *Recorder) RecordRun(kind string, seconds float64) {
	r.runsTotal.WithLabelValues(kind).Inc()
	r.runDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordMatches adds matched-trade counts for a run.
func (r *Recorder) RecordMatches(kind string, n int) {
	r.matchesTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordException counts one exception by type.
func (r *Recorder) RecordException(exceptionType string) {
	r.exceptionsTotal.WithLabelValues(exceptionType).Inc()
}

// RecordCluster counts one formed cluster by method.
func (r *Recorder) RecordCluster(method string) {
	r.clustersTotal.WithLabelValues(method).Inc()
}

// RecordSLABreach counts one deadline breach.
func (r *Recorder) RecordSLABreach() {
	r.slaBreaches.Inc()
}

// RecordEscalation counts one escalation.
func (r *Recorder) RecordEscalation() {
	r.escalations.Inc()
}

// RecordMatchRate publishes the latest two-way match rate.
func (r *Recorder) RecordMatchRate(pct float64) {
	r.matchRate.Set(pct)
}
