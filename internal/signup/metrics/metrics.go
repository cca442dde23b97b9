package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the signup module: check and commit
// outcomes, remote-call latency and open sessions.
type Metrics struct {
	Checks         *prometheus.CounterVec
	Registrations  *prometheus.CounterVec
	CheckDuration  prometheus.Histogram
	CommitDuration prometheus.Histogram
	OpenSessions   prometheus.Gauge
}

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// New registers the signup metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers against reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_identifier_checks_total",
			Help: "Uniqueness checks by outcome (available, taken, error, invalid)",
		}, []string{"outcome"}),
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_registrations_total",
			Help: "Registration attempts by outcome (succeeded, rejected, conflict, failed)",
		}, []string{"outcome"}),
		CheckDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "signup_check_duration_seconds",
			Help:    "Latency of the existence probe against the account store",
			Buckets: latencyBuckets,
		}),
		CommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "signup_commit_duration_seconds",
			Help:    "Latency of the account write",
			Buckets: latencyBuckets,
		}),
		OpenSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signup_open_sessions",
			Help: "Registration forms currently held in memory",
		}),
	}
}

func (m *Metrics) IncCheck(outcome string) {
	m.Checks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRegistration(outcome string) {
	m.Registrations.WithLabelValues(outcome).Inc()
}

// ObserveCheck records probe latency. Call with time.Now() taken before the probe.
func (m *Metrics) ObserveCheck(start time.Time) {
	m.CheckDuration.Observe(time.Since(start).Seconds())
}

// ObserveCommit records write latency. Call with time.Now() taken before the write.
func (m *Metrics) ObserveCommit(start time.Time) {
	m.CommitDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) SessionOpened() {
	m.OpenSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	m.OpenSessions.Dec()
}
