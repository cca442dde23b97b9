package sink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks what happens to audit events on their way to the store.
type Metrics struct {
	Written       prometheus.Counter
	Sampled       prometheus.Counter
	CircuitDrops  prometheus.Counter
	WriteFailures prometheus.Counter
	CircuitOpen   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Written: factory.NewCounter(prometheus.CounterOpts{
			Name: "signup_audit_events_written_total",
			Help: "Audit events accepted by the store",
		}),
		Sampled: factory.NewCounter(prometheus.CounterOpts{
			Name: "signup_audit_events_sampled_total",
			Help: "Operational audit events dropped by sampling",
		}),
		CircuitDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "signup_audit_events_circuit_dropped_total",
			Help: "Audit events dropped while the store circuit was open",
		}),
		WriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "signup_audit_write_failures_total",
			Help: "Audit store write failures",
		}),
		CircuitOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signup_audit_circuit_open",
			Help: "1 while the audit store circuit is open",
		}),
	}
}

func (m *Metrics) setOpen(open bool) {
	if open {
		m.CircuitOpen.Set(1)
		return
	}
	m.CircuitOpen.Set(0)
}
