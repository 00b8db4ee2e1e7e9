// Package metrics exposes prometheus counters for raid events and sweeps.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	events          *prometheus.CounterVec
	sweeps          prometheus.Counter
	sweepFailures   prometheus.Counter
	retired         *prometheus.CounterVec
	notices         prometheus.Counter
	deliveryFailure *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raidbot_events_total",
			Help: "Raid events handled, by kind and result.",
		}, []string{"kind", "result"}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raidbot_sweeps_total",
			Help: "Expiry sweeps run.",
		}),
		sweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raidbot_sweep_failures_total",
			Help: "Expiry sweeps that could not list raids.",
		}),
		retired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raidbot_raids_retired_total",
			Help: "Raids retired by the sweep, by reason.",
		}, []string{"reason"}),
		notices: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raidbot_notices_sent_total",
			Help: "Starting soon notices delivered.",
		}),
		deliveryFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raidbot_delivery_failures_total",
			Help: "Best-effort deliveries that failed, by effect.",
		}, []string{"effect"}),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.sweeps, m.sweepFailures, m.retired, m.notices, m.deliveryFailure)
	}
	return m
}

func (m *Metrics) Event(kind, result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Sweep(failed bool) {
	if m == nil {
		return
	}
	m.sweeps.Inc()
	if failed {
		m.sweepFailures.Inc()
	}
}

func (m *Metrics) Retired(reason string) {
	if m == nil {
		return
	}
	m.retired.WithLabelValues(reason).Inc()
}

func (m *Metrics) NoticeSent() {
	if m == nil {
		return
	}
	m.notices.Inc()
}

func (m *Metrics) DeliveryFailed(effect string) {
	if m == nil {
		return
	}
	m.deliveryFailure.WithLabelValues(effect).Inc()
}
