package entitlements

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for entitlement checks and changes
type Metrics struct {
	ChecksTotal      *prometheus.CounterVec
	TransitionsTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it is not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillgate_entitlement_checks_total",
				Help: "Total number of entitlement checks by feature type and reason",
			},
			[]string{"feature_type", "reason"},
		),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillgate_entitlement_transitions_total",
				Help: "Total number of administrative entitlement changes",
			},
			[]string{"transition"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.ChecksTotal, m.TransitionsTotal)
	}

	return m
}

func (m *Metrics) recordCheck(d Decision) {
	if m == nil {
		return
	}
	m.ChecksTotal.WithLabelValues(string(d.FeatureType), string(d.Reason)).Inc()
}

func (m *Metrics) recordTransition(t EventType) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(string(t)).Inc()
}
