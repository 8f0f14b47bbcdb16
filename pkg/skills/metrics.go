package skills

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Bundle load outcomes recorded in skillgate_bundle_loads_total
const (
	LoadResultLoaded = "loaded"
	LoadResultAbsent = "absent"
	LoadResultFailed = "failed"
	LoadResultCached = "cached"
)

// Metrics holds the Prometheus collectors for skill loading
type Metrics struct {
	BundleLoadsTotal *prometheus.CounterVec
	SkillsRegistered prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BundleLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillgate_bundle_loads_total",
				Help: "Total number of plugin bundle load attempts by result",
			},
			[]string{"result"},
		),
		SkillsRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "skillgate_skills_registered",
				Help: "Number of skills currently registered",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.BundleLoadsTotal, m.SkillsRegistered)
	}

	return m
}

func (m *Metrics) recordLoad(result string) {
	if m == nil {
		return
	}
	m.BundleLoadsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) setRegistered(n int) {
	if m == nil {
		return
	}
	m.SkillsRegistered.Set(float64(n))
}
