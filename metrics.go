package gogine

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "gogine"

// Metrics records lifecycle metrics. A nil *Metrics records nothing.
type Metrics struct {
	startups   *prometheus.CounterVec
	shutdowns  *prometheus.CounterVec
	phase      prometheus.Gauge
	registered prometheus.Gauge
}

// NewMetrics creates the lifecycle collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		startups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "subsystem",
				Name:      "startups_total",
				Help:      "Subsystem startup calls by result.",
			},
			[]string{"subsystem", "result"},
		),
		shutdowns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "subsystem",
				Name:      "shutdowns_total",
				Help:      "Subsystem shutdown calls by result.",
			},
			[]string{"subsystem", "result"},
		),
		phase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "runner",
			Name:      "phase",
			Help:      "Current runner phase: 0 idle, 1 starting, 2 running, 3 stopping, 4 stopped, 5 failed.",
		}),
		registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "registered_subsystems",
			Help:      "Number of registered subsystems, enabled or not.",
		}),
	}

	for _, c := range []prometheus.Collector{m.startups, m.shutdowns, m.phase, m.registered} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register lifecycle metrics: %w", err)
		}
	}
	return m, nil
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func (m *Metrics) observeStartup(name string, ok bool) {
	if m == nil {
		return
	}
	m.startups.WithLabelValues(name, resultLabel(ok)).Inc()
}

func (m *Metrics) observeShutdown(name string, ok bool) {
	if m == nil {
		return
	}
	m.shutdowns.WithLabelValues(name, resultLabel(ok)).Inc()
}

func (m *Metrics) setPhase(p Phase) {
	if m == nil {
		return
	}
	m.phase.Set(float64(p))
}

func (m *Metrics) setRegistered(n int) {
	if m == nil {
		return
	}
	m.registered.Set(float64(n))
}
