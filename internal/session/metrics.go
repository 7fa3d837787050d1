package session

import "github.com/prometheus/client_golang/prometheus"

// Event outcomes recorded by Metrics.
const (
	outcomeMatched   = "matched"
	outcomeUnmatched = "unmatched"
	outcomeIgnored   = "ignored"
)

// Metrics exposes session counters to Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	events      *prometheus.CounterVec
	completions prometheus.Counter
	missions    *prometheus.CounterVec
	entities    prometheus.Gauge
}

// NewMetrics creates the session metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalops",
			Name:      "events_total",
			Help:      "Events handled by the session, by outcome.",
		}, []string{"outcome"}),
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "signalops",
			Name:      "objectives_completed_total",
			Help:      "Objectives moved to COMPLETE.",
		}),
		missions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalops",
			Name:      "missions_total",
			Help:      "Mission lifecycle transitions.",
		}, []string{"transition"}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "signalops",
			Name:      "tracked_entities",
			Help:      "Live entities in the registry.",
		}),
	}
	reg.MustRegister(m.events, m.completions, m.missions, m.entities)
	return m
}

func (m *Metrics) event(outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome).Inc()
}

func (m *Metrics) completed(n int) {
	if m == nil || n == 0 {
		return
	}
	m.completions.Add(float64(n))
}

func (m *Metrics) mission(transition string) {
	if m == nil {
		return
	}
	m.missions.WithLabelValues(transition).Inc()
}

func (m *Metrics) trackedEntities(n int) {
	if m == nil {
		return
	}
	m.entities.Set(float64(n))
}
