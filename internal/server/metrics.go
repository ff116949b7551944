package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts agent activity for the /metrics endpoint.
type Metrics struct {
	registry *prometheus.Registry

	runsStarted   *prometheus.CounterVec
	eventsEmitted *prometheus.CounterVec
	activeStreams prometheus.Gauge
	pushSends     *prometheus.CounterVec
}

// NewMetrics builds a self-contained metrics registry so tests can create
// servers without hitting the global default registry twice.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "synapse",
			Name:      "agent_runs_started_total",
			Help:      "Agent runs started, labelled by mode (run, resume, sync).",
		}, []string{"mode"}),
		eventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "synapse",
			Name:      "agent_events_emitted_total",
			Help:      "Events written to clients, labelled by event type.",
		}, []string{"type"}),
		activeStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "synapse",
			Name:      "agent_active_streams",
			Help:      "Currently open SSE streams.",
		}),
		pushSends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "synapse",
			Name:      "push_sends_total",
			Help:      "Push notification attempts, labelled by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) runStarted(mode string)  { m.runsStarted.WithLabelValues(mode).Inc() }
func (m *Metrics) eventEmitted(typ string) { m.eventsEmitted.WithLabelValues(typ).Inc() }
func (m *Metrics) streamOpened()           { m.activeStreams.Inc() }
func (m *Metrics) streamClosed()           { m.activeStreams.Dec() }
func (m *Metrics) pushSent(delivered bool) {
	outcome := "failed"
	if delivered {
		outcome = "delivered"
	}
	m.pushSends.WithLabelValues(outcome).Inc()
}
