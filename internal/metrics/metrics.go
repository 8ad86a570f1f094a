// Package metrics holds the Prometheus collectors of the chat server. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "livechat"

// Drop reasons.
const (
	DropBufferFull = "buffer_full"
	DropRateLimit  = "rate_limited"
	DropMalformed  = "malformed"
)

type Metrics struct {
	connections   prometheus.Gauge
	eventsIn      *prometheus.CounterVec
	eventsOut     *prometheus.CounterVec
	eventsDropped *prometheus.CounterVec
	storeErrors   *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open websocket connections.",
		}),
		eventsIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_in_total",
			Help:      "Inbound websocket events accepted for handling.",
		}, []string{"type"}),
		eventsOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_out_total",
			Help:      "Outbound frames queued to clients.",
		}, []string{"scope"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped before delivery or handling.",
		}, []string{"reason"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Failed store operations.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.connections, m.eventsIn, m.eventsOut, m.eventsDropped, m.storeErrors)
	return m
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) EventIn(eventType string) {
	if m != nil {
		m.eventsIn.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) EventsOut(scope string, n int) {
	if m != nil && n > 0 {
		m.eventsOut.WithLabelValues(scope).Add(float64(n))
	}
}

func (m *Metrics) Dropped(reason string) {
	if m != nil {
		m.eventsDropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) StoreError(op string) {
	if m != nil {
		m.storeErrors.WithLabelValues(op).Inc()
	}
}
