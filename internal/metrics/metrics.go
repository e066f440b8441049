// Package metrics holds the Prometheus collectors shared by the runtime shim
// and the gateway.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Component label values.
const (
	ComponentRuntime = "runtime"
	ComponentGateway = "gateway"
)

// Metrics 运行时和网关的计数器
type Metrics struct {
	registry *prometheus.Registry

	invocations  *prometheus.CounterVec
	streamEvents *prometheus.CounterVec
	streamErrors *prometheus.CounterVec
	relayBytes   prometheus.Counter
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the process-wide metrics instance.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = New()
	})
	return shared
}

// New creates a Metrics instance on its own registry, so tests can build
// as many as they like without duplicate registration panics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentcore",
				Name:      "invocations_total",
				Help:      "Number of chat invocations accepted.",
			},
			[]string{"component"},
		),
		streamEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentcore",
				Name:      "stream_events_total",
				Help:      "Number of UI message stream events written, by type.",
			},
			[]string{"type"},
		),
		streamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agentcore",
				Name:      "stream_errors_total",
				Help:      "Number of streams that ended with an error.",
			},
			[]string{"component"},
		),
		relayBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "agentcore",
				Name:      "relay_bytes_total",
				Help:      "Bytes relayed from the agent runtime to callers.",
			},
		),
	}
	reg.MustRegister(
		m.invocations,
		m.streamEvents,
		m.streamErrors,
		m.relayBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// IncInvocation counts one accepted invocation.
func (m *Metrics) IncInvocation(component string) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(component).Inc()
}

// IncEvent counts one written stream event.
func (m *Metrics) IncEvent(eventType string) {
	if m == nil {
		return
	}
	m.streamEvents.WithLabelValues(eventType).Inc()
}

// IncStreamError counts one failed stream.
func (m *Metrics) IncStreamError(component string) {
	if m == nil {
		return
	}
	m.streamErrors.WithLabelValues(component).Inc()
}

// AddRelayBytes adds relayed byte counts.
func (m *Metrics) AddRelayBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.relayBytes.Add(float64(n))
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
