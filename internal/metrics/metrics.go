// Package metrics exposes Prometheus metrics for the tool registry
// and invocation engine. Metrics implements tool.Recorder, so wiring
// it into the engine is a single SetRecorder call.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nounverse/verbs/pkg/tool"
)

// Metrics holds all Prometheus metrics for the daemon.
type Metrics struct {
	registry *prometheus.Registry

	// Invocation metrics
	InvocationsTotal      *prometheus.CounterVec
	InvocationDuration    *prometheus.HistogramVec
	InvocationErrorsTotal *prometheus.CounterVec

	// Registry and gate metrics
	RegisteredTools      prometheus.Gauge
	PendingConfirmations prometheus.Gauge
}

// NewMetrics creates and registers all metrics on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		InvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verbs_invocations_total",
				Help: "Total number of tool invocations",
			},
			[]string{"tool", "outcome"},
		),
		InvocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "verbs_invocation_duration_seconds",
				Help:    "Duration of tool invocations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		InvocationErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verbs_invocation_errors_total",
				Help: "Total number of failed invocations by error code",
			},
			[]string{"tool", "error_code"},
		),

		RegisteredTools: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "verbs_registered_tools",
				Help: "Number of tools currently registered",
			},
		),
		PendingConfirmations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "verbs_pending_confirmations",
				Help: "Number of unredeemed confirmation tokens",
			},
		),
	}

	m.registerMetrics()

	return m
}

func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.InvocationsTotal)
	m.registry.MustRegister(m.InvocationDuration)
	m.registry.MustRegister(m.InvocationErrorsTotal)
	m.registry.MustRegister(m.RegisteredTools)
	m.registry.MustRegister(m.PendingConfirmations)
}

// RecordInvocation counts one finished invocation and observes its
// duration. Implements tool.Recorder.
func (m *Metrics) RecordInvocation(toolID string, outcome string, duration time.Duration) {
	m.InvocationsTotal.WithLabelValues(toolID, outcome).Inc()
	m.InvocationDuration.WithLabelValues(toolID).Observe(duration.Seconds())
}

// RecordInvocationError counts one failed invocation by error code.
// Implements tool.Recorder.
func (m *Metrics) RecordInvocationError(toolID string, code tool.ErrorCode) {
	m.InvocationErrorsTotal.WithLabelValues(toolID, string(code)).Inc()
}

// SetRegisteredTools updates the registered tools gauge.
func (m *Metrics) SetRegisteredTools(n int) {
	m.RegisteredTools.Set(float64(n))
}

// SetPendingConfirmations updates the pending confirmations gauge.
func (m *Metrics) SetPendingConfirmations(n int) {
	m.PendingConfirmations.Set(float64(n))
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
