// Package metrics exposes chat pipeline counters on a dedicated prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/longkey1/finanzas/internal/finanzas"
)

// Reply outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Metrics holds the collectors.
type Metrics struct {
	registry    *prometheus.Registry
	messages    *prometheus.CounterVec
	rateLimited prometheus.Counter
	replies     *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finanzas",
			Name:      "messages_total",
			Help:      "Chat messages appended to the history, by role.",
		}, []string{"role"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finanzas",
			Name:      "rate_limited_total",
			Help:      "Sends denied by the rate limiter.",
		}),
		replies: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "finanzas",
			Name:      "reply_duration_seconds",
			Help:      "Reply provider latency, by provider and outcome.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"provider", "outcome"}),
	}
	m.registry.MustRegister(
		m.messages,
		m.rateLimited,
		m.replies,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveMessage counts one appended message.
func (m *Metrics) ObserveMessage(role finanzas.Role) {
	m.messages.WithLabelValues(string(role)).Inc()
}

// ObserveRateLimited counts one denied send.
func (m *Metrics) ObserveRateLimited() {
	m.rateLimited.Inc()
}

// ObserveReply records a provider call.
func (m *Metrics) ObserveReply(provider, outcome string, d time.Duration) {
	m.replies.WithLabelValues(provider, outcome).Observe(d.Seconds())
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
