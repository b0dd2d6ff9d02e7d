// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Doud-FR/Wiki/internal/authz"
)

type Metrics struct {
	registry  *prometheus.Registry
	decisions *prometheus.CounterVec
	requests  *prometheus.HistogramVec
}

// New registers the wiki collectors together with the Go runtime and
// process collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wiki",
			Name:      "authz_decisions_total",
			Help:      "Authorization decisions by outcome and deciding rule.",
		}, []string{"decision", "reason"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wiki",
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by route template, method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
	}
	m.registry.MustRegister(
		m.decisions,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveDecision counts one authorization result. It is meant to be
// passed to authz.WithObserver.
func (m *Metrics) ObserveDecision(r authz.Result) {
	m.decisions.WithLabelValues(r.Decision.String(), r.Reason.String()).Inc()
}

func (m *Metrics) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
