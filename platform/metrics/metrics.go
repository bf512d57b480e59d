// Package metrics exposes Prometheus collectors for the matching and
// notification pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arrume"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	matchAttempts    *prometheus.CounterVec
	matchedProviders prometheus.Histogram
	dispatchOutcomes *prometheus.CounterVec
	externalCalls    *prometheus.HistogramVec
	leadsSubmitted   *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		matchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matcher",
			Name:      "attempts_total",
			Help:      "Provider search attempts by strategy and whether they returned candidates.",
		}, []string{"strategy", "result"}),
		matchedProviders: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "matcher",
			Name:      "matched_providers",
			Help:      "Number of providers matched per lead.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		}),
		dispatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "outcomes_total",
			Help:      "Notification outcomes by audience and status.",
		}, []string{"audience", "status"}),
		externalCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "call_duration_seconds",
			Help:      "Latency of outbound calls by service and result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "result"}),
		leadsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leads",
			Name:      "submitted_total",
			Help:      "Lead submissions by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.matchAttempts,
		m.matchedProviders,
		m.dispatchOutcomes,
		m.externalCalls,
		m.leadsSubmitted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// MatchAttempt records one provider search strategy run.
func (m *Metrics) MatchAttempt(strategy string, found bool) {
	if m == nil {
		return
	}
	result := "empty"
	if found {
		result = "found"
	}
	m.matchAttempts.WithLabelValues(strategy, result).Inc()
}

// MatchedProviders records how many providers a lead was matched to.
func (m *Metrics) MatchedProviders(n int) {
	if m == nil {
		return
	}
	m.matchedProviders.Observe(float64(n))
}

// DispatchOutcome counts one notification outcome.
func (m *Metrics) DispatchOutcome(audience, status string) {
	if m == nil {
		return
	}
	m.dispatchOutcomes.WithLabelValues(audience, status).Inc()
}

// ExternalCall observes the latency of an outbound request.
func (m *Metrics) ExternalCall(service string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.externalCalls.WithLabelValues(service, result).Observe(time.Since(started).Seconds())
}

// LeadSubmitted counts a lead submission result (accepted, invalid, failed).
func (m *Metrics) LeadSubmitted(result string) {
	if m == nil {
		return
	}
	m.leadsSubmitted.WithLabelValues(result).Inc()
}
