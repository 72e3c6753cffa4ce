// Package observability holds the Prometheus instruments for the weather
// resolution pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aeroweather"

// Provider call outcomes.
const (
	ProviderOutcomeData  = "data"
	ProviderOutcomeEmpty = "empty"
	ProviderOutcomeError = "error"
)

// Metrics holds the Prometheus counters and histograms for weather resolution.
type Metrics struct {
	ProviderRequests *prometheus.CounterVec   // labels: provider, outcome={data,empty,error}
	ProviderDuration *prometheus.HistogramVec // labels: provider
	Resolutions      *prometheus.CounterVec   // labels: outcome
	Verdicts         *prometheus.CounterVec   // labels: status
}

// NewMetrics creates the pipeline metrics and registers them with reg.
// A nil reg uses the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := newMetrics()
	reg.MustRegister(
		m.ProviderRequests,
		m.ProviderDuration,
		m.Resolutions,
		m.Verdicts,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as
// many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Weather provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Weather provider call duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Station resolutions by terminal outcome.",
		}, []string{"outcome"}),
		Verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_verdicts_total",
			Help:      "Safety verdicts issued by status.",
		}, []string{"status"}),
	}
}
