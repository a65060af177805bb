// Package metrics owns the prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sitebuilder"

// Label names
const (
	RouteLabel   = "route"
	MethodLabel  = "method"
	CodeLabel    = "code"
	KindLabel    = "kind"
	OutcomeLabel = "outcome"
)

// Outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeRetry   = "retry"
	OutcomeSkipped = "skipped"
)

// Generation kinds
const (
	KindBuild    = "build"
	KindSurprise = "surprise"
)

// Metrics groups every collector the service records
type Metrics struct {
	registry *prometheus.Registry

	RequestCount       *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	Generations        *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	RateLimited        prometheus.Counter
	ScreenshotAttempts *prometheus.CounterVec
	Screenshots        *prometheus.CounterVec
	BackgroundTasks    prometheus.Gauge
}

// New registers all collectors on a fresh registry, so tests can create as
// many as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "The total number of HTTP requests handled",
			},
			[]string{RouteLabel, MethodLabel, CodeLabel},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "A histogram of latencies for requests.",
				Buckets:   []float64{0.01, 0.05, .1, .25, .5, 1, 5, 10, 30, 60, 120},
			},
			[]string{RouteLabel, MethodLabel},
		),
		Generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "The total number of generation calls by kind and outcome",
			},
			[]string{KindLabel, OutcomeLabel},
		),
		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Time spent waiting on the completion endpoint.",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
			},
			[]string{KindLabel},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "The total number of requests rejected by the rate limiter",
			},
		),
		ScreenshotAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "screenshot_attempts_total",
				Help:      "Render API calls by outcome",
			},
			[]string{OutcomeLabel},
		),
		Screenshots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "screenshots_total",
				Help:      "Screenshot pipeline runs by final outcome",
			},
			[]string{OutcomeLabel},
		),
		BackgroundTasks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "background_tasks_in_flight",
				Help:      "The number of background tasks currently running",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCount,
		m.RequestDuration,
		m.Generations,
		m.GenerationDuration,
		m.RateLimited,
		m.ScreenshotAttempts,
		m.Screenshots,
		m.BackgroundTasks,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
