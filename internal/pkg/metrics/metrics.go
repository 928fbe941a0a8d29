package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the Prometheus collectors for the directory service.
// A nil *Metrics is valid and records nothing, which keeps tests free of registries.
type Metrics struct {
	FetchRequests  *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
	CacheLookups   *prometheus.CounterVec
	BoundaryFaults *prometheus.CounterVec
	ViewSessions   prometheus.Gauge
}

// New creates and registers the collectors with the given registerer.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "directory_upstream_requests_total",
				Help: "Total number of upstream user API requests by outcome",
			},
			[]string{"outcome"}, // ok, timeout, http, network, unknown
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "directory_upstream_request_duration_seconds",
				Help:    "Latency of upstream user API requests",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"outcome"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "directory_revalidation_cache_lookups_total",
				Help: "Revalidation cache lookups by result",
			},
			[]string{"result"}, // hit, miss
		),
		BoundaryFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "directory_render_faults_total",
				Help: "Render failures captured by error boundaries",
			},
			[]string{"boundary"},
		),
		ViewSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "directory_view_sessions",
			Help: "Currently mounted view sessions",
		}),
	}

	registerer.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.CacheLookups,
		m.BoundaryFaults,
		m.ViewSessions,
	)

	return m
}

// ObserveFetch records one upstream request.
func (m *Metrics) ObserveFetch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchRequests.WithLabelValues(outcome).Inc()
	m.FetchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveCache records a revalidation cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// IncBoundaryFault counts a fault captured by the named boundary.
func (m *Metrics) IncBoundaryFault(boundary string) {
	if m == nil {
		return
	}
	m.BoundaryFaults.WithLabelValues(boundary).Inc()
}

// SetViewSessions reports the number of mounted view sessions.
func (m *Metrics) SetViewSessions(n int) {
	if m == nil {
		return
	}
	m.ViewSessions.Set(float64(n))
}
