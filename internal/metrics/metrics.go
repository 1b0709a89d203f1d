package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tackhq/tackd/internal/cache"
)

const namespace = "tackd"

// Collectors of one daemon, registered on a private registry.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	sessions *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Creates the collectors. Cache counters are read from stats at scrape time.
func New(stats func() cache.Stats) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_total",
				Help:      "Total number of sessions handled, by final state and failure kind.",
			},
			[]string{"state", "kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "session_duration_seconds",
				Help:      "Time from request to result.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"state"},
		),
	}

	m.registry.MustRegister(
		m.sessions,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		counterFunc("cache_hits_total", "Resolutions served by a live context.", func() float64 {
			return float64(stats().Hits)
		}),
		counterFunc("cache_misses_total", "Resolutions that waited for a load.", func() float64 {
			return float64(stats().Misses)
		}),
		counterFunc("cache_loads_total", "Entry points loaded.", func() float64 {
			return float64(stats().Loads)
		}),
		counterFunc("cache_evictions_total", "Contexts retired.", func() float64 {
			return float64(stats().Evictions)
		}),
		gaugeFunc("contexts_live", "Contexts currently resolvable.", func() float64 {
			return float64(stats().Live)
		}),
		gaugeFunc("contexts_retiring", "Retired contexts still held by invocations.", func() float64 {
			return float64(stats().Retiring)
		}),
	)

	return m
}

func counterFunc(name, help string, fn func() float64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, fn)
}

func gaugeFunc(name, help string, fn func() float64) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, fn)
}

// Records a finished session. Kind is empty for successful sessions.
func (m *Metrics) ObserveSession(state, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(state, kind).Inc()
	m.duration.WithLabelValues(state).Observe(d.Seconds())
}

// Returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Returns an HTTP handler serving the collectors in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
