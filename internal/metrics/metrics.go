// Package metrics holds the Prometheus collectors exported by the proxy.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is local to the service so tests and embedders never collide with
// prometheus.DefaultRegisterer.
var Registry = prometheus.NewRegistry()

var (
	Generations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxora_generations_total",
			Help: "Proxy generations partitioned by backend and outcome kind.",
		},
		[]string{"backend", "outcome"},
	)
	GenerationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fluxora_generation_duration_seconds",
			Help:    "Wall time spent waiting on the upstream provider.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90, 120, 150},
		},
		[]string{"backend"},
	)
	PollAttempts = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fluxora_poll_attempts",
			Help:    "Poll attempts made before a submit-then-poll job finished or timed out.",
			Buckets: prometheus.LinearBuckets(1, 5, 13),
		},
		[]string{"backend"},
	)
	InFlight = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "fluxora_generations_in_flight",
			Help: "Generations currently waiting on an upstream provider.",
		},
	)
	JournalErrors = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "fluxora_journal_errors_total",
			Help: "Generation journal writes that failed.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// Outcome is the label value recorded for a generation.
func Outcome(kind string) string {
	if kind == "" {
		return "success"
	}
	return kind
}
