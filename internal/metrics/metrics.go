// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "repo_history"

var (
	// buckets for seconds resolutions of histograms
	buckets = []float64{.01, .05, .25, .5, 1, 2.5, 5, 10, 30, 60}

	CollectDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collect_duration_seconds",
			Help:      "Time taken to fetch and persist one snapshot.",
			Buckets:   buckets,
		},
	)
	HistogramDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "histogram_duration_seconds",
			Help:      "Time taken to read and bucket one observation stream.",
			Buckets:   buckets,
		},
		[]string{"kind"},
	)
	ObservationsFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_fetched_total",
			Help:      "Observations returned by the GitHub API.",
		},
		[]string{"kind"},
	)
	ObservationsStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_stored_total",
			Help:      "Observations newly persisted, after deduplication.",
		},
		[]string{"kind"},
	)
	CollectErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collect_errors_total",
			Help:      "Snapshots that failed.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		CollectDuration,
		HistogramDuration,
		ObservationsFetched,
		ObservationsStored,
		CollectErrors,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
