package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the pagination engine.
var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ch_pagination_pages_fetched_total",
		Help: "Total pages fetched from the API by paginated lists",
	})

	pageFetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ch_pagination_fetch_errors_total",
		Help: "Total page fetches that failed",
	})

	coalescedWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ch_pagination_coalesced_waits_total",
		Help: "Total callers that attached to an already in-flight page fetch",
	})

	pageFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ch_pagination_fetch_duration_seconds",
		Help:    "Duration of single page fetches in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})
)
