package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Hits tracks cache hits by freshness state (fresh, stale).
	Hits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ch_cache_hits_total",
			Help: "Total number of cache hits by freshness state",
		},
		[]string{"state"},
	)

	// Misses tracks cache misses.
	Misses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ch_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// Size tracks bytes written to the cache.
	Size = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ch_cache_size_bytes",
			Help: "Bytes written to the response cache",
		},
	)

	// ConditionalRequestsSent tracks conditional requests sent with If-None-Match.
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ch_conditional_requests_total",
			Help: "Total number of conditional requests sent",
		},
	)

	// NotModifiedResponses tracks 304 Not Modified answers.
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ch_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// Errors tracks cache operation errors.
	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ch_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
