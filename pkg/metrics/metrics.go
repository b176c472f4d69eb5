// Package metrics provides the centralized Prometheus metrics registry for
// the Companies House client. All metrics are defined in their respective
// packages (client, cache, ratelimit, pagination) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - ch_rate_limit_remaining (Gauge): Requests remaining in the current window
//   - ch_rate_limit_blocks_total (Counter): Requests blocked due to exhausted window
//   - ch_rate_limit_throttles_total (Counter): Requests throttled due to low quota
//
// Cache Metrics (pkg/cache):
//   - ch_cache_hits_total{state} (Counter): Cache hits by freshness state (fresh, stale)
//   - ch_cache_misses_total (Counter): Cache misses
//   - ch_cache_size_bytes (Gauge): Bytes written to the response cache
//   - ch_304_responses_total (Counter): 304 Not Modified responses
//   - ch_conditional_requests_total (Counter): Conditional requests sent with If-None-Match
//   - ch_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - ch_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - ch_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - ch_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - ch_retries_total{error_class} (Counter): Retry attempts by error class
//   - ch_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - ch_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Pagination Metrics (pkg/pagination):
//   - ch_pagination_pages_fetched_total (Counter): Pages fetched from the upstream API
//   - ch_pagination_page_fetch_errors_total (Counter): Failed page fetches
//   - ch_pagination_coalesced_waits_total (Counter): Callers that waited on an in-flight fetch
//   - ch_pagination_page_fetch_duration_seconds (Histogram): Page fetch duration
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(ch_cache_hits_total[5m])) /
//   (sum(rate(ch_cache_hits_total[5m])) + sum(rate(ch_cache_misses_total[5m])))
//
//   # Quota Status
//   ch_rate_limit_remaining < 50
//
//   # Request Error Rate
//   rate(ch_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(ch_request_duration_seconds_bucket[5m]))
//
//   # Fetch Coalescing Effectiveness
//   rate(ch_pagination_coalesced_waits_total[5m]) /
//   rate(ch_pagination_pages_fetched_total[5m])
