// Package cache provides Companies House response caching with a Redis
// backend.
//
// The Companies House API does not publish cache lifetimes; responses carry
// ETags but no Expires header. The manager therefore stores each response
// with a fixed freshness window and keeps stale entries around for a
// revalidation period, so the client can make cheap conditional requests
// (If-None-Match) instead of refetching bodies that have not changed. A 304
// answer restarts the freshness window of the stored entry.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{
//		Endpoint: "/company/09370755/officers",
//		Query:    url.Values{"items_per_page": []string{"50"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	switch {
//	case err == cache.ErrCacheMiss:
//		// full request
//	case entry.IsFresh():
//		// serve from cache, no network
//	case cache.CanRevalidate(entry):
//		// conditional request with If-None-Match
//	}
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - ch_cache_hits_total{state} - hits by freshness state (fresh, stale)
//   - ch_cache_misses_total - misses
//   - ch_cache_size_bytes - bytes written to the cache
//   - ch_conditional_requests_total - conditional requests sent
//   - ch_304_responses_total - 304 Not Modified answers
//   - ch_cache_errors_total{operation} - cache operation errors
package cache
