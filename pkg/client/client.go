// Package client provides the core Companies House HTTP client with rate
// limiting, caching, and error handling.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/registrant/companies-house-client/pkg/cache"
	"github.com/registrant/companies-house-client/pkg/ratelimit"
)

// DefaultBaseURL is the Companies House public data API.
const DefaultBaseURL = "https://api.company-information.service.gov.uk"

// Prometheus metrics for client operations.
var (
	chRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ch_requests_total",
		Help: "Total Companies House requests by endpoint and status",
	}, []string{"endpoint", "status"})

	chRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ch_request_duration_seconds",
		Help:    "Companies House request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	chErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ch_errors_total",
		Help: "Total Companies House errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Client is the main Companies House client.
type Client struct {
	httpClient  *http.Client
	redis       *redis.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis client for caching and rate limit state
	Redis *redis.Client

	// APIKey is the Companies House REST API key. It is sent as the basic
	// auth username with an empty password.
	APIKey string

	// BaseURL overrides the API host (for tests and proxies).
	// Defaults to DefaultBaseURL.
	BaseURL string

	// CacheFreshFor is how long cached responses are served without
	// revalidation. Companies House sends ETags but no Expires header.
	CacheFreshFor time.Duration

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, apiKey string) Config {
	return Config{
		Redis:          redis,
		APIKey:         apiKey,
		BaseURL:        DefaultBaseURL,
		CacheFreshFor:  cache.DefaultFreshFor,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
	}
}

// New creates a new Companies House client.
func New(cfg Config) (*Client, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.CacheFreshFor <= 0 {
		cfg.CacheFreshFor = cache.DefaultFreshFor
	}

	logger := log.With().Str("component", "ch-client").Logger()

	rateLimiter := ratelimit.NewTracker(cfg.Redis, logger)
	cacheManager := cache.NewManager(cfg.Redis)

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		redis:       cfg.Redis,
		rateLimiter: rateLimiter,
		cache:       cacheManager,
		config:      cfg,
		logger:      logger,
	}, nil
}

// Do performs an HTTP request with rate limiting, caching, and error handling.
// This is the core request method that orchestrates all client features.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		chRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check cache. Fresh entries are served without touching the
	// network or the rate limit window.
	cacheKey := cache.Key{
		Endpoint: endpoint,
		Query:    req.URL.Query(),
	}

	cachedEntry, err := c.cache.Get(ctx, cacheKey)
	if err != nil && err != cache.ErrCacheMiss {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
	}

	if cachedEntry != nil && cachedEntry.IsFresh() {
		c.logger.Debug().Str("endpoint", endpoint).Msg("Serving fresh cache entry")
		chRequestsTotal.WithLabelValues(endpoint, "cache").Inc()
		return cache.EntryToResponse(cachedEntry), nil
	}

	// Step 2: Check rate limit before going to the network.
	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		chRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, fmt.Errorf("request blocked: rate limit window exhausted")
	}

	// Step 3: Make a conditional request when a stale entry carries an ETag.
	if cache.CanRevalidate(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 4: Authentication and content negotiation. Companies House uses
	// basic auth with the API key as username and an empty password.
	req.SetBasicAuth(c.config.APIKey, "")
	req.Header.Set("Accept", "application/json")

	// Step 5: Execute HTTP request with retry logic.
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing Companies House request")

	var resp *http.Response
	var errClass ErrorClass

	retryErr := retryWithBackoff(ctx, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)

		// Handle network errors
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errClass = c.classifyError(nil, reqErr)
			chErrorsTotal.WithLabelValues(string(errClass)).Inc()
			chRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return reqErr
		}

		// Update rate limit from headers
		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		// 304 Not Modified is a success: the cached body is still valid
		if resp.StatusCode == http.StatusNotModified {
			return nil
		}

		// Handle HTTP errors
		if resp.StatusCode >= 400 {
			errClass = c.classifyError(resp, nil)
			chErrorsTotal.WithLabelValues(string(errClass)).Inc()
			chRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Companies House request error")

			if shouldRetry(errClass) {
				lastErr := &APIError{
					StatusCode: resp.StatusCode,
					ErrorClass: errClass,
					Message:    resp.Status,
				}
				resp.Body.Close() // Close the body before retrying
				return lastErr
			}

			// 4xx answers (404, 416, ...) are returned to the caller as
			// responses, not errors.
			return nil
		}

		// Success
		chRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return nil
	}, func(err error) ErrorClass {
		return errClass
	})

	if retryErr != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, retryErr
	}

	// Step 6: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		chRequestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()

		// Restart the cached entry's freshness window
		if err := c.cache.Refresh(ctx, cacheKey, c.config.CacheFreshFor); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}

		resp.Body.Close()
		return cache.EntryToResponse(cachedEntry), nil
	}

	// Step 7: Update cache on success
	if resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, c.config.CacheFreshFor)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Str("etag", entry.ETag).
					Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// Get performs a GET request to a Companies House endpoint.
func (c *Client) Get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.config.BaseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Close closes the client and releases resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager (for testing).
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
