package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	chRateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ch_rate_limit_remaining",
		Help: "Number of requests remaining in the current Companies House rate limit window",
	})

	chRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ch_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to exhausted rate limit window",
	})

	chRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ch_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to low remaining quota",
	})
)

// Tracker monitors Companies House rate limits and gates requests.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState retrieves the current rate limit state from Redis.
// Returns a default healthy state if no data exists in Redis.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	remaining, err := t.redis.Get(ctx, RedisKeyRemaining).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	limit, err := t.redis.Get(ctx, RedisKeyWindowLimit).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get window limit: %w", err)
	}

	resetTimestamp, err := t.redis.Get(ctx, RedisKeyResetTimestamp).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	// No state in Redis yet: assume a full window until headers arrive.
	if err == redis.Nil {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		return &State{
			Remaining:  DefaultWindowLimit,
			Limit:      DefaultWindowLimit,
			ResetAt:    time.Now().Add(5 * time.Minute),
			LastUpdate: time.Now(),
			IsHealthy:  true,
		}, nil
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &State{
		Remaining:  remaining,
		Limit:      limit,
		ResetAt:    time.Unix(resetTimestamp, 0),
		LastUpdate: lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// UpdateFromHeaders parses Companies House rate limit headers and updates
// Redis state. Responses without the headers (e.g. cached answers) are a
// no-op.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get("X-Ratelimit-Remain")
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse X-Ratelimit-Remain header: %w", err)
	}

	limit := DefaultWindowLimit
	if limitStr := headers.Get("X-Ratelimit-Limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return fmt.Errorf("parse X-Ratelimit-Limit header: %w", err)
		}
	}

	// X-Ratelimit-Reset is epoch seconds, not seconds-until-reset.
	resetStr := headers.Get("X-Ratelimit-Reset")
	if resetStr == "" {
		return fmt.Errorf("X-Ratelimit-Reset header missing")
	}

	resetEpoch, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return fmt.Errorf("parse X-Ratelimit-Reset header: %w", err)
	}

	now := time.Now()
	state := &State{
		Remaining:  remain,
		Limit:      limit,
		ResetAt:    time.Unix(resetEpoch, 0),
		LastUpdate: now,
	}
	state.UpdateHealth()

	// Store in Redis atomically
	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyRemaining, remain, 0)
	pipe.Set(ctx, RedisKeyWindowLimit, limit, 0)
	pipe.Set(ctx, RedisKeyResetTimestamp, state.ResetAt.Unix(), 0)

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	chRateLimitRemaining.Set(float64(remain))

	logEvent := t.logger.Info().
		Int("remaining", remain).
		Int("limit", limit).
		Time("reset_at", state.ResetAt).
		Bool("is_healthy", state.IsHealthy)

	if state.NeedsBlock() {
		logEvent = t.logger.Error()
		logEvent.Msg("Rate limit window exhausted - requests will be blocked")
	} else if state.NeedsThrottling() {
		logEvent = t.logger.Warn()
		logEvent.Msg("Rate limit window low - requests will be throttled")
	} else {
		logEvent.Msg("Rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on current
// rate limit state. Returns false if the request should be blocked until the
// window resets. Returns true but may sleep for throttling when quota runs
// low.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	// Exhausted: block until the window resets
	if state.NeedsBlock() {
		waitDuration := state.TimeUntilReset()

		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", waitDuration).
			Msg("Rate limit exhausted - blocking request")

		chRateLimitBlocksTotal.Inc()
		return false, nil
	}

	// Low quota: slow down (1 second sleep)
	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Rate limit low - throttling request")

		chRateLimitThrottlesTotal.Inc()
		select {
		case <-time.After(1 * time.Second):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	return true, nil
}
