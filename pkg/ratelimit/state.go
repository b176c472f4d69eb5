// Package ratelimit implements Companies House rate limit tracking and
// request gating. It monitors the X-Ratelimit-Remain and X-Ratelimit-Reset
// headers to keep clients inside the 600-requests-per-5-minutes window.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyRemaining      = "ch:rate_limit:remaining"
	RedisKeyWindowLimit    = "ch:rate_limit:window_limit"
	RedisKeyResetTimestamp = "ch:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "ch:rate_limit:last_update"
)

// Thresholds for rate limit decisions.
const (
	// DefaultWindowLimit is the documented Companies House quota: 600
	// requests per rolling five minute window.
	DefaultWindowLimit = 600

	// ThresholdCritical blocks all requests when remaining quota falls below
	// this value, leaving headroom for requests already in flight.
	ThresholdCritical = 5

	// ThresholdWarning applies throttling when remaining quota falls below
	// this value to stretch the rest of the window.
	ThresholdWarning = 50
)

// State represents the current Companies House rate limit state.
// This state is shared across all client instances via Redis.
type State struct {
	// Remaining is the number of requests left in the current window.
	// Extracted from the X-Ratelimit-Remain header.
	Remaining int `json:"remaining"`

	// Limit is the window quota reported by the X-Ratelimit-Limit header.
	Limit int `json:"limit"`

	// ResetAt is the timestamp when the window resets.
	// The X-Ratelimit-Reset header carries it as epoch seconds.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is the timestamp when this state was last updated.
	// Used to detect stale state.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy indicates whether the quota is in a healthy state.
	// True when Remaining >= ThresholdWarning.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsBlock returns true if requests should be blocked until the window
// resets. A block expires with the window.
func (s *State) NeedsBlock() bool {
	if s.Remaining >= ThresholdCritical {
		return false
	}
	return time.Now().Before(s.ResetAt)
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *State) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && !s.NeedsBlock()
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdWarning
}
