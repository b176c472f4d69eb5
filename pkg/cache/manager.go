package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager handles caching operations with a Redis backend. Entries live in
// Redis for their freshness window plus RevalidateFor, so stale entries
// remain available for conditional requests until Redis evicts them.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a new cache manager with a Redis backend.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis: redisClient,
	}
}

// Get retrieves a cache entry by key. The entry may be stale; callers
// decide between serving it, revalidating, and refetching via
// Entry.IsFresh and CanRevalidate. Returns ErrCacheMiss when absent.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			Misses.Inc()
			return nil, ErrCacheMiss
		}
		Errors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		Errors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsFresh() {
		Hits.WithLabelValues("fresh").Inc()
	} else {
		Hits.WithLabelValues("stale").Inc()
	}
	return &entry, nil
}

// Set stores a cache entry. The Redis TTL covers the freshness window plus
// the revalidation period.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.FreshFor() + RevalidateFor
	data, err := json.Marshal(entry)
	if err != nil {
		Errors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		Errors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	Size.Add(float64(len(data)))
	return nil
}

// Refresh restarts the freshness window of an existing entry. Used after a
// 304 Not Modified answer: the body is unchanged, only its age resets.
func (m *Manager) Refresh(ctx context.Context, key Key, freshFor time.Duration) error {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	if freshFor <= 0 {
		freshFor = DefaultFreshFor
	}
	entry.FreshUntil = time.Now().Add(freshFor)
	return m.Set(ctx, key, entry)
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		Errors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
