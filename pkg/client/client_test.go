package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	// Flush test DB
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

// setRateLimitHeaders emulates the quota headers Companies House attaches to
// every response.
func setRateLimitHeaders(w http.ResponseWriter, remaining int) {
	w.Header().Set("X-Ratelimit-Remain", strconv.Itoa(remaining))
	w.Header().Set("X-Ratelimit-Limit", "600")
	w.Header().Set("X-Ratelimit-Reset", strconv.FormatInt(time.Now().Add(5*time.Minute).Unix(), 10))
}

func TestNew_Validation(t *testing.T) {
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer redisClient.Close()

	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config",
			config: Config{
				Redis:  redisClient,
				APIKey: "test-api-key",
			},
			expectError: false,
		},
		{
			name: "nil redis",
			config: Config{
				APIKey: "test-api-key",
			},
			expectError: true,
			errorMsg:    "redis client is required",
		},
		{
			name: "empty api key",
			config: Config{
				Redis: redisClient,
			},
			expectError: true,
			errorMsg:    "api key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
					return
				}
				if client == nil {
					t.Error("Client is nil")
				}
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer redisClient.Close()

	apiKey := "test-api-key"
	cfg := DefaultConfig(redisClient, apiKey)

	if cfg.Redis != redisClient {
		t.Error("Redis client not set correctly")
	}
	if cfg.APIKey != apiKey {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, apiKey)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.CacheFreshFor <= 0 {
		t.Errorf("CacheFreshFor = %v, should be > 0", cfg.CacheFreshFor)
	}
}

func TestClassifyError(t *testing.T) {
	logger := zerolog.Nop()

	client := &Client{
		logger: logger,
	}

	tests := []struct {
		name       string
		statusCode int
		err        error
		expected   ErrorClass
	}{
		{
			name:       "network error",
			statusCode: 0,
			err:        io.EOF,
			expected:   ErrorClassNetwork,
		},
		{
			name:       "client error 404",
			statusCode: 404,
			err:        nil,
			expected:   ErrorClassClient,
		},
		{
			name:       "client error 401",
			statusCode: 401,
			err:        nil,
			expected:   ErrorClassClient,
		},
		{
			name:       "range not satisfiable 416",
			statusCode: 416,
			err:        nil,
			expected:   ErrorClassClient,
		},
		{
			name:       "rate limit 429",
			statusCode: 429,
			err:        nil,
			expected:   ErrorClassRateLimit,
		},
		{
			name:       "server error 500",
			statusCode: 500,
			err:        nil,
			expected:   ErrorClassServer,
		},
		{
			name:       "server error 503",
			statusCode: 503,
			err:        nil,
			expected:   ErrorClassServer,
		},
		{
			name:       "success 200",
			statusCode: 200,
			err:        nil,
			expected:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *http.Response
			if tt.statusCode > 0 {
				resp = &http.Response{
					StatusCode: tt.statusCode,
				}
			}

			result := client.classifyError(resp, tt.err)
			if result != tt.expected {
				t.Errorf("classifyError() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestDo_BasicAuthSet(t *testing.T) {
	redisClient := setupTestRedis(t)

	var gotUser, gotPass string
	var gotAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotAuth = r.BasicAuth()
		setRateLimitHeaders(w, 599)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"company_number": "09370755"}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(redisClient, "test-api-key")
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	req, _ := http.NewRequest("GET", server.URL+"/company/09370755", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	resp.Body.Close()

	if !gotAuth {
		t.Fatal("No basic auth credentials received")
	}
	if gotUser != "test-api-key" || gotPass != "" {
		t.Errorf("Basic auth = (%q, %q), want (%q, \"\")", gotUser, gotPass, "test-api-key")
	}
}

func TestDo_RateLimitBlock(t *testing.T) {
	redisClient := setupTestRedis(t)

	// Pre-populate Redis with an exhausted window
	ctx := context.Background()
	now := time.Now()
	redisClient.Set(ctx, "ch:rate_limit:remaining", 3, 0)
	redisClient.Set(ctx, "ch:rate_limit:window_limit", 600, 0)
	redisClient.Set(ctx, "ch:rate_limit:reset_timestamp", now.Add(60*time.Second).Unix(), 0)
	// Add last_update to ensure GetState() doesn't return default healthy state
	lastUpdateJSON, _ := json.Marshal(now)
	redisClient.Set(ctx, "ch:rate_limit:last_update", lastUpdateJSON, 0)

	cfg := DefaultConfig(redisClient, "test-api-key")
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	req, _ := http.NewRequest("GET", "http://example.com/company/09370755", nil)
	_, err = client.Do(req)

	if err == nil {
		t.Error("Expected request to be blocked by rate limiter")
	}
	if err != nil && err.Error() != "request blocked: rate limit window exhausted" {
		t.Errorf("Error = %q, want rate limit block error", err.Error())
	}
}

func TestDo_FreshCacheSkipsNetwork(t *testing.T) {
	redisClient := setupTestRedis(t)

	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		setRateLimitHeaders(w, 599)
		w.Header().Set("ETag", `"abc123"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"company_number": "09370755"}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(redisClient, "test-api-key")
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	// First request hits the server and populates the cache
	req1, _ := http.NewRequest("GET", server.URL+"/company/09370755", nil)
	resp1, err := client.Do(req1)
	if err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	body1, _ := io.ReadAll(resp1.Body)
	resp1.Body.Close()

	if requestCount != 1 {
		t.Fatalf("Request count after first request = %d, want 1", requestCount)
	}

	// Second request inside the freshness window is served from cache
	req2, _ := http.NewRequest("GET", server.URL+"/company/09370755", nil)
	resp2, err := client.Do(req2)
	if err != nil {
		t.Fatalf("Second request failed: %v", err)
	}
	body2, _ := io.ReadAll(resp2.Body)
	resp2.Body.Close()

	if requestCount != 1 {
		t.Errorf("Request count after cached request = %d, want 1", requestCount)
	}
	if string(body1) != string(body2) {
		t.Errorf("Cached body = %q, want %q", body2, body1)
	}
}

func TestDo_Handle304NotModified(t *testing.T) {
	redisClient := setupTestRedis(t)

	conditionalSeen := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setRateLimitHeaders(w, 599)

		// Revalidation request: the body has not changed
		if r.Header.Get("If-None-Match") == `"abc123"` {
			conditionalSeen = true
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", `"abc123"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"company_number": "09370755"}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(redisClient, "test-api-key")
	// Tiny freshness window so the second request has to revalidate
	cfg.CacheFreshFor = 50 * time.Millisecond
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	// First request populates the cache
	req1, _ := http.NewRequest("GET", server.URL+"/company/09370755", nil)
	resp1, err := client.Do(req1)
	if err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	resp1.Body.Close()

	if resp1.StatusCode != http.StatusOK {
		t.Errorf("First response status = %d, want %d", resp1.StatusCode, http.StatusOK)
	}

	// Let the entry go stale
	time.Sleep(100 * time.Millisecond)

	// Second request revalidates with If-None-Match and gets the cached body
	req2, _ := http.NewRequest("GET", server.URL+"/company/09370755", nil)
	resp2, err := client.Do(req2)
	if err != nil {
		t.Fatalf("Second request failed: %v", err)
	}
	body, _ := io.ReadAll(resp2.Body)
	resp2.Body.Close()

	if !conditionalSeen {
		t.Error("Second request did not carry If-None-Match")
	}
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("Second response status = %d, want %d", resp2.StatusCode, http.StatusOK)
	}
	if string(body) != `{"company_number": "09370755"}` {
		t.Errorf("Second response body = %q", body)
	}
}

func TestGet(t *testing.T) {
	redisClient := setupTestRedis(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setRateLimitHeaders(w, 599)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"company_number": "09370755"}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(redisClient, "test-api-key")
	cfg.BaseURL = server.URL
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	resp, err := client.Get(context.Background(), "/company/09370755")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestDo_RetryOnServerError(t *testing.T) {
	redisClient := setupTestRedis(t)

	// Server that fails twice, then succeeds
	attemptCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount++
		setRateLimitHeaders(w, 599)

		if attemptCount < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(redisClient, "test-api-key")
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	req, _ := http.NewRequest("GET", server.URL+"/company/09370755", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 after retry, got %d", resp.StatusCode)
	}
	if attemptCount != 3 {
		t.Errorf("Expected 3 attempts (2 retries), got %d", attemptCount)
	}
}

func TestDo_NoRetryOnClientError(t *testing.T) {
	redisClient := setupTestRedis(t)

	// Server that always returns 404
	attemptCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount++
		setRateLimitHeaders(w, 599)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := DefaultConfig(redisClient, "test-api-key")
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	req, _ := http.NewRequest("GET", server.URL+"/company/00000000", nil)
	resp, err := client.Do(req)

	// Should not error out, but return the 404 response
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
	// Should only attempt once (no retry for client errors)
	if attemptCount != 1 {
		t.Errorf("Expected 1 attempt (no retry for 4xx), got %d", attemptCount)
	}
}

func TestDo_RetryOnRateLimit(t *testing.T) {
	redisClient := setupTestRedis(t)

	// Server that returns 429 once, then succeeds
	attemptCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount++
		setRateLimitHeaders(w, 599)

		if attemptCount == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(redisClient, "test-api-key")
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	req, _ := http.NewRequest("GET", server.URL+"/search/companies", nil)

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)

	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 after retry, got %d", resp.StatusCode)
	}
	if attemptCount != 2 {
		t.Errorf("Expected 2 attempts (1 retry), got %d", attemptCount)
	}

	// Rate limit retry should have waited (initial backoff is 5s, with jitter 4-6s)
	if duration < 3*time.Second {
		t.Errorf("Expected at least 3s delay for rate limit retry, got %v", duration)
	}
}

func TestDo_RetryExhausted(t *testing.T) {
	redisClient := setupTestRedis(t)

	// Server that always fails with 500
	attemptCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount++
		setRateLimitHeaders(w, 599)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := DefaultConfig(redisClient, "test-api-key")
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	req, _ := http.NewRequest("GET", server.URL+"/company/09370755", nil)
	_, err = client.Do(req)

	// Should fail with retry exhausted error
	if err == nil {
		t.Error("Expected error, got nil")
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	// Should attempt 3 times (max attempts)
	if attemptCount != 3 {
		t.Errorf("Expected 3 attempts, got %d", attemptCount)
	}
}
