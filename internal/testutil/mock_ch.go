// Package testutil provides testing utilities for the Companies House client.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCH is a configurable mock Companies House server for testing.
type MockCH struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	pageRequests      map[string]map[int]int
}

// NewMockCH creates a new mock Companies House server.
func NewMockCH() *MockCH {
	mock := &MockCH{
		handlers:     make(map[string]func(w http.ResponseWriter, r *http.Request)),
		pageRequests: make(map[string]map[int]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()

		// Track conditional requests
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}

		// Track per-page requests for paginated endpoints
		if startStr := r.URL.Query().Get("start_index"); startStr != "" {
			start, _ := strconv.Atoi(startStr)
			if mock.pageRequests[r.URL.Path] == nil {
				mock.pageRequests[r.URL.Path] = make(map[int]int)
			}
			mock.pageRequests[r.URL.Path][start]++
		}
		mock.mu.Unlock()

		// Check for custom handler
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default handler
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCH) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCH) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCH) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.pageRequests = make(map[string]map[int]int)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCH) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockCH) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		// Add delay if specified
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		// Set headers
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		// Write status and body
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetCollection serves a paginated collection at path using the Companies
// House envelope (items, items_per_page, start_index, total_results).
// makeItem renders the JSON record at index i. Offsets past the end answer
// 416. When reportTotal is false the envelope omits total_results.
func (m *MockCH) SetCollection(path string, total, perPage int, reportTotal bool, makeItem func(i int) string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		setQuotaHeaders(w)
		w.Header().Set("Content-Type", "application/json")

		start, _ := strconv.Atoi(r.URL.Query().Get("start_index"))
		if start >= total {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}

		end := start + perPage
		if end > total {
			end = total
		}
		items := make([]json.RawMessage, 0, end-start)
		for i := start; i < end; i++ {
			items = append(items, json.RawMessage(makeItem(i)))
		}

		env := map[string]any{
			"items":          items,
			"items_per_page": perPage,
			"start_index":    start,
		}
		if reportTotal {
			env["total_results"] = total
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(env)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCH) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockCH) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// PageRequestCount returns how many times the page starting at startIndex
// of path was requested.
func (m *MockCH) PageRequestCount(path string, startIndex int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pageRequests[path][startIndex]
}

// defaultHandler provides default Companies House style responses.
func (m *MockCH) defaultHandler(w http.ResponseWriter, r *http.Request) {
	setQuotaHeaders(w)
	w.Header().Set("Content-Type", "application/json")

	// Handle conditional requests
	if r.Header.Get("If-None-Match") != "" {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	// Default 200 OK response
	w.Header().Set("ETag", `"default-etag"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

func setQuotaHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Ratelimit-Remain", "599")
	w.Header().Set("X-Ratelimit-Limit", "600")
	w.Header().Set("X-Ratelimit-Reset", strconv.FormatInt(time.Now().Add(5*time.Minute).Unix(), 10))
}

// NewHealthyResponse creates a standard 200 OK response with quota headers.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-Ratelimit-Remain": "599",
			"X-Ratelimit-Limit":  "600",
			"X-Ratelimit-Reset":  strconv.FormatInt(time.Now().Add(5*time.Minute).Unix(), 10),
			"ETag":               `"test-etag-123"`,
			"Content-Type":       "application/json",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response with an
// exhausted window.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"X-Ratelimit-Remain": "0",
			"X-Ratelimit-Limit":  "600",
			"X-Ratelimit-Reset":  strconv.FormatInt(time.Now().Add(30*time.Second).Unix(), 10),
			"Content-Type":       "application/json",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"X-Ratelimit-Remain": "595",
			"X-Ratelimit-Limit":  "600",
			"X-Ratelimit-Reset":  strconv.FormatInt(time.Now().Add(5*time.Minute).Unix(), 10),
			"Content-Type":       "application/json",
		},
	}
}

// NewConditionalHandler creates a handler that answers 304 when the request
// carries a matching If-None-Match header.
func NewConditionalHandler(etag string, data string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		setQuotaHeaders(w)
		w.Header().Set("Content-Type", "application/json")

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
