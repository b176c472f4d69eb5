package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultFreshFor is the freshness window applied to cached responses.
	// Companies House publishes no cache lifetimes, so this is a local
	// policy choice balancing staleness against the request budget.
	DefaultFreshFor = 2 * time.Minute

	// RevalidateFor is how long a stale entry is kept beyond its freshness
	// window so its ETag can still drive conditional requests.
	RevalidateFor = 1 * time.Hour
)

// ResponseToEntry converts an HTTP response into a cache entry with the
// given freshness window. The response body is restored for the caller.
func ResponseToEntry(resp *http.Response, freshFor time.Duration) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}
	if freshFor <= 0 {
		freshFor = DefaultFreshFor
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	now := time.Now()
	return &Entry{
		Body:       body,
		ETag:       resp.Header.Get("ETag"),
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		StoredAt:   now,
		FreshUntil: now.Add(freshFor),
	}, nil
}

// EntryToResponse rebuilds an HTTP response from a cache entry.
func EntryToResponse(entry *Entry) *http.Response {
	return &http.Response{
		StatusCode:    entry.StatusCode,
		Status:        http.StatusText(entry.StatusCode),
		Header:        entry.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
	}
}

// CanRevalidate reports whether a stale entry carries an ETag usable for a
// conditional request.
func CanRevalidate(entry *Entry) bool {
	return entry != nil && !entry.IsFresh() && entry.ETag != ""
}

// AddConditionalHeaders adds If-None-Match to a request so the server can
// answer 304 Not Modified.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	}
}
