package cache

import (
	"net/http"
	"time"
)

// Entry represents a cached Companies House response.
type Entry struct {
	// Body is the response body.
	Body []byte `json:"body"`

	// ETag identifies the response version for conditional requests.
	ETag string `json:"etag"`

	// StatusCode is the HTTP status code of the cached response.
	StatusCode int `json:"status_code"`

	// Header holds the response headers.
	Header http.Header `json:"header"`

	// StoredAt is when the response was cached.
	StoredAt time.Time `json:"stored_at"`

	// FreshUntil is when the entry stops being served without revalidation.
	FreshUntil time.Time `json:"fresh_until"`
}

// IsFresh reports whether the entry may be served without revalidation.
func (e *Entry) IsFresh() bool {
	return time.Now().Before(e.FreshUntil)
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age() time.Duration {
	return time.Since(e.StoredAt)
}

// FreshFor returns the remaining freshness window, 0 when stale.
func (e *Entry) FreshFor() time.Duration {
	d := time.Until(e.FreshUntil)
	if d < 0 {
		return 0
	}
	return d
}
