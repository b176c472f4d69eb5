package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached Companies House response. Two requests for the
// same endpoint with the same query parameters share one entry.
type Key struct {
	// Endpoint is the API path (e.g. "/company/09370755/officers").
	Endpoint string

	// Query holds the request's query parameters.
	Query url.Values
}

// String generates a deterministic cache key.
// Format: ch:endpoint:param1=val1:param2=val2 with parameters sorted.
//
// Example:
//
//	ch:company/09370755/officers:items_per_page=50:start_index=0
func (k Key) String() string {
	parts := []string{"ch"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			values := append([]string(nil), k.Query[name]...)
			sort.Strings(values)
			for _, value := range values {
				parts = append(parts, fmt.Sprintf("%s=%s", name, value))
			}
		}
	}

	return strings.Join(parts, ":")
}
