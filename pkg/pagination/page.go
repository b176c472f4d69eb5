package pagination

import (
	"context"
	"encoding/json"
)

// TotalUnknown marks a page whose response did not report a total item count.
const TotalUnknown = -1

// RawPage is one network-fetched batch of undecoded records plus metadata.
type RawPage struct {
	// Items are the raw records of this page, in collection order.
	Items []json.RawMessage

	// PageSize is the declared items-per-page of the collection. It must be
	// the same for every page; interior pages carry exactly PageSize items,
	// the final page may carry fewer.
	PageSize int

	// Total is the total item count reported by the server, or TotalUnknown.
	Total int
}

// PageFetcher retrieves the raw page at the given zero-based page offset.
// Implementations must be safe to call more than once for the same offset
// (the list avoids doing so) and must return transport failures as errors
// rather than malformed pages.
type PageFetcher func(ctx context.Context, offset int) (RawPage, error)

// RecordDecoder converts one raw record into a typed item. It is invoked
// exactly once per item, at insertion time.
type RecordDecoder[T any] func(raw json.RawMessage) (T, error)
