package pagination

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned when a List is used before its first page
// was fetched. It only occurs for zero-value lists; NewList never returns
// an uninitialized instance.
var ErrNotInitialized = errors.New("paginated list not initialized")

// IndexError reports an index outside the bounds of the list.
//
// Negative indexing from the end is deliberately unsupported: the total may
// not be known yet, and a silently shifting meaning of -1 would be worse
// than failing fast.
type IndexError struct {
	Index int
	// Total is the known total count, or TotalUnknown.
	Total int
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	if e.Total == TotalUnknown {
		return fmt.Sprintf("index %d out of range", e.Index)
	}
	return fmt.Sprintf("index %d out of range [0:%d)", e.Index, e.Total)
}

// ConsistencyError reports a page or total that conflicts with previously
// cached data. The cached state is no longer trustworthy; the list should
// be discarded and rebuilt.
type ConsistencyError struct {
	Offset  int
	Message string
}

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("pagination consistency fault at page %d: %s", e.Offset, e.Message)
}

// FetchError wraps a transport-level failure for a single page fetch.
// The in-flight marker for the page is cleared before this is returned,
// so a later access retries the fetch.
type FetchError struct {
	Offset int
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d: %v", e.Offset, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// DecodeError reports a record that failed decoding. The containing page is
// not inserted; items already cached from other pages are unaffected.
type DecodeError struct {
	Offset int
	Index  int // item index within the page
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode record %d of page %d: %v", e.Index, e.Offset, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
