package pagination

import (
	"fmt"
	"sort"
	"sync"
)

// PageCache owns the sparse store of already-fetched pages and the
// bookkeeping of total count and contiguous frontier. Pages are inserted
// atomically and never overwritten; the total, once set, never changes.
//
// All methods are safe for concurrent use. The cache guards only its own
// state; coordination of in-flight fetches lives in List.
type PageCache[T any] struct {
	mu       sync.RWMutex
	pages    map[int][]T
	pageSize int // 0 until the first insert establishes it
	total    int // TotalUnknown until a response reports one

	resident        int // decoded items across all resident pages
	contiguous      int // pages resident consecutively from offset 0
	contiguousItems int // items covered by the contiguous pages
}

// NewPageCache creates an empty page cache with an unknown total.
func NewPageCache[T any]() *PageCache[T] {
	return &PageCache[T]{
		pages: make(map[int][]T),
		total: TotalUnknown,
	}
}

// PageSize returns the established page size, or 0 before the first insert.
func (c *PageCache[T]) PageSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pageSize
}

// Total returns the known total item count. ok is false until a page
// response has reported one.
func (c *PageCache[T]) Total() (total int, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.total == TotalUnknown {
		return 0, false
	}
	return c.total, true
}

// SetTotal records the total item count. Setting the same value again is a
// no-op; setting a different value is a ConsistencyError, because the total
// bounds indexing and iteration and must not drift mid-pagination.
func (c *PageCache[T]) SetTotal(total int) error {
	if total < 0 {
		return &ConsistencyError{Message: fmt.Sprintf("negative total %d", total)}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.total != TotalUnknown && c.total != total {
		return &ConsistencyError{
			Message: fmt.Sprintf("total changed from %d to %d", c.total, total),
		}
	}
	c.total = total
	return nil
}

// Insert stores a decoded page at the given offset. The first insert
// establishes the page size; later inserts must declare the same size.
// Re-inserting a resident page with the same item count is a no-op
// (the fetch coordination avoids duplicate fetches, so this only happens
// on benign races); any other conflict is a ConsistencyError.
func (c *PageCache[T]) Insert(offset int, declaredSize int, items []T) error {
	if offset < 0 {
		return &ConsistencyError{Offset: offset, Message: "negative page offset"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if declaredSize > 0 {
		if c.pageSize == 0 {
			c.pageSize = declaredSize
		} else if c.pageSize != declaredSize {
			return &ConsistencyError{
				Offset:  offset,
				Message: fmt.Sprintf("declared page size changed from %d to %d", c.pageSize, declaredSize),
			}
		}
	} else if len(items) > 0 {
		return &ConsistencyError{
			Offset:  offset,
			Message: fmt.Sprintf("%d items on a page with no declared size", len(items)),
		}
	}

	if declaredSize > 0 && len(items) > declaredSize {
		return &ConsistencyError{
			Offset:  offset,
			Message: fmt.Sprintf("page holds %d items, declared size is %d", len(items), declaredSize),
		}
	}

	if c.total != TotalUnknown && declaredSize > 0 {
		expected := c.total - offset*declaredSize
		if expected > declaredSize {
			expected = declaredSize
		}
		if expected < 0 {
			expected = 0
		}
		if len(items) != expected {
			return &ConsistencyError{
				Offset:  offset,
				Message: fmt.Sprintf("page holds %d items, total %d implies %d", len(items), c.total, expected),
			}
		}
	}

	if existing, ok := c.pages[offset]; ok {
		if len(existing) != len(items) {
			return &ConsistencyError{
				Offset:  offset,
				Message: fmt.Sprintf("resident page holds %d items, re-inserted with %d", len(existing), len(items)),
			}
		}
		return nil
	}

	c.pages[offset] = items
	c.resident += len(items)
	for {
		page, ok := c.pages[c.contiguous]
		if !ok {
			break
		}
		c.contiguous++
		c.contiguousItems += len(page)
	}
	return nil
}

// Get returns the item at global index i if resident. ok is false for a
// plausible but non-resident index; an error is reserved for indices beyond
// a known total, negative indices, and indices past the observed end of an
// unknown-length collection.
func (c *PageCache[T]) Get(i int) (item T, ok bool, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero T
	if i < 0 {
		return zero, false, &IndexError{Index: i, Total: c.total}
	}
	if c.total != TotalUnknown && i >= c.total {
		return zero, false, &IndexError{Index: i, Total: c.total}
	}
	if c.pageSize <= 0 {
		return zero, false, nil
	}

	items, resident := c.pages[i/c.pageSize]
	if !resident {
		return zero, false, nil
	}
	local := i % c.pageSize
	if local >= len(items) {
		// The page is resident but ends before i: the collection is shorter
		// than the index, observable only while the total is unknown.
		return zero, false, &IndexError{Index: i, Total: c.total}
	}
	return items[local], true, nil
}

// HasPage reports whether the page at the given offset is resident.
func (c *PageCache[T]) HasPage(offset int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.pages[offset]
	return ok
}

// Resident returns the number of items currently cached.
func (c *PageCache[T]) Resident() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resident
}

// ContiguousPages returns the number of pages resident consecutively from
// offset 0. Forward iteration can serve indices below
// ContiguousItems without fetching.
func (c *PageCache[T]) ContiguousPages() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.contiguous
}

// ContiguousItems returns the number of items covered by the contiguous
// pages starting at offset 0.
func (c *PageCache[T]) ContiguousItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.contiguousItems
}

// LocalItems returns all resident items in global index order. Gaps between
// resident pages are excluded, not nulled.
func (c *PageCache[T]) LocalItems() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	offsets := make([]int, 0, len(c.pages))
	for offset := range c.pages {
		offsets = append(offsets, offset)
	}
	sort.Ints(offsets)

	items := make([]T, 0, c.resident)
	for _, offset := range offsets {
		items = append(items, c.pages[offset]...)
	}
	return items
}

// LocalPages returns the resident pages in offset order.
func (c *PageCache[T]) LocalPages() [][]T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	offsets := make([]int, 0, len(c.pages))
	for offset := range c.pages {
		offsets = append(offsets, offset)
	}
	sort.Ints(offsets)

	pages := make([][]T, 0, len(offsets))
	for _, offset := range offsets {
		page := make([]T, len(c.pages[offset]))
		copy(page, c.pages[offset])
		pages = append(pages, page)
	}
	return pages
}
