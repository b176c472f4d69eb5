package pagination

import (
	"context"
	"errors"
)

// Iterator is a forward pass over a List from index 0. Each step returns
// the next item, fetching its containing page on demand. Iteration ends at
// the known total, or for unknown-length collections when a fetch returns
// an empty page. A fresh pass (Iterate again, or Reset) re-reads from the
// cache: after an eager fetch, repeated full passes cost no fetches.
//
// An Iterator is not safe for concurrent use; create one per goroutine.
type Iterator[T any] struct {
	list *List[T]
	next int
	done bool
}

// Iterate returns a new iteration pass over the list.
func (l *List[T]) Iterate() *Iterator[T] {
	return &Iterator[T]{list: l}
}

// Next returns the next item. ok is false once the end is reached; after
// that, further calls keep returning ok == false. A fetch failure is
// returned without advancing, so the same step can be retried.
func (it *Iterator[T]) Next(ctx context.Context) (item T, ok bool, err error) {
	var zero T
	if it.done {
		return zero, false, nil
	}
	if it.list == nil || it.list.cache == nil {
		return zero, false, ErrNotInitialized
	}

	cache := it.list.cache
	if total, known := cache.Total(); known && it.next >= total {
		it.done = true
		return zero, false, nil
	}

	item, resident, err := cache.Get(it.next)
	if err != nil {
		return zero, false, it.endOrError(err)
	}
	if !resident {
		pageSize := cache.PageSize()
		if pageSize <= 0 {
			it.done = true
			return zero, false, nil
		}
		if ferr := it.list.ensurePage(ctx, it.next/pageSize); ferr != nil {
			return zero, false, ferr
		}
		item, resident, err = cache.Get(it.next)
		if err != nil {
			return zero, false, it.endOrError(err)
		}
		if !resident {
			// The fetched page was empty: end of an unknown-length collection.
			it.done = true
			return zero, false, nil
		}
	}

	it.next++
	return item, true, nil
}

// Index returns the global index the next call to Next would yield.
func (it *Iterator[T]) Index() int {
	return it.next
}

// Reset rewinds the pass to index 0. Already-fetched pages stay cached.
func (it *Iterator[T]) Reset() {
	it.next = 0
	it.done = false
}

// endOrError maps an IndexError to normal termination: it means the
// collection turned out to be shorter than the cursor, observable only
// while the total is unknown.
func (it *Iterator[T]) endOrError(err error) error {
	var ie *IndexError
	if errors.As(err, &ie) {
		it.done = true
		return nil
	}
	return err
}
