package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Config holds paginated list configuration.
type Config struct {
	// FetchTimeout bounds a single page fetch. The fetch runs detached from
	// the triggering caller (see ensurePage), so this is the only bound.
	FetchTimeout time.Duration

	// MaxConcurrency is the maximum number of parallel page fetches issued
	// by Slice and FetchAllPages.
	MaxConcurrency int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		FetchTimeout:   15 * time.Second,
		MaxConcurrency: 4,
	}
}

// List is a logical, randomly-addressable sequence backed by remote pages.
// Pages are fetched on demand through the injected PageFetcher and cached;
// a page is never fetched twice. Safe for concurrent use.
type List[T any] struct {
	fetch  PageFetcher
	decode RecordDecoder[T]
	cfg    Config
	cache  *PageCache[T]
	flight singleflight.Group
}

// NewList creates a list and fetches its first page before returning, so a
// returned list is always usable for length and index access. The first
// page establishes the page size and, when the server reports one, the
// total count.
func NewList[T any](ctx context.Context, fetch PageFetcher, decode RecordDecoder[T], cfg Config) (*List[T], error) {
	if fetch == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}
	if decode == nil {
		return nil, fmt.Errorf("record decoder is required")
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}

	l := &List[T]{
		fetch:  fetch,
		decode: decode,
		cfg:    cfg,
		cache:  NewPageCache[T](),
	}
	if err := l.ensurePage(ctx, 0); err != nil {
		return nil, err
	}
	return l, nil
}

// Len returns the total item count when the server has reported one,
// otherwise the number of items fetched so far (a lower bound). Use
// TotalKnown to distinguish. Len never triggers a fetch; the factory has
// already fetched the first page.
func (l *List[T]) Len() int {
	if l.cache == nil {
		return 0
	}
	if total, ok := l.cache.Total(); ok {
		return total
	}
	return l.cache.Resident()
}

// TotalKnown reports whether the server has reported a total item count.
func (l *List[T]) TotalKnown() bool {
	if l.cache == nil {
		return false
	}
	_, ok := l.cache.Total()
	return ok
}

// Get returns the item at global index i, fetching its covering page if it
// is not resident. Concurrent calls that need the same non-resident page
// share one fetch. Negative indices and indices at or beyond a known total
// fail with IndexError; indexing from the end is not supported.
func (l *List[T]) Get(ctx context.Context, i int) (T, error) {
	var zero T
	if l.cache == nil {
		return zero, ErrNotInitialized
	}

	item, ok, err := l.cache.Get(i)
	if err != nil {
		return zero, err
	}
	if ok {
		return item, nil
	}

	pageSize := l.cache.PageSize()
	if pageSize <= 0 {
		return zero, &IndexError{Index: i, Total: l.totalOrUnknown()}
	}
	if err := l.ensurePage(ctx, i/pageSize); err != nil {
		return zero, err
	}

	item, ok, err = l.cache.Get(i)
	if err != nil {
		return zero, err
	}
	if !ok {
		// The covering page is resident but ends before i.
		return zero, &IndexError{Index: i, Total: l.totalOrUnknown()}
	}
	return item, nil
}

// Slice returns the items in [start, stop), clamped to the total when it is
// known (and to the observed end of an unknown-length collection). Missing
// covering pages are fetched in parallel; the result is assembled in index
// order once all of them are resident.
func (l *List[T]) Slice(ctx context.Context, start, stop int) ([]T, error) {
	if l.cache == nil {
		return nil, ErrNotInitialized
	}
	if start < 0 {
		return nil, &IndexError{Index: start, Total: l.totalOrUnknown()}
	}
	if stop < start {
		return nil, fmt.Errorf("invalid slice bounds [%d:%d]", start, stop)
	}
	if total, ok := l.cache.Total(); ok {
		if start > total {
			start = total
		}
		if stop > total {
			stop = total
		}
	}
	if start >= stop {
		return []T{}, nil
	}

	pageSize := l.cache.PageSize()
	if pageSize <= 0 {
		return []T{}, nil
	}

	first := start / pageSize
	last := (stop - 1) / pageSize

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.MaxConcurrency)
	for offset := first; offset <= last; offset++ {
		if l.cache.HasPage(offset) {
			continue
		}
		g.Go(func() error {
			return l.ensurePage(gctx, offset)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]T, 0, stop-start)
	for i := start; i < stop; i++ {
		item, ok, err := l.cache.Get(i)
		if err != nil {
			var ie *IndexError
			if errors.As(err, &ie) {
				// Unknown-length collection ended inside the range.
				break
			}
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, item)
	}
	return out, nil
}

// FetchAllPages fetches every page not yet resident. With a known total the
// remaining pages are fetched in parallel; with an unknown total the
// contiguous frontier is extended page by page until a short or empty page
// pins the end. Safe to call concurrently with itself and with lazy access:
// all paths share the same per-page fetch coalescing.
func (l *List[T]) FetchAllPages(ctx context.Context) error {
	if l.cache == nil {
		return ErrNotInitialized
	}

	start := time.Now()
	for {
		if total, ok := l.cache.Total(); ok {
			if err := l.fetchThrough(ctx, total); err != nil {
				return err
			}
			log.Info().
				Int("total", total).
				Int("resident", l.cache.Resident()).
				Dur("duration", time.Since(start)).
				Msg("Eager fetch complete")
			return nil
		}

		if err := l.ensurePage(ctx, l.cache.ContiguousPages()); err != nil {
			return err
		}
	}
}

// fetchThrough fetches all missing pages below the given total in parallel.
func (l *List[T]) fetchThrough(ctx context.Context, total int) error {
	pageSize := l.cache.PageSize()
	if total == 0 || pageSize <= 0 {
		return nil
	}
	last := (total - 1) / pageSize

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.MaxConcurrency)
	for offset := 0; offset <= last; offset++ {
		if l.cache.HasPage(offset) {
			continue
		}
		g.Go(func() error {
			return l.ensurePage(gctx, offset)
		})
	}
	return g.Wait()
}

// All fetches every remaining page and returns the complete item sequence.
func (l *List[T]) All(ctx context.Context) ([]T, error) {
	if err := l.FetchAllPages(ctx); err != nil {
		return nil, err
	}
	return l.LocalItems(), nil
}

// LocalItems returns the items currently resident, in index order, with
// gaps excluded. It never triggers a fetch; call FetchAllPages first for
// bulk consumption of the complete collection.
func (l *List[T]) LocalItems() []T {
	if l.cache == nil {
		return nil
	}
	return l.cache.LocalItems()
}

// LocalLen returns the number of items currently resident without fetching.
func (l *List[T]) LocalLen() int {
	if l.cache == nil {
		return 0
	}
	return l.cache.Resident()
}

// LocalPages returns the resident pages in offset order without fetching.
func (l *List[T]) LocalPages() [][]T {
	if l.cache == nil {
		return nil
	}
	return l.cache.LocalPages()
}

// IsFullyFetched reports whether every item of the collection is resident.
func (l *List[T]) IsFullyFetched() bool {
	if l.cache == nil {
		return false
	}
	total, ok := l.cache.Total()
	return ok && l.cache.Resident() >= total
}

func (l *List[T]) totalOrUnknown() int {
	if total, ok := l.cache.Total(); ok {
		return total
	}
	return TotalUnknown
}
