package pagination

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// ensurePage makes the page at the given offset resident. A request either
// finds the page resident and returns immediately, attaches to an already
// in-flight fetch for the offset, or starts a new fetch. Waiters observe
// the same result or error; the in-flight slot is cleared on completion
// either way, so a failed page can be retried by a later access.
func (l *List[T]) ensurePage(ctx context.Context, offset int) error {
	if l.cache == nil {
		return ErrNotInitialized
	}
	if l.cache.HasPage(offset) {
		return nil
	}

	ch := l.flight.DoChan(strconv.Itoa(offset), func() (any, error) {
		// Detached from the triggering caller: a waiter that gives up must
		// not cancel the fetch under its co-waiters. FetchTimeout keeps a
		// hung transport from wedging the in-flight slot.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.FetchTimeout)
		defer cancel()
		return nil, l.fetchPage(fctx, offset)
	})

	select {
	case res := <-ch:
		if res.Shared {
			coalescedWaitsTotal.Inc()
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetchPage performs one page fetch, decodes its records, and inserts the
// result into the cache. The page is all-or-nothing: a decode failure
// leaves nothing behind.
func (l *List[T]) fetchPage(ctx context.Context, offset int) error {
	start := time.Now()
	raw, err := l.fetch(ctx, offset)
	if err != nil {
		pageFetchErrorsTotal.Inc()
		log.Warn().
			Int("offset", offset).
			Err(err).
			Msg("Page fetch failed")
		return &FetchError{Offset: offset, Err: err}
	}
	pagesFetchedTotal.Inc()
	pageFetchDuration.Observe(time.Since(start).Seconds())

	items := make([]T, 0, len(raw.Items))
	for i, rec := range raw.Items {
		item, derr := l.decode(rec)
		if derr != nil {
			return &DecodeError{Offset: offset, Index: i, Err: derr}
		}
		items = append(items, item)
	}

	if raw.Total != TotalUnknown {
		if err := l.cache.SetTotal(raw.Total); err != nil {
			return err
		}
	}
	if err := l.cache.Insert(offset, raw.PageSize, items); err != nil {
		return err
	}

	// A short or empty page at the contiguous frontier pins the end of an
	// unknown-length collection.
	if _, known := l.cache.Total(); !known &&
		(len(items) == 0 || len(items) < raw.PageSize) &&
		l.cache.ContiguousPages() >= offset+1 {
		if err := l.cache.SetTotal(l.cache.ContiguousItems()); err != nil {
			return err
		}
	}

	log.Debug().
		Int("offset", offset).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Page fetched")
	return nil
}
