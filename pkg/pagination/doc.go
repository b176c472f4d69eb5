// Package pagination provides a lazily-populated, randomly-addressable view
// over paginated Companies House list endpoints.
//
// The central type is List, a logical sequence backed by an arbitrary number
// of remote pages. Pages are fetched on demand through an injected
// PageFetcher, decoded once per item through an injected RecordDecoder, and
// cached for the lifetime of the list. The list never re-fetches a page it
// already holds.
//
// # Basic Usage
//
//	fetch := func(ctx context.Context, offset int) (pagination.RawPage, error) {
//		// GET ...?start_index=offset*pageSize&items_per_page=pageSize
//	}
//	decode := func(raw json.RawMessage) (Company, error) {
//		var c Company
//		err := json.Unmarshal(raw, &c)
//		return c, err
//	}
//
//	list, err := pagination.NewList(ctx, fetch, decode, pagination.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	// Total count is known after the first page.
//	fmt.Println(list.Len())
//
//	// Random access fetches only the covering page.
//	item, err := list.Get(ctx, 42)
//
//	// Forward iteration fetches pages as it crosses them.
//	it := list.Iterate()
//	for {
//		item, ok, err := it.Next(ctx)
//		if err != nil || !ok {
//			break
//		}
//		use(item)
//	}
//
//	// Bulk consumption: fetch everything once, then read locally.
//	if err := list.FetchAllPages(ctx); err != nil {
//		return err
//	}
//	for _, item := range list.LocalItems() {
//		use(item)
//	}
//
// # Concurrency
//
// A List may be shared freely between goroutines. Reads of already-resident
// data never block on the network. Concurrent requests for the same
// non-resident page are coalesced into a single fetch whose result (or
// error) is delivered to every waiter; requests for different pages proceed
// independently.
//
// # Failure Modes
//
// Transport failures surface as FetchError and clear the in-flight marker,
// so a later access retries the page. The package itself performs no
// retry or backoff; that belongs to the transport behind the PageFetcher.
// A response that contradicts already-cached state (a different total, a
// different declared page size, a resized page) surfaces as
// ConsistencyError and the list should be discarded.
package pagination
