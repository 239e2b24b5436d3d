// Package pagination walks a cursor-paginated collection query to the end.
//
// The collection API returns at most one page per query together with a
// has_more flag and an opaque next_cursor. Each page's cursor comes from the
// previous response, so pages are fetched strictly one after another.
//
// Example usage:
//
//	c, _ := client.New(client.DefaultConfig(token))
//	pager := pagination.NewPager(c, pagination.DefaultConfig())
//	entries, err := pager.FetchAll(ctx, collectionID)
//
// The pager:
//   - Sends {} for the first page and {"start_cursor": "..."} afterwards
//   - Appends entries in server order, page N before page N+1
//   - Stops as soon as a page reports has_more=false
//   - Returns no entries at all if any page fails
package pagination
