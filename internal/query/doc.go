// Package query is a client-side cache for server state.
//
// Entries are keyed by (kind, params...) and carry the last fetched value,
// the fetch status and the time the value was stored. Reads return the cached
// value while it is fresh and fetch otherwise; concurrent reads of one key
// share a single fetch.
//
// Every entry has a generation. Starting a fetch, canceling it, writing a
// value with SetEntry or removing the entry bumps the generation, and a fetch
// result is applied only if its generation is still current. A late response
// from a canceled or superseded fetch therefore never overwrites newer state.
//
//	c := query.NewClient(query.Config{})
//	page, err := query.Get(ctx, c, query.NewKey("students", 1), fetchPage, query.Options{
//	    Timeout: 3 * time.Second,
//	})
//	c.Invalidate(query.NewKey("students", 1)) // next read refetches
package query
