// Package services is the read-only client for the Spotify Web API.
//
// # Client
//
// [Client] issues bearer-authenticated GET requests against a base URL (https://api.spotify.com/v1 by
// default). [Client.Resolve] accepts either a path relative to the base or an absolute URL, which is how
// the `next` links and `tracks.href` values returned by the API are followed unchanged.
//
// The access token is fixed for the lifetime of a client. A token that expires mid-run surfaces as a 401
// [shared.HTTPError]; nothing is refreshed here.
//
// # Pagination
//
// [Client.Iterate] returns a [Pages] iterator. Paging objects carry items, total and next; the first page
// is the initial request and each following page is the previous page's next link. Iteration is lazy,
// sequential and cannot be restarted:
//
//	pages := client.Iterate(ctx, "/me/playlists", url.Values{"limit": {"50"}})
//	for pages.Next() {
//		items = append(items, pages.Page().Items...)
//	}
//	if err := pages.Err(); err != nil { ... }
//
// # Errors
//
// Non-2xx responses are returned as [*shared.HTTPError] carrying the status code and body, so callers can
// test for [shared.ErrHTTPStatus] or [shared.ErrNotFound] with errors.Is. Undecodable bodies wrap
// [shared.ErrMalformedResponse].
//
// # Pacing
//
// Requests can be paced with a token bucket from golang.org/x/time/rate. The default is unlimited.
package services
