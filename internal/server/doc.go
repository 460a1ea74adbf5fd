// Package server provides the local OAuth2 redirect receiver used by the CLI.
//
// # Redirect Receiver
//
// [Receiver] binds a loopback address before the browser is sent to the authorization page, then serves
// HTTP until exactly one request carries an authorization code. It is a capability with one operation,
// [Receiver.AwaitCode], which returns the code, an error from the authorization server, or [shared.ErrTimeout].
//
// Requests that are not a GET, carry no code, or carry a state other than the one issued are answered
// with a 4xx status and ignored; browsers routinely prefetch pages and ask for /favicon.ico, so these are
// not failures. Every connection is closed after its response (keep-alives are disabled), headers are
// bounded in size and must arrive within a read timeout, and the server is shut down gracefully once the
// code has been delivered.
//
// # Router Infrastructure
//
// [BasicRouter] wraps [http.ServeMux] with a per-route method check and middleware support;
// middleware wraps handlers in reverse order (last added executes first).
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// so [BasicRouter.Mount] can register every route a handler owns in one call.
package server
