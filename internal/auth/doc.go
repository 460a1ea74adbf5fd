// Package auth implements the Spotify OAuth2 authorization-code flow and the token lifecycle.
//
// [OAuth] wraps an [oauth2.Config] whose token endpoint is called with HTTP Basic client authentication.
// [Handshake] drives one authorization: it binds the redirect receiver, opens the browser, waits for the
// code and exchanges it. [Session] decides, once per run, whether a stored token can be reused, must be
// refreshed, or needs a new handshake, and whether the result is written back to the credential file.
//
// Tokens are never refreshed after startup: a fetch that outlives the access token fails with a 401.
package auth
