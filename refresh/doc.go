// Package refresh exchanges a refresh token for a new token pair.
//
// # Client
//
// [Client] calls the backend refresh endpoint: a JSON POST carrying the refresh
// token, authenticated with an API key header. Any non-2xx status, transport
// error, timeout or undecodable body is a failure. The client never retries.
//
// # Coalescing
//
// [Coalescer] wraps any [Refresher]. Concurrent refreshes of the same token share
// one upstream call, and a successful result is remembered for a short grace
// window so a late request still holding the superseded token receives the same
// new pair instead of rotating again. Failures are never remembered.
//
// # What this package must NOT do
//
//   - Write cookies or durable storage.
//   - Log token values. Only [Fingerprint] output may appear in logs.
package refresh
