// Package agent keeps the three client-side copies of a session in step: the
// in-memory store, durable storage and the cookie jar.
//
// # Sync points
//
//   - [Agent.SyncOnLoad]: reconcile all copies when a client starts.
//   - [Agent.Run]: follow storage events written by other agents sharing the
//     same storage (other tabs, other processes).
//   - [Agent.Transport]: attach the bearer token to outgoing requests and capture
//     rotated tokens from response headers.
//
// When copies disagree the pair whose access token expires last wins; an
// undecodable token always loses. A pair is never replaced by an older one.
//
// A failed write to storage or to the jar does not end the session. The agent
// keeps going with whichever copies succeeded and reports [Agent.Degraded].
package agent
