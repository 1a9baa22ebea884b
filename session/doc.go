// Package session holds the authoritative token state of one signed-in user.
//
// # Token store
//
// [Store] keeps the current access/refresh pair and the denormalized user
// snapshot in memory. A successful [Store.Replace] supersedes the previous pair
// atomically; a pair that is older than the current one is rejected with
// [ErrStalePair] so superseded tokens are never reinstalled.
//
// # User cache
//
// [UserCache] keeps user snapshots in Redis, keyed by user ID, so the edge gateway
// can evaluate onboarding gates without calling the profile API on every page.
//
// # What this package must NOT do
//
//   - Talk to the refresh endpoint.
//   - Read or write cookies.
package session
