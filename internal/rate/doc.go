// Package rate throttles refresh attempts with Redis fixed-window counters.
//
// # Window semantics
//
// INCR + EXPIRE on the first hit of a window. Keys are <prefix>:rf:<fingerprint>,
// where the fingerprint is derived from the refresh token; raw tokens never reach
// Redis.
//
// # What this package must NOT do
//
//   - Decide what a throttled refresh means for the request (the gate does).
//   - Be imported outside the goSession module.
package rate
