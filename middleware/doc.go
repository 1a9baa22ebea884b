// Package middleware adapts the session gate and the onboarding flow to net/http.
//
// # Middleware
//
//   - [Guard]: runs goSession.Gate.Evaluate on every request, writes refreshed
//     session cookies, and redirects to login with 307 when the session is gone.
//   - [Onboarding]: applies a kyc.Flow using the user cached by the gate.
//   - [RequestID]: assigns the correlation ID used by audit events and logs.
//
// # What this package must NOT do
//
//   - Decide session validity itself (the gate does).
//   - Write session cookies on a redirect response.
package middleware
