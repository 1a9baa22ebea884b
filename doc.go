// Package goSession keeps a web client's access/refresh token pair consistent
// across the edge and the client.
//
// The root package holds the server-side session guard: [Gate] inspects the
// session cookies of each request, serves requests whose access token is still
// good, refreshes tokens that are about to expire, and sends everyone else to
// login. [Builder] assembles a Gate from a [Config], a refresh.Refresher and,
// optionally, a Redis client.
//
// Companion packages:
//
//   - jwt: unverified claim decoding and expiry checks.
//   - refresh: the refresh endpoint client and request coalescing.
//   - session: the in-memory token store and the Redis user cache.
//   - cookie: cookie policy and the client-side cookie jar.
//   - storage: durable token storage with change notifications.
//   - agent: the client sync agent.
//   - kyc: onboarding and auth route gates.
//   - middleware: net/http adapters for the gate and the onboarding flow.
//
// # What this package must NOT do
//
//   - Verify token signatures. The backend does that; the gate only reads expiry.
//   - Render error pages. Every session failure ends in a redirect.
//   - Log or audit raw token values.
package goSession
