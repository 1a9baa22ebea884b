// Package devauth is a small in-process auth backend for development and tests.
//
// It issues signed access tokens through [jwt.Manager] and opaque rotating
// refresh tokens, and serves the refresh endpoint contract the gate and the
// agent consume:
//
//	POST /login    {"user_id": "..."}           -> pair in body and rotation headers
//	POST /refresh  {"refresh_token": "..."}     -> {"tokens": {...}, "user": {...}}
//	PATCH /users/{id}  partial user JSON        -> updated user
//
// Presenting a refresh token that was already rotated revokes the session.
//
// # What this package must NOT do
//
//   - Be used in production. State lives in process memory.
package devauth
