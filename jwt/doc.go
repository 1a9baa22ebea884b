// Package jwt decodes and issues the access tokens that carry a session.
//
// # Decoding
//
// [Decode] and [ExpiringSoon] read the embedded claims of an access token without
// verifying its signature. They exist to answer one question at the edge: is this
// token still worth sending upstream? Anything that cannot be decoded is reported as
// expired.
//
// # Issuing
//
// [Manager] signs and verifies access tokens (Ed25519 or HS256). The gateway never
// signs tokens itself; the manager backs the development refresh endpoint and tests.
//
// # What this package must NOT do
//
//   - Trust decoded claims for authorization decisions.
//   - Perform I/O.
package jwt
