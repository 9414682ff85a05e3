// Package jwt encodes, signs and verifies the compact JWS tokens used for access and
// refresh credentials, and builds their claim sets.
//
// # Components
//
//   - [Codec] turns a [Claims] value into a signed token string and back, reporting the
//     first failed check as a distinct sentinel error ([ErrMalformed], [ErrInvalidSignature],
//     [ErrExpired], [ErrNotYetValid], [ErrAudienceMismatch], [ErrIssuerMismatch]).
//   - [Factory] builds access and refresh claim sets with fresh token ids and type-dependent
//     expiry, then delegates to the Codec.
//
// # Architecture boundaries
//
// This package is pure: no Redis, no clocks other than the one handed to it, no global
// state. Rotation, revocation and token-type policy belong to the Engine.
//
// # What this package must NOT do
//
//   - Import goSession, session, or middleware (no upward imports).
//   - Track token ids; a decoded refresh token proves nothing about store state.
package jwt
