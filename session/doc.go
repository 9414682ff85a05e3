// Package session provides the Redis-backed refresh-token registry used for
// rotation and revocation.
//
// # Key layout
//
// One string key per live refresh token: "<prefix>:<token id>" holding the owning
// subject id, with a TTL equal to the token's lifetime. Entries are created on login
// and on every rotation, removed exactly once by [Store.Consume] or [Store.Delete],
// and never updated in place.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations). It does NOT decode tokens or
// decide whether a caller may refresh; those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import goSession, jwt, or middleware (no upward imports).
//   - Retry failed Redis calls; failures surface as [ErrStoreUnavailable].
//   - Store token material; only token ids and subject ids are written.
package session
