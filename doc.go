// Package goSession manages the lifecycle of bearer sessions: short-lived signed
// access tokens paired with rotating, single-use refresh tokens tracked in Redis.
//
// An [Engine] is assembled with [Builder] and is safe for concurrent use. It offers four
// session operations:
//
//   - [Engine.Login] issues a pair for an already authenticated subject and records the
//     refresh token in the store;
//   - [Engine.Refresh] atomically consumes a refresh token and issues a new pair;
//   - [Engine.Logout] revokes a refresh token and never fails from the caller's view;
//   - [Engine.Authorize] verifies an access token without any I/O.
//
// [Engine.Authenticate] wraps Login with a credential check and a Redis-backed login
// throttle when a [CredentialLookup] and [PasswordVerifier] are configured.
//
// # Token model
//
// Access tokens are valid until they expire and cannot be revoked. Refresh tokens are
// valid only while their id is present in the store: each is consumed exactly once, so
// a replayed or revoked refresh token is rejected with [ErrTokenReuseOrExpired].
//
// # Errors
//
// Every failure wraps one of the sentinel errors in errors.go and can be matched with
// errors.Is. [IsRetryable] separates backend outages from token failures.
package goSession
