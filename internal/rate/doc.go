// Package rate provides the Redis-backed failed-login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key layout under the
// configured prefix (default "al"):
//   - <prefix>:u:<identifier>: failed logins per identifier (lower-cased)
//   - <prefix>:ip:<ip>: failed logins per client IP
//
// A counter at MaxAttempts blocks further attempts until its window expires.
//
// # What this package must NOT do
//
//   - Decide what counts as a failure; the Engine calls IncrementLogin.
//   - Be imported outside the goSession module.
package rate
