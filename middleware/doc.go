// Package middleware adapts goSession.Engine to net/http handlers.
//
//   - [Guard] verifies the bearer access token without I/O.
//   - [RequirePrincipal] additionally resolves the subject to a live principal.
//   - [RequireAdmin], [RequireRole] and [RequireSelfOrAdmin] gate on that principal.
//
// Failures are written as {"detail": "..."} JSON with 401, 403 or 503. The package
// makes no token decisions of its own; everything is delegated to the Engine.
package middleware
