package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrInvalidToken is returned when a presented token fails decoding, carries the wrong
	// type for the operation, or lacks its subject or token id. The codec cause is wrapped.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingClaims is returned when a validly signed token lacks its subject or token
	// id. It is always wrapped in ErrInvalidToken.
	ErrMissingClaims = errors.New("token missing required claims")
	// ErrWrongTokenType is returned when the "type" claim does not match the operation:
	// a refresh token presented to Authorize, or an access token presented to Refresh.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrTokenReuseOrExpired is returned by Refresh when the refresh entry is absent
	// (consumed, revoked or expired) or belongs to another subject. Callers should force
	// re-login.
	ErrTokenReuseOrExpired = errors.New("refresh token expired or already used")
	// ErrStoreUnavailable is returned when the refresh store backend fails. It is the only
	// error class a caller may retry; the Engine never retries on its own.
	ErrStoreUnavailable = session.ErrStoreUnavailable
	// ErrIdentityUnavailable is returned when the credential or principal lookup fails.
	ErrIdentityUnavailable = errors.New("identity backend unavailable")

	// ErrInvalidCredentials is returned by Authenticate for an unknown identifier, a wrong
	// password, or an inactive principal. The three cases are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited is returned when the login attempt budget is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrPrincipalNotFound is returned when a token subject no longer resolves to a principal.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrSubjectRequired is returned when Login is called without a subject.
	ErrSubjectRequired = errors.New("subject required")
	// ErrEngineNotReady is returned when an operation needs a dependency the Engine was
	// built without.
	ErrEngineNotReady = errors.New("engine not initialized")
)
