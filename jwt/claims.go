package jwt

import (
	"fmt"
	"time"
)

// TokenType distinguishes access tokens from refresh tokens. It is carried in the
// "type" claim.
type TokenType string

const (
	// TokenAccess marks a short-lived credential for protected calls.
	TokenAccess TokenType = "access"
	// TokenRefresh marks a credential that may only be exchanged for a new pair.
	TokenRefresh TokenType = "refresh"
)

// Valid reports whether t is one of the known token types.
func (t TokenType) Valid() bool {
	return t == TokenAccess || t == TokenRefresh
}

// MaxExtraClaims bounds the size of [Claims.Extra].
const MaxExtraClaims = 16

// Wire names of the reserved claims.
const (
	ClaimSubject   = "sub"
	ClaimTokenID   = "jti"
	ClaimType      = "type"
	ClaimIssuedAt  = "iat"
	ClaimNotBefore = "nbf"
	ClaimExpiresAt = "exp"
	ClaimIssuer    = "iss"
	ClaimAudience  = "aud"
)

var reservedClaims = map[string]struct{}{
	ClaimSubject:   {},
	ClaimTokenID:   {},
	ClaimType:      {},
	ClaimIssuedAt:  {},
	ClaimNotBefore: {},
	ClaimExpiresAt: {},
	ClaimIssuer:    {},
	ClaimAudience:  {},
}

// IsReservedClaim reports whether name is one of the claim names owned by [Claims].
func IsReservedClaim(name string) bool {
	_, ok := reservedClaims[name]
	return ok
}

// Claims is the signed payload of a token.
//
// The reserved fields are closed; anything else travels in Extra, which is flattened
// into the same JSON document on the wire. Timestamps have second precision and decode
// in UTC.
type Claims struct {
	Subject   string
	TokenID   string
	Type      TokenType
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
	Issuer    string
	Audience  string
	Extra     map[string]any
}

// ValidateExtra checks an extension map against the reserved names and size bound.
// Values must be string, bool or int64 so that they decode back to the same type.
func ValidateExtra(extra map[string]any) error {
	if len(extra) > MaxExtraClaims {
		return fmt.Errorf("%w: %d entries exceeds limit of %d", ErrExtraClaims, len(extra), MaxExtraClaims)
	}
	for key := range extra {
		if key == "" {
			return fmt.Errorf("%w: empty claim name", ErrExtraClaims)
		}
		if IsReservedClaim(key) {
			return fmt.Errorf("%w: %q", ErrReservedClaim, key)
		}
	}
	for key, value := range extra {
		switch value.(type) {
		case string, bool, int64:
		default:
			return fmt.Errorf("%w: %q has unsupported type %T", ErrExtraClaims, key, value)
		}
	}
	return nil
}

// ExtraString returns the string value of an extra claim, if present.
func (c Claims) ExtraString(name string) (string, bool) {
	if c.Extra == nil {
		return "", false
	}
	v, ok := c.Extra[name].(string)
	return v, ok
}

func cloneExtra(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	return out
}
