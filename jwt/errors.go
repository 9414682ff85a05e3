package jwt

import "errors"

var (
	// ErrMalformed is returned when a token is not three valid base64url JSON segments,
	// or a required claim is missing or has the wrong JSON type.
	ErrMalformed = errors.New("token malformed")
	// ErrInvalidSignature is returned when the signature or algorithm does not match.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrExpired is returned when exp is in the past.
	ErrExpired = errors.New("token expired")
	// ErrNotYetValid is returned when nbf is in the future.
	ErrNotYetValid = errors.New("token not yet valid")
	// ErrAudienceMismatch is returned when aud does not contain the configured audience.
	ErrAudienceMismatch = errors.New("token audience mismatch")
	// ErrIssuerMismatch is returned when iss differs from the configured issuer.
	ErrIssuerMismatch = errors.New("token issuer mismatch")

	// ErrReservedClaim is returned when an extra claim tries to override a reserved name.
	ErrReservedClaim = errors.New("extra claim uses reserved name")
	// ErrExtraClaims is returned for empty extra claim keys or too many extra claims.
	ErrExtraClaims = errors.New("invalid extra claims")
	// ErrUnknownTokenType is returned when issuing a token of an unsupported type.
	ErrUnknownTokenType = errors.New("unknown token type")
)
