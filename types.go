package goSession

import (
	"context"
	"time"
)

// TokenTypeBearer is the token_type reported in every [TokenPair].
const TokenTypeBearer = "bearer"

// ClaimRole is the extra claim carrying the principal's role on access tokens.
const ClaimRole = "role"

// Well-known role names.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// TokenPair is the result of a login or a successful rotation.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// AuthResult is what Authorize learns from a valid access token.
type AuthResult struct {
	Subject   string
	Role      string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Principal is the identity a token subject resolves to.
type Principal struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"is_active"`
}

// IsAdmin reports whether p carries the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Credentials pairs a principal with its stored password hash.
type Credentials struct {
	Principal
	PasswordHash string
}

// PrincipalLookup resolves a subject id to a principal.
// It returns (nil, nil) when the subject does not exist.
type PrincipalLookup interface {
	GetByID(ctx context.Context, subjectID string) (*Principal, error)
}

// CredentialLookup resolves a login identifier (an email address) to credentials.
// It returns (nil, nil) when the identifier does not exist.
type CredentialLookup interface {
	GetByIdentifier(ctx context.Context, identifier string) (*Credentials, error)
}

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
	Verify(plaintext, hash string) (bool, error)
}

// PasswordRehasher is implemented by verifiers that can tell when a stored hash uses
// an outdated scheme or parameters, and produce its replacement.
type PasswordRehasher interface {
	NeedsUpgrade(hash string) (bool, error)
	Hash(plaintext string) (string, error)
}

// PasswordHashUpdater is implemented by credential lookups that can replace a
// principal's stored hash.
type PasswordHashUpdater interface {
	UpdatePasswordHash(ctx context.Context, subjectID, hash string) error
}

// LogoutOutcome reports what Logout did. Callers are free to ignore it.
type LogoutOutcome int

const (
	// LogoutRevoked means the refresh entry was deleted (or was already gone).
	LogoutRevoked LogoutOutcome = iota
	// LogoutNothingToRevoke means no usable refresh token was presented.
	LogoutNothingToRevoke
	// LogoutStoreError means the delete failed; the entry will still expire on its own.
	LogoutStoreError
)

func (o LogoutOutcome) String() string {
	switch o {
	case LogoutRevoked:
		return "revoked"
	case LogoutNothingToRevoke:
		return "nothing_to_revoke"
	case LogoutStoreError:
		return "store_error"
	default:
		return "unknown"
	}
}

// LoginOption customizes a single Login call.
type LoginOption func(*loginOptions)

type loginOptions struct {
	role           string
	passwordUpdate string
}

// WithRole embeds role in the issued access token.
func WithRole(role string) LoginOption {
	return func(o *loginOptions) {
		o.role = role
	}
}
