package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FactoryConfig sets the lifetimes of issued tokens.
type FactoryConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Factory mints signed tokens with fresh identifiers and type-dependent lifetimes.
//
// Factory holds no mutable state and is safe for concurrent use.
type Factory struct {
	codec      *Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewFactory returns a Factory that signs through codec.
func NewFactory(codec *Codec, cfg FactoryConfig) (*Factory, error) {
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must be >= access TTL")
	}
	return &Factory{
		codec:      codec,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// Codec returns the codec used for signing.
func (f *Factory) Codec() *Codec { return f.codec }

// TTL returns the lifetime assigned to tokens of type typ, or zero for unknown types.
func (f *Factory) TTL(typ TokenType) time.Duration {
	switch typ {
	case TokenAccess:
		return f.accessTTL
	case TokenRefresh:
		return f.refreshTTL
	default:
		return 0
	}
}

// Issue mints a token for subject at the current time.
// It returns the signed token and its identifier.
func (f *Factory) Issue(subject string, typ TokenType, extra map[string]any) (string, string, error) {
	return f.IssueAt(f.now(), subject, typ, extra)
}

// IssueAt mints a token as if issued at now.
func (f *Factory) IssueAt(now time.Time, subject string, typ TokenType, extra map[string]any) (string, string, error) {
	if subject == "" {
		return "", "", errors.New("subject is required")
	}
	ttl := f.TTL(typ)
	if ttl == 0 {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownTokenType, typ)
	}
	if err := ValidateExtra(extra); err != nil {
		return "", "", err
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return "", "", fmt.Errorf("generate token id: %w", err)
	}
	issued := now.UTC().Truncate(time.Second)

	claims := Claims{
		Subject:   subject,
		TokenID:   id.String(),
		Type:      typ,
		IssuedAt:  issued,
		NotBefore: issued,
		ExpiresAt: issued.Add(ttl),
		Issuer:    f.codec.Issuer(),
		Audience:  f.codec.Audience(),
		Extra:     cloneExtra(extra),
	}
	token, err := f.codec.Encode(claims)
	if err != nil {
		return "", "", err
	}
	return token, claims.TokenID, nil
}
