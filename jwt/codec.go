package jwt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm names accepted by [Config].
const (
	AlgHS256 = "HS256"
	AlgHS384 = "HS384"
	AlgHS512 = "HS512"
)

// Config holds the signing and verification settings of a [Codec].
//
// Config instances are intended to be configured during initialization and then treated
// as immutable.
type Config struct {
	Algorithm string // HS256 (default), HS384 or HS512
	Secret    []byte
	Issuer    string
	Audience  string
	Leeway    time.Duration
}

// Codec signs claim sets into compact tokens and verifies them back.
type Codec struct {
	config Config
	method jwt.SigningMethod
	parser *jwt.Parser
	now    func() time.Time
}

// NewCodec validates cfg and returns a ready Codec.
func NewCodec(cfg Config) (*Codec, error) {
	cfg.Algorithm = strings.ToUpper(strings.TrimSpace(cfg.Algorithm))
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgHS256
	}
	method, err := signingMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("signing secret is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("audience is required")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.Secret = append([]byte(nil), cfg.Secret...)

	c := &Codec{
		config: cfg,
		method: method,
		now:    time.Now,
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(cfg.Audience),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
		jwt.WithJSONNumber(),
	)
	return c, nil
}

// Issuer returns the configured issuer.
func (c *Codec) Issuer() string { return c.config.Issuer }

// Audience returns the configured audience.
func (c *Codec) Audience() string { return c.config.Audience }

// Algorithm returns the JWS algorithm identifier in use.
func (c *Codec) Algorithm() string { return c.method.Alg() }

// Encode signs claims into a header.payload.signature token.
func (c *Codec) Encode(claims Claims) (string, error) {
	if err := ValidateExtra(claims.Extra); err != nil {
		return "", err
	}

	payload := make(jwt.MapClaims, len(claims.Extra)+len(reservedClaims))
	for k, v := range claims.Extra {
		payload[k] = v
	}
	putString(payload, ClaimSubject, claims.Subject)
	putString(payload, ClaimTokenID, claims.TokenID)
	putString(payload, ClaimType, string(claims.Type))
	putString(payload, ClaimIssuer, claims.Issuer)
	putString(payload, ClaimAudience, claims.Audience)
	putTime(payload, ClaimIssuedAt, claims.IssuedAt)
	putTime(payload, ClaimNotBefore, claims.NotBefore)
	putTime(payload, ClaimExpiresAt, claims.ExpiresAt)

	token := jwt.NewWithClaims(c.method, payload)
	return token.SignedString(c.config.Secret)
}

// Decode verifies tokenStr and returns its claims.
//
// Checks run in a fixed order and the first failure is reported: structure, signature,
// expiry, not-before, audience, issuer.
func (c *Codec) Decode(tokenStr string) (Claims, error) {
	payload := jwt.MapClaims{}
	_, err := c.parser.ParseWithClaims(tokenStr, payload, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.config.Secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}

	return claimsFromMap(payload)
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudienceMismatch
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuerMismatch
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func claimsFromMap(payload jwt.MapClaims) (Claims, error) {
	var (
		out Claims
		err error
	)

	if out.Subject, err = stringClaim(payload, ClaimSubject); err != nil {
		return Claims{}, err
	}
	if out.TokenID, err = stringClaim(payload, ClaimTokenID); err != nil {
		return Claims{}, err
	}
	typ, err := stringClaim(payload, ClaimType)
	if err != nil {
		return Claims{}, err
	}
	out.Type = TokenType(typ)
	if out.Issuer, err = stringClaim(payload, ClaimIssuer); err != nil {
		return Claims{}, err
	}

	aud, err := payload.GetAudience()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: aud: %v", ErrMalformed, err)
	}
	if len(aud) > 0 {
		out.Audience = aud[0]
	}

	if out.IssuedAt, err = timeClaim(payload.GetIssuedAt()); err != nil {
		return Claims{}, err
	}
	if out.NotBefore, err = timeClaim(payload.GetNotBefore()); err != nil {
		return Claims{}, err
	}
	if out.ExpiresAt, err = timeClaim(payload.GetExpirationTime()); err != nil {
		return Claims{}, err
	}

	for k, v := range payload {
		if IsReservedClaim(k) {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any, len(payload)-len(reservedClaims))
		}
		out.Extra[k] = extraValue(v)
	}

	return out, nil
}

func stringClaim(payload jwt.MapClaims, name string) (string, error) {
	raw, ok := payload[name]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrMalformed, name)
	}
	return s, nil
}

func timeClaim(d *jwt.NumericDate, err error) (time.Time, error) {
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d == nil {
		return time.Time{}, nil
	}
	return d.Time.UTC(), nil
}

// extraValue turns a decoded JSON number back into int64 when it is integral.
func extraValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func putString(payload jwt.MapClaims, name, value string) {
	if value != "" {
		payload[name] = value
	}
}

func putTime(payload jwt.MapClaims, name string, value time.Time) {
	if !value.IsZero() {
		payload[name] = value.Unix()
	}
}

func signingMethod(alg string) (jwt.SigningMethod, error) {
	switch alg {
	case AlgHS256:
		return jwt.SigningMethodHS256, nil
	case AlgHS384:
		return jwt.SigningMethodHS384, nil
	case AlgHS512:
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
}
