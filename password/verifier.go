package password

import (
	"fmt"
	"strings"
)

// Verifier checks a plaintext against a stored hash of any supported scheme. It
// satisfies the Engine's PasswordVerifier interface.
//
// Argon2id hashes are verified with the Argon2 hasher, bcrypt hashes with the Bcrypt
// hasher; a nil hasher disables its scheme.
type Verifier struct {
	Argon2 *Argon2
	Bcrypt *Bcrypt
}

// NewVerifier returns a Verifier accepting both schemes with default parameters.
func NewVerifier() (*Verifier, error) {
	a, err := NewArgon2(DefaultConfig())
	if err != nil {
		return nil, err
	}
	b, err := NewBcrypt(0)
	if err != nil {
		return nil, err
	}
	return &Verifier{Argon2: a, Bcrypt: b}, nil
}

// Verify dispatches on the hash prefix. A hash of an unknown or disabled scheme is an
// error, never a silent mismatch.
func (v *Verifier) Verify(plaintext, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, argon2Prefix) && v.Argon2 != nil:
		return v.Argon2.Verify(plaintext, hash)
	case isBcrypt(hash) && v.Bcrypt != nil:
		return v.Bcrypt.Verify(plaintext, hash)
	default:
		return false, fmt.Errorf("%w: %.4q", ErrUnsupportedScheme, hash)
	}
}

// Hash returns a new Argon2id hash of plaintext. New hashes are never bcrypt.
func (v *Verifier) Hash(plaintext string) (string, error) {
	if v.Argon2 == nil {
		return "", fmt.Errorf("%w: argon2id disabled", ErrUnsupportedScheme)
	}
	return v.Argon2.Hash(plaintext)
}

// NeedsUpgrade reports whether hash should be replaced by a fresh Argon2id hash:
// always for bcrypt, and for Argon2id when its parameters are weaker than current.
func (v *Verifier) NeedsUpgrade(hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, argon2Prefix) && v.Argon2 != nil:
		return v.Argon2.NeedsUpgrade(hash)
	case isBcrypt(hash):
		return v.Argon2 != nil, nil
	default:
		return false, fmt.Errorf("%w: %.4q", ErrUnsupportedScheme, hash)
	}
}
