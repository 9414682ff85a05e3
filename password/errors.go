package password

import "errors"

var (
	// ErrInvalidHash is returned when a stored hash cannot be parsed.
	ErrInvalidHash = errors.New("invalid password hash")
	// ErrUnsupportedScheme is returned when a stored hash uses a scheme no configured
	// hasher understands.
	ErrUnsupportedScheme = errors.New("unsupported password hash scheme")
	// ErrPasswordLength is returned when a plaintext is shorter than the minimum or
	// longer than the configured maximum.
	ErrPasswordLength = errors.New("password length out of range")
)
