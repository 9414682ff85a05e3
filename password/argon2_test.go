package password

import (
	"errors"
	"strings"
	"testing"
)

func testArgon2Config() Config {
	return Config{
		Memory:      minMemoryKB,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestArgon2(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	hasher, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	return hasher
}

func TestArgon2HashAndVerify(t *testing.T) {
	hasher := newTestArgon2(t, testArgon2Config())

	hash, err := hasher.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify("P@ssw0rd-Ascii", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification to succeed: ok=%v err=%v", ok, err)
	}

	ok, err = hasher.Verify("P@ssw0rd-ascii", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch: ok=%v err=%v", ok, err)
	}
}

func TestArgon2VerifiesPaddedEncoding(t *testing.T) {
	// produced by a PHC library that pads base64
	hasher := newTestArgon2(t, testArgon2Config())
	hash, err := hasher.Hash("padded-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	parts := strings.Split(hash, "$")
	for _, i := range []int{4, 5} {
		for len(parts[i])%4 != 0 {
			parts[i] += "="
		}
	}
	padded := strings.Join(parts, "$")

	ok, err := hasher.Verify("padded-password", padded)
	if err != nil || !ok {
		t.Fatalf("expected padded hash to verify: ok=%v err=%v", ok, err)
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	weak := newTestArgon2(t, testArgon2Config())
	hash, err := weak.Hash("test-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	stronger := testArgon2Config()
	stronger.Time = 2
	needs, err := newTestArgon2(t, stronger).NeedsUpgrade(hash)
	if err != nil || !needs {
		t.Fatalf("expected upgrade for weaker hash: needs=%v err=%v", needs, err)
	}

	needs, err = weak.NeedsUpgrade(hash)
	if err != nil || needs {
		t.Fatalf("expected no upgrade for current parameters: needs=%v err=%v", needs, err)
	}
}

func TestArgon2RejectsMalformedHashes(t *testing.T) {
	hasher := newTestArgon2(t, testArgon2Config())
	good, err := hasher.Hash("malformed-test")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	cases := map[string]struct {
		hash string
		want error
	}{
		"not phc":        {hash: "not-a-phc-hash", want: ErrInvalidHash},
		"wrong version":  {hash: strings.Replace(good, "$v=19$", "$v=18$", 1), want: ErrUnsupportedScheme},
		"argon2i":        {hash: strings.Replace(good, "$argon2id$", "$argon2i$", 1), want: ErrUnsupportedScheme},
		"weak memory":    {hash: strings.Replace(good, "m=8192", "m=1024", 1), want: ErrInvalidHash},
		"extra param":    {hash: strings.Replace(good, "p=1", "p=1,x=2", 1), want: ErrInvalidHash},
		"missing params": {hash: strings.Replace(good, "m=8192,t=1,p=1", "m=8192,t=1,t=1", 1), want: ErrInvalidHash},
	}
	for name, tc := range cases {
		if _, err := hasher.Verify("malformed-test", tc.hash); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, err)
		}
	}
}

func TestArgon2PasswordLengthBounds(t *testing.T) {
	cfg := testArgon2Config()
	cfg.MaxPasswordBytes = 64
	hasher := newTestArgon2(t, cfg)

	if _, err := hasher.Hash("short"); !errors.Is(err, ErrPasswordLength) {
		t.Fatalf("expected short password rejected, got %v", err)
	}
	if _, err := hasher.Hash(strings.Repeat("a", 65)); !errors.Is(err, ErrPasswordLength) {
		t.Fatalf("expected long password rejected, got %v", err)
	}

	exact := strings.Repeat("b", 64)
	hash, err := hasher.Hash(exact)
	if err != nil {
		t.Fatalf("expected exactly-max password accepted: %v", err)
	}
	if ok, err := hasher.Verify(exact, hash); err != nil || !ok {
		t.Fatalf("Verify failed for max-length password: ok=%v err=%v", ok, err)
	}
	if _, err := hasher.Verify(strings.Repeat("c", 65), hash); !errors.Is(err, ErrPasswordLength) {
		t.Fatalf("expected Verify to reject long password, got %v", err)
	}
}

func TestArgon2DefaultMaxPasswordBytes(t *testing.T) {
	hasher := newTestArgon2(t, testArgon2Config())

	if _, err := hasher.Hash(strings.Repeat("d", DefaultMaxPasswordBytes+1)); err == nil {
		t.Fatalf("expected password > %d bytes to be rejected", DefaultMaxPasswordBytes)
	}
	if _, err := hasher.Hash(strings.Repeat("e", DefaultMaxPasswordBytes)); err != nil {
		t.Fatalf("expected password of exactly %d bytes to be accepted: %v", DefaultMaxPasswordBytes, err)
	}
}

func TestArgon2ConfigValidation(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = 1024 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
		"max bytes":   func(c *Config) { c.MaxPasswordBytes = 4 },
	} {
		cfg := testArgon2Config()
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("%s: expected config error", name)
		}
	}
	if _, err := NewArgon2(DefaultConfig()); err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}
}
