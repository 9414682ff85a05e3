package goSession

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestAuthenticateIssuesPairWithRole(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), withDirectory(testDirectory()))
	ctx := context.Background()

	pair, err := engine.Authenticate(ctx, "root@example.com", "admin-password-123")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	res, err := engine.Authorize(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if res.Subject != "2" || res.Role != RoleAdmin {
		t.Fatalf("unexpected auth result %+v", res)
	}

	p, err := engine.Principal(ctx, res.Subject)
	if err != nil {
		t.Fatalf("principal lookup failed: %v", err)
	}
	if !p.IsAdmin() {
		t.Fatalf("expected admin principal, got %+v", p)
	}
}

func TestAuthenticateRejectsBadCredentialsUniformly(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), withDirectory(testDirectory()))
	ctx := context.Background()

	cases := []struct {
		name       string
		identifier string
		password   string
	}{
		{name: "wrong password", identifier: "alice@example.com", password: "wrong-password"},
		{name: "unknown user", identifier: "nobody@example.com", password: "whatever-123"},
		{name: "inactive user", identifier: "gone@example.com", password: "inactive-password-123"},
		{name: "empty password", identifier: "alice@example.com", password: ""},
	}
	for _, tc := range cases {
		if _, err := engine.Authenticate(ctx, tc.identifier, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", tc.name, err)
		}
	}

	if got := engine.MetricsSnapshot().Counters[MetricLoginFailure]; got != uint64(len(cases)) {
		t.Fatalf("expected %d login failures, got %d", len(cases), got)
	}
}

func TestAuthenticateRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 3
	engine, mr := newTestEngine(t, cfg, withDirectory(testDirectory()))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := engine.Authenticate(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// even the right password is refused once the budget is spent
	if _, err := engine.Authenticate(ctx, "alice@example.com", "correct-password-123"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	if _, err := engine.Authenticate(ctx, "ALICE@example.com", "correct-password-123"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("identifier casing must not bypass the throttle, got %v", err)
	}

	// other identifiers are unaffected
	if _, err := engine.Authenticate(ctx, "root@example.com", "admin-password-123"); err != nil {
		t.Fatalf("unrelated identifier throttled: %v", err)
	}

	mr.FastForward(cfg.Security.LoginCooldownDuration)
	if _, err := engine.Authenticate(ctx, "alice@example.com", "correct-password-123"); err != nil {
		t.Fatalf("expected login after cooldown, got %v", err)
	}

	if engine.MetricsSnapshot().Counters[MetricLoginRateLimited] != 2 {
		t.Fatal("expected two rate-limited logins counted")
	}
}

func TestAuthenticateSuccessResetsThrottle(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 3
	engine, _ := newTestEngine(t, cfg, withDirectory(testDirectory()))
	ctx := context.Background()

	for round := 0; round < 3; round++ {
		for i := 0; i < 2; i++ {
			if _, err := engine.Authenticate(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("round %d: expected ErrInvalidCredentials, got %v", round, err)
			}
		}
		if _, err := engine.Authenticate(ctx, "alice@example.com", "correct-password-123"); err != nil {
			t.Fatalf("round %d: success must reset the budget, got %v", round, err)
		}
	}
}

func TestAuthenticateIPThrottle(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 2
	cfg.Security.EnableIPThrottle = true
	engine, _ := newTestEngine(t, cfg, withDirectory(testDirectory()))
	ctx := WithClientIP(context.Background(), "198.51.100.4")

	if _, err := engine.Authenticate(ctx, "a@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := engine.Authenticate(ctx, "b@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := engine.Authenticate(ctx, "alice@example.com", "correct-password-123"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected the IP budget to be exhausted, got %v", err)
	}

	other := WithClientIP(context.Background(), "198.51.100.5")
	if _, err := engine.Authenticate(other, "alice@example.com", "correct-password-123"); err != nil {
		t.Fatalf("other IP must not be throttled: %v", err)
	}
}

func TestAuthenticateThrottleDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = false
	cfg.Security.MaxLoginAttempts = 1
	engine, _ := newTestEngine(t, cfg, withDirectory(testDirectory()))

	for i := 0; i < 5; i++ {
		if _, err := engine.Authenticate(context.Background(), "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
}

func TestAuthenticateLookupFailure(t *testing.T) {
	dir := testDirectory()
	dir.lookErr = errors.New("pool exhausted")
	engine, _ := newTestEngine(t, testConfig(), withDirectory(dir))

	_, err := engine.Authenticate(context.Background(), "alice@example.com", "correct-password-123")
	if !errors.Is(err, ErrIdentityUnavailable) || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrIdentityUnavailable, got %v", err)
	}
	if !IsRetryable(err) {
		t.Fatal("identity backend failures should be retryable")
	}
}

func TestAuthenticateStoreDown(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig(), withDirectory(testDirectory()))
	mr.Close()

	_, err := engine.Authenticate(context.Background(), "alice@example.com", "correct-password-123")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAuthenticateRequiresLookup(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	if _, err := engine.Authenticate(context.Background(), "alice@example.com", "pw"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.Principal(context.Background(), "1"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}

// legacyVerifier accepts "plain:" hashes and the outdated "old:" scheme, which it
// replaces with "plain:".
type legacyVerifier struct{ plainVerifier }

func (v legacyVerifier) Verify(plaintext, hash string) (bool, error) {
	if strings.HasPrefix(hash, "old:") {
		return strings.TrimPrefix(hash, "old:") == plaintext, nil
	}
	return v.plainVerifier.Verify(plaintext, hash)
}

func (legacyVerifier) NeedsUpgrade(hash string) (bool, error) {
	return strings.HasPrefix(hash, "old:"), nil
}

func (legacyVerifier) Hash(plaintext string) (string, error) {
	return "plain:" + plaintext, nil
}

type updatingDirectory struct {
	*fakeDirectory
	updateErr error
}

func (d updatingDirectory) UpdatePasswordHash(_ context.Context, id, hash string) error {
	if d.updateErr != nil {
		return d.updateErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[id].PasswordHash = hash
	return nil
}

func loginSuccessEvents(sink *ChannelSink) []AuditEvent {
	var out []AuditEvent
	for {
		select {
		case ev := <-sink.Events():
			if ev.EventType == auditEventLoginSuccess {
				out = append(out, ev)
			}
			continue
		default:
		}
		return out
	}
}

func TestAuthenticateRehashesOutdatedPassword(t *testing.T) {
	cases := []struct {
		name      string
		updater   bool
		updateErr error
		want      string
		wantHash  string
	}{
		{name: "rehashed", updater: true, want: passwordUpgradeRehashed, wantHash: "plain:legacy-password-1"},
		{name: "no updater", want: passwordUpgradePending, wantHash: "old:legacy-password-1"},
		{name: "update fails", updater: true, updateErr: errors.New("read-only replica"), want: passwordUpgradeFailed, wantHash: "old:legacy-password-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := newFakeDirectory(Credentials{
				Principal:    Principal{ID: "7", Email: "legacy@example.com", Role: RoleUser, Active: true},
				PasswordHash: "old:legacy-password-1",
			})
			var creds CredentialLookup = dir
			if tc.updater {
				creds = updatingDirectory{fakeDirectory: dir, updateErr: tc.updateErr}
			}

			cfg := testConfig()
			cfg.Audit.Enabled = true
			sink := NewChannelSink(16)
			engine, _ := newTestEngine(t, cfg, func(b *Builder) {
				b.WithPrincipalLookup(dir).
					WithCredentialLookup(creds).
					WithPasswordVerifier(legacyVerifier{}).
					WithAuditSink(sink)
			})
			ctx := context.Background()

			if _, err := engine.Authenticate(ctx, "legacy@example.com", "legacy-password-1"); err != nil {
				t.Fatalf("authenticate failed: %v", err)
			}
			if got := dir.byID["7"].PasswordHash; got != tc.wantHash {
				t.Fatalf("expected stored hash %q, got %q", tc.wantHash, got)
			}
			if tc.want == passwordUpgradeRehashed {
				if _, err := engine.Authenticate(ctx, "legacy@example.com", "legacy-password-1"); err != nil {
					t.Fatalf("login with upgraded hash failed: %v", err)
				}
			}
			engine.Close()

			events := loginSuccessEvents(sink)
			if len(events) == 0 {
				t.Fatal("expected a login_success event")
			}
			if got := events[0].Metadata["password_upgrade"]; got != tc.want {
				t.Fatalf("expected password_upgrade=%q, got %q", tc.want, got)
			}
			if len(events) > 1 {
				if _, ok := events[1].Metadata["password_upgrade"]; ok {
					t.Fatalf("current hash must not be flagged again: %+v", events[1].Metadata)
				}
			}
		})
	}
}

func TestAuthenticateSkipsRehashForPlainVerifier(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	sink := NewChannelSink(8)
	dir := testDirectory()
	engine, _ := newTestEngine(t, cfg, withDirectory(dir), func(b *Builder) { b.WithAuditSink(sink) })

	if _, err := engine.Authenticate(context.Background(), "alice@example.com", "correct-password-123"); err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	engine.Close()

	events := loginSuccessEvents(sink)
	if len(events) != 1 {
		t.Fatalf("expected one login_success event, got %d", len(events))
	}
	if _, ok := events[0].Metadata["password_upgrade"]; ok {
		t.Fatalf("verifier without rehash support must not report upgrades: %+v", events[0].Metadata)
	}
}
