package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// Engine issues, rotates, revokes and verifies session tokens.
//
// An Engine is built once by [Builder.Build] and is safe for concurrent use. It holds
// no locks: the only cross-request ordering it depends on is the atomic consume of the
// refresh store.
type Engine struct {
	config      Config
	codec       *jwt.Codec
	factory     *jwt.Factory
	store       *session.Store
	limiter     *rate.Limiter
	audit       *audit.Dispatcher
	metrics     *Metrics
	logger      *slog.Logger
	principals  PrincipalLookup
	credentials CredentialLookup
	verifier    PasswordVerifier
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the Engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the Engine was built with.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Ping checks the refresh store backend and returns its round-trip latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	return e.store.Ping(ctx)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login issues an access/refresh pair for a subject whose credentials the caller has
// already verified, and registers the refresh token in the store.
//
// The pair is only returned once the refresh entry is stored. A store failure yields
// an error wrapping [ErrStoreUnavailable] and no tokens.
func (e *Engine) Login(ctx context.Context, subject string, opts ...LoginOption) (TokenPair, error) {
	if e == nil || e.factory == nil || e.store == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	if subject == "" {
		return TokenPair{}, ErrSubjectRequired
	}

	var o loginOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	pair, refreshID, err := e.issuePair(ctx, subject, o.role)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, subject, "", err, func() map[string]string {
			return map[string]string{
				"reason": "issue_failed",
			}
		})
		return TokenPair{}, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, subject, refreshID, nil, func() map[string]string {
		if o.role == "" && o.passwordUpdate == "" {
			return nil
		}
		meta := make(map[string]string, 2)
		if o.role != "" {
			meta["role"] = o.role
		}
		if o.passwordUpdate != "" {
			meta["password_upgrade"] = o.passwordUpdate
		}
		return meta
	})

	return pair, nil
}

// Refresh exchanges a refresh token for a brand-new pair and retires the old one.
//
// Failures:
//   - decode failure, non-refresh type, missing sub or jti: [ErrInvalidToken] wrapping
//     the cause ([ErrWrongTokenType], [ErrMissingClaims] or a jwt sentinel);
//   - entry absent or owned by another subject: [ErrTokenReuseOrExpired];
//   - backend failure: [ErrStoreUnavailable].
//
// The consume is never retried. If the caller's context is cancelled after the
// consume but before the new entry is stored, the lineage is lost and the subject
// must log in again.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil || e.codec == nil || e.store == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	claims, err := e.codec.Decode(refreshToken)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidToken, err)
		e.refreshRejected(ctx, "", "", err, "decode_failed")
		return TokenPair{}, err
	}
	if claims.Type != jwt.TokenRefresh {
		err = fmt.Errorf("%w: %w", ErrInvalidToken, ErrWrongTokenType)
		e.refreshRejected(ctx, claims.Subject, claims.TokenID, err, "wrong_type")
		return TokenPair{}, err
	}
	if claims.TokenID == "" || claims.Subject == "" {
		err = fmt.Errorf("%w: %w", ErrInvalidToken, ErrMissingClaims)
		e.refreshRejected(ctx, claims.Subject, claims.TokenID, err, "missing_claims")
		return TokenPair{}, err
	}

	owner, ok, err := e.store.Consume(ctx, claims.TokenID)
	if err != nil {
		e.metricInc(MetricStoreError)
		e.refreshRejected(ctx, claims.Subject, claims.TokenID, err, "consume_failed")
		return TokenPair{}, err
	}
	if !ok || owner != claims.Subject {
		e.metricInc(MetricRefreshReuseDetected)
		count := e.trackReuse(ctx, claims.Subject)
		e.emitAudit(ctx, auditEventRefreshReuseOrExpired, false, claims.Subject, claims.TokenID, ErrTokenReuseOrExpired, func() map[string]string {
			meta := map[string]string{
				"reason": "entry_absent",
			}
			if ok {
				meta["reason"] = "subject_mismatch"
			}
			if count > 0 {
				meta["reuse_count"] = strconv.FormatInt(count, 10)
			}
			return meta
		})
		return TokenPair{}, ErrTokenReuseOrExpired
	}

	role, err := e.roleForRotation(ctx, claims.Subject)
	if err != nil {
		e.refreshRejected(ctx, claims.Subject, claims.TokenID, err, "principal_lookup")
		return TokenPair{}, err
	}

	pair, nextID, err := e.issuePair(ctx, claims.Subject, role)
	if err != nil {
		e.refreshRejected(ctx, claims.Subject, claims.TokenID, err, "issue_failed")
		return TokenPair{}, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, claims.Subject, nextID, nil, func() map[string]string {
		return map[string]string{
			"previous_token_id": claims.TokenID,
		}
	})

	return pair, nil
}

// Logout revokes a refresh token. It never fails from the caller's point of view:
// an empty, undecodable, expired or non-refresh token is simply nothing to revoke,
// and a store failure is logged and reported only through the outcome.
func (e *Engine) Logout(ctx context.Context, refreshToken string) LogoutOutcome {
	if e == nil || e.codec == nil || e.store == nil || refreshToken == "" {
		e.logoutNoop(ctx, "", "no_token")
		return LogoutNothingToRevoke
	}

	claims, err := e.codec.Decode(refreshToken)
	switch {
	case err != nil:
		e.logoutNoop(ctx, "", "decode_failed")
		return LogoutNothingToRevoke
	case claims.Type != jwt.TokenRefresh:
		e.logoutNoop(ctx, claims.Subject, "wrong_type")
		return LogoutNothingToRevoke
	case claims.TokenID == "":
		e.logoutNoop(ctx, claims.Subject, "missing_jti")
		return LogoutNothingToRevoke
	}

	if err := e.store.Delete(ctx, claims.TokenID); err != nil {
		e.metricInc(MetricStoreError)
		e.logger.WarnContext(ctx, "goSession: logout delete failed",
			slog.String("subject", claims.Subject),
			slog.String("token_id", claims.TokenID),
			slog.Any("error", err),
		)
		e.emitAudit(ctx, auditEventLogout, false, claims.Subject, claims.TokenID, err, nil)
		return LogoutStoreError
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, claims.Subject, claims.TokenID, nil, nil)
	return LogoutRevoked
}

// Authorize verifies an access token and returns what it asserts. It performs no I/O:
// access tokens are valid until they expire.
//
// Failures: [ErrInvalidToken] wrapping the codec cause, or [ErrWrongTokenType] for a
// refresh token.
func (e *Engine) Authorize(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricAuthorizeLatency, time.Since(start)) }()
	}

	claims, err := e.codec.Decode(accessToken)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidToken, err)
		e.authorizeRejected(ctx, "", "", err)
		return nil, err
	}
	if claims.Type != jwt.TokenAccess {
		e.authorizeRejected(ctx, claims.Subject, claims.TokenID, ErrWrongTokenType)
		return nil, ErrWrongTokenType
	}
	if claims.Subject == "" {
		err = fmt.Errorf("%w: %w", ErrInvalidToken, ErrMissingClaims)
		e.authorizeRejected(ctx, "", claims.TokenID, err)
		return nil, err
	}

	e.metricInc(MetricAuthorizeSuccess)
	role, _ := claims.ExtraString(ClaimRole)
	return &AuthResult{
		Subject:   claims.Subject,
		Role:      role,
		TokenID:   claims.TokenID,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// Principal resolves subject through the configured [PrincipalLookup].
// It returns [ErrPrincipalNotFound] when the subject does not exist.
func (e *Engine) Principal(ctx context.Context, subject string) (*Principal, error) {
	if e == nil || e.principals == nil {
		return nil, ErrEngineNotReady
	}
	p, err := e.principals.GetByID(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	if p == nil {
		return nil, ErrPrincipalNotFound
	}
	return p, nil
}

// issuePair signs a new access and refresh token for subject and stores the refresh
// entry. It returns the new refresh token id.
func (e *Engine) issuePair(ctx context.Context, subject, role string) (TokenPair, string, error) {
	var extra map[string]any
	if role != "" {
		extra = map[string]any{ClaimRole: role}
	}

	access, _, err := e.factory.Issue(subject, jwt.TokenAccess, extra)
	if err != nil {
		return TokenPair{}, "", fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshID, err := e.factory.Issue(subject, jwt.TokenRefresh, nil)
	if err != nil {
		return TokenPair{}, "", fmt.Errorf("issue refresh token: %w", err)
	}

	if err := e.store.Put(ctx, refreshID, subject, e.factory.TTL(jwt.TokenRefresh)); err != nil {
		e.metricInc(MetricStoreError)
		return TokenPair{}, "", err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
	}, refreshID, nil
}

// roleForRotation returns the role to embed in a rotated access token. Unless
// CarryRoleOnRefresh is set, rotated tokens carry no role.
func (e *Engine) roleForRotation(ctx context.Context, subject string) (string, error) {
	if !e.config.Session.CarryRoleOnRefresh || e.principals == nil {
		return "", nil
	}
	p, err := e.Principal(ctx, subject)
	if err != nil {
		return "", err
	}
	if !p.Active {
		return "", ErrPrincipalNotFound
	}
	return p.Role, nil
}

func (e *Engine) trackReuse(ctx context.Context, subject string) int64 {
	window := e.config.Session.ReuseTrackingWindow
	if window <= 0 || subject == "" {
		return 0
	}
	count, err := e.store.TrackReuse(ctx, subject, window)
	if err != nil {
		// Tracking is best-effort and must not change the refresh outcome.
		e.metricInc(MetricStoreError)
		e.logger.WarnContext(ctx, "goSession: refresh reuse tracking failed", slog.Any("error", err))
		return 0
	}
	return count
}

func (e *Engine) refreshRejected(ctx context.Context, subject, tokenID string, err error, reason string) {
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, auditEventRefreshInvalid, false, subject, tokenID, err, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
}

func (e *Engine) authorizeRejected(ctx context.Context, subject, tokenID string, err error) {
	e.metricInc(MetricAuthorizeFailure)
	e.emitAudit(ctx, auditEventAuthorizeFailure, false, subject, tokenID, err, nil)
}

func (e *Engine) logoutNoop(ctx context.Context, subject, reason string) {
	e.metricInc(MetricLogoutNoop)
	e.emitAudit(ctx, auditEventLogoutNoop, true, subject, "", nil, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
}

// IsRetryable reports whether err is a transient backend failure that a caller may
// retry with backoff. Token and credential failures are never retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrIdentityUnavailable)
}
