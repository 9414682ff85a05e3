package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/goSession/internal/rate"
)

// Authenticate verifies identifier and password and, on success, logs the principal in
// with its role embedded in the access token.
//
// An unknown identifier, a wrong password and an inactive principal all yield
// [ErrInvalidCredentials]. Failed attempts count against the login throttle when it is
// enabled; once exhausted, calls fail with [ErrLoginRateLimited] before any lookup.
func (e *Engine) Authenticate(ctx context.Context, identifier, password string) (TokenPair, error) {
	if e == nil || e.credentials == nil || e.verifier == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	ip := clientIPFromContext(ctx)

	if e.limiter != nil {
		if err := e.limiter.CheckLogin(ctx, identifier, ip); err != nil {
			return TokenPair{}, e.loginThrottleError(ctx, identifier, err)
		}
	}

	if identifier == "" || password == "" {
		return TokenPair{}, e.loginFailed(ctx, identifier, "", "empty_credentials")
	}

	creds, err := e.credentials.GetByIdentifier(ctx, identifier)
	if err != nil {
		e.logger.WarnContext(ctx, "goSession: credential lookup failed", slog.Any("error", err))
		err = fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "lookup_failed",
			}
		})
		return TokenPair{}, err
	}
	if creds == nil {
		return TokenPair{}, e.loginFailed(ctx, identifier, "", "user_not_found")
	}

	ok, err := e.verifier.Verify(password, creds.PasswordHash)
	if err != nil || !ok {
		return TokenPair{}, e.loginFailed(ctx, identifier, creds.ID, "password_mismatch")
	}
	if !creds.Active {
		return TokenPair{}, e.loginFailed(ctx, identifier, creds.ID, "inactive")
	}

	if e.limiter != nil {
		if err := e.limiter.ResetLogin(ctx, identifier); err != nil {
			e.logger.WarnContext(ctx, "goSession: login throttle reset failed", slog.Any("error", err))
		}
	}

	upgrade := e.upgradePassword(ctx, creds, password)
	return e.Login(ctx, creds.ID, WithRole(creds.Role), withPasswordUpdate(upgrade))
}

// Outcomes of the post-login hash check, recorded as "password_upgrade" in the
// login_success audit event.
const (
	passwordUpgradeRehashed = "rehashed"
	passwordUpgradePending  = "pending"
	passwordUpgradeFailed   = "failed"
)

// upgradePassword replaces an outdated stored hash after a successful verify. It runs
// only when the verifier implements [PasswordRehasher]; without a
// [PasswordHashUpdater] the hash is reported as pending. Failures never fail the login.
func (e *Engine) upgradePassword(ctx context.Context, creds *Credentials, password string) string {
	rehasher, ok := e.verifier.(PasswordRehasher)
	if !ok {
		return ""
	}
	needs, err := rehasher.NeedsUpgrade(creds.PasswordHash)
	if err != nil || !needs {
		return ""
	}
	updater, ok := e.credentials.(PasswordHashUpdater)
	if !ok {
		return passwordUpgradePending
	}

	hash, err := rehasher.Hash(password)
	if err == nil {
		err = updater.UpdatePasswordHash(ctx, creds.ID, hash)
	}
	if err != nil {
		e.logger.WarnContext(ctx, "goSession: password rehash failed",
			slog.String("subject", creds.ID),
			slog.Any("error", err),
		)
		return passwordUpgradeFailed
	}
	return passwordUpgradeRehashed
}

func withPasswordUpdate(outcome string) LoginOption {
	return func(o *loginOptions) {
		o.passwordUpdate = outcome
	}
}

// loginFailed records a failed attempt and returns the error the caller should see.
func (e *Engine) loginFailed(ctx context.Context, identifier, subject, reason string) error {
	if e.limiter != nil {
		if err := e.limiter.IncrementLogin(ctx, identifier, clientIPFromContext(ctx)); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return e.loginThrottleError(ctx, identifier, err)
			}
			e.logger.WarnContext(ctx, "goSession: login throttle increment failed", slog.Any("error", err))
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, subject, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"reason":     reason,
		}
	})
	return ErrInvalidCredentials
}

func (e *Engine) loginThrottleError(ctx context.Context, identifier string, err error) error {
	if !errors.Is(err, rate.ErrRateLimited) {
		e.metricInc(MetricStoreError)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricLoginRateLimited)
	e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
		}
	})
	return ErrLoginRateLimited
}
