package goSession

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/jwt"
)

// Config is the complete Engine configuration. Build copies it; later changes to the
// caller's value have no effect on a running Engine.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls signing and token lifetimes.
type JWTConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Algorithm  string // "HS256" (default), "HS384", "HS512"
	Secret     []byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the refresh store and rotation behaviour.
type SessionConfig struct {
	RedisPrefix string
	// CarryRoleOnRefresh looks the principal up during rotation and embeds its current
	// role in the new access token. When false, rotated access tokens carry no role.
	CarryRoleOnRefresh bool
	// ReuseTrackingWindow is the window of the per-subject counter of rejected
	// refresh attempts. Zero disables tracking.
	ReuseTrackingWindow time.Duration
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls hardening checks and the login throttle.
type SecurityConfig struct {
	ProductionMode        bool
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. Secret is left empty and must be
// provided before Build.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
			Algorithm:  jwt.AlgHS256,
			Issuer:     "MentalMentor",
			Audience:   "MentalMentor",
		},
		Session: SessionConfig{
			RedisPrefix:         "refresh",
			CarryRoleOnRefresh:  false,
			ReuseTrackingWindow: 24 * time.Hour,
		},
		Security: SecurityConfig{
			ProductionMode:        false,
			EnableLoginThrottle:   true,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// HighSecurityConfig tightens DefaultConfig for internet-facing deployments.
func HighSecurityConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessTTL = 5 * time.Minute
	cfg.JWT.RefreshTTL = 7 * 24 * time.Hour
	cfg.JWT.Algorithm = jwt.AlgHS512
	cfg.Session.CarryRoleOnRefresh = true
	cfg.Security.ProductionMode = true
	cfg.Security.EnableIPThrottle = true
	cfg.Security.MaxLoginAttempts = 5
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first configuration problem found, or nil.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	switch strings.ToUpper(c.JWT.Algorithm) {
	case "", jwt.AlgHS256, jwt.AlgHS384, jwt.AlgHS512:
	default:
		return errors.New("unsupported JWT algorithm")
	}
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret is required")
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer is required")
	}
	if strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience is required")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if strings.ContainsAny(c.Session.RedisPrefix, " \t\r\n") {
		return errors.New("Session RedisPrefix must not contain whitespace")
	}
	if c.Session.ReuseTrackingWindow < 0 {
		return errors.New("Session ReuseTrackingWindow must be >= 0")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0 when login throttle is enabled")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0 when login throttle is enabled")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Security.ProductionMode {
		if c.JWT.AccessTTL > 15*time.Minute {
			return errors.New("ProductionMode requires JWT AccessTTL <= 15m")
		}
		if c.JWT.RefreshTTL > 30*24*time.Hour {
			return errors.New("ProductionMode requires JWT RefreshTTL <= 30d")
		}
		if len(c.JWT.Secret) < 32 {
			return errors.New("ProductionMode requires JWT Secret length >= 256 bits")
		}
		if !c.Security.EnableLoginThrottle {
			return errors.New("ProductionMode requires the login throttle")
		}
	}

	return nil
}

// LintWarning is a non-fatal configuration observation.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint returns settings that are valid but worth a second look. It never fails; run
// Validate for hard errors.
func (c Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	if c.JWT.Leeway > time.Minute {
		add("leeway_large", "JWT Leeway above 1m widens the replay window of expired tokens")
	}
	if c.JWT.AccessTTL > 15*time.Minute {
		add("access_ttl_long", "access tokens cannot be revoked; keep AccessTTL short")
	}
	if c.JWT.RefreshTTL > 30*24*time.Hour {
		add("refresh_ttl_long", "RefreshTTL above 30d")
	}
	if len(c.JWT.Secret) > 0 && len(c.JWT.Secret) < 32 {
		add("secret_short", "JWT Secret shorter than 256 bits")
	}
	if !c.Security.EnableLoginThrottle {
		add("rate_limits_disabled", "login attempts are not throttled")
	} else if !c.Security.EnableIPThrottle {
		add("ip_throttle_disabled", "login throttle is per identifier only")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", "security events are not audited")
	}
	if c.Session.ReuseTrackingWindow == 0 {
		add("reuse_tracking_disabled", "refresh token reuse is not counted per subject")
	}

	return ws
}
