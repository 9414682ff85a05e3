package security

import "time"

// Report summarizes the security-relevant posture of a running engine.
type Report struct {
	ProductionMode      bool
	SigningAlgorithm    string
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	Leeway              time.Duration
	RoleOnRefresh       bool
	ReuseTrackingActive bool
	RateLimitingActive  bool
	IPThrottleActive    bool
	AuditActive         bool
	IdentityConfigured  bool
}

// ReportInput is the raw configuration BuildReport derives a Report from.
type ReportInput struct {
	ProductionMode        bool
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	Leeway                time.Duration
	CarryRoleOnRefresh    bool
	ReuseTrackingWindow   time.Duration
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	AuditEnabled          bool
	HasCredentialLookup   bool
	HasPasswordVerifier   bool
}

// BuildReport folds input into the features that are actually in effect: a
// throttle without attempts or cooldown, or an IP throttle without the login
// throttle, is reported as inactive.
func BuildReport(input ReportInput) Report {
	rateLimiting := input.EnableLoginThrottle &&
		input.MaxLoginAttempts > 0 &&
		input.LoginCooldownDuration > 0

	return Report{
		ProductionMode:      input.ProductionMode,
		SigningAlgorithm:    input.SigningAlgorithm,
		AccessTTL:           input.AccessTTL,
		RefreshTTL:          input.RefreshTTL,
		Leeway:              input.Leeway,
		RoleOnRefresh:       input.CarryRoleOnRefresh,
		ReuseTrackingActive: input.ReuseTrackingWindow > 0,
		RateLimitingActive:  rateLimiting,
		IPThrottleActive:    rateLimiting && input.EnableIPThrottle,
		AuditActive:         input.AuditEnabled,
		IdentityConfigured:  input.HasCredentialLookup && input.HasPasswordVerifier,
	}
}
