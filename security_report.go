package goSession

import (
	"strings"

	"github.com/MrEthical07/goSession/internal/security"
	"github.com/MrEthical07/goSession/jwt"
)

// SecurityReport summarizes which protections the Engine actually enforces.
type SecurityReport = security.Report

// SecurityReport derives the Engine's effective security posture from its
// configuration and wiring.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config

	alg := strings.ToUpper(cfg.JWT.Algorithm)
	if alg == "" {
		alg = jwt.AlgHS256
	}

	return security.BuildReport(security.ReportInput{
		ProductionMode:        cfg.Security.ProductionMode,
		SigningAlgorithm:      alg,
		AccessTTL:             cfg.JWT.AccessTTL,
		RefreshTTL:            cfg.JWT.RefreshTTL,
		Leeway:                cfg.JWT.Leeway,
		CarryRoleOnRefresh:    cfg.Session.CarryRoleOnRefresh,
		ReuseTrackingWindow:   cfg.Session.ReuseTrackingWindow,
		EnableLoginThrottle:   e.limiter != nil,
		EnableIPThrottle:      cfg.Security.EnableIPThrottle,
		MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
		LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		AuditEnabled:          e.audit != nil,
		HasCredentialLookup:   e.credentials != nil,
		HasPasswordVerifier:   e.verifier != nil,
	})
}
