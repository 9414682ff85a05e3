package goSession

import "testing"

func TestSecurityReport(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig(), withDirectory(testDirectory()))

	r := engine.SecurityReport()
	if r.SigningAlgorithm != "HS256" || !r.RateLimitingActive || !r.IdentityConfigured {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.AccessTTL != engine.Config().JWT.AccessTTL {
		t.Fatalf("report ttl %s does not match config", r.AccessTTL)
	}

	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = false
	cfg.Audit.Enabled = false
	bare, _ := newTestEngine(t, cfg)
	r = bare.SecurityReport()
	if r.RateLimitingActive || r.AuditActive || r.IdentityConfigured {
		t.Fatalf("expected a bare engine report, got %+v", r)
	}

	var nilEngine *Engine
	if nilEngine.SecurityReport() != (SecurityReport{}) {
		t.Fatal("nil engine should report zero value")
	}
}
