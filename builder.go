package goSession

import (
	"errors"
	"log/slog"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder can build exactly one Engine.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *slog.Logger

	principals  PrincipalLookup
	credentials CredentialLookup
	verifier    PasswordVerifier
	auditSink   AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets the signing secret.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.JWT.Secret = cloneBytes(secret)
	return b
}

// WithRedis sets the refresh store and login throttle backend. Any go-redis client
// works: single node, sentinel failover or cluster.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the logger used for best-effort failures. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithPrincipalLookup sets the identity lookup used by Principal and, when
// CarryRoleOnRefresh is enabled, by Refresh.
func (b *Builder) WithPrincipalLookup(lookup PrincipalLookup) *Builder {
	b.principals = lookup
	return b
}

// WithCredentialLookup sets the lookup used by Authenticate.
func (b *Builder) WithCredentialLookup(lookup CredentialLookup) *Builder {
	b.credentials = lookup
	return b
}

// WithPasswordVerifier sets the verifier used by Authenticate.
func (b *Builder) WithPasswordVerifier(v PasswordVerifier) *Builder {
	b.verifier = v
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in the config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Authorize latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Session.CarryRoleOnRefresh && b.principals == nil {
		return nil, errors.New("CarryRoleOnRefresh requires a principal lookup")
	}
	if (b.credentials == nil) != (b.verifier == nil) {
		return nil, errors.New("credential lookup and password verifier must be provided together")
	}

	// -------- TOKENS --------
	codec, err := jwt.NewCodec(jwt.Config{
		Algorithm: cfg.JWT.Algorithm,
		Secret:    cloneBytes(cfg.JWT.Secret),
		Issuer:    cfg.JWT.Issuer,
		Audience:  cfg.JWT.Audience,
		Leeway:    cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	factory, err := jwt.NewFactory(codec, jwt.FactoryConfig{
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		config:      cfg,
		codec:       codec,
		factory:     factory,
		store:       session.NewStore(b.redis, cfg.Session.RedisPrefix),
		metrics:     NewMetrics(cfg.Metrics),
		logger:      logger,
		principals:  b.principals,
		credentials: b.credentials,
		verifier:    b.verifier,
	}

	// -------- LOGIN THROTTLE --------
	if cfg.Security.EnableLoginThrottle {
		engine.limiter = rate.New(b.redis, rate.Config{
			Prefix:           cfg.Session.RedisPrefix + ":login",
			EnableIPThrottle: cfg.Security.EnableIPThrottle,
			MaxAttempts:      cfg.Security.MaxLoginAttempts,
			Cooldown:         cfg.Security.LoginCooldownDuration,
		})
	}

	// -------- AUDIT --------
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
