package main

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

const envPrefix = "SESSIOND_"

type config struct {
	AppName         string
	JWTSecret       string
	JWTAlgorithm    string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	RedisURL        string
	DatabaseURL     string
	UsersTable      string
	DBMaxConns      int32
	LogLevel        string
	Port            int
	TrustProxy      bool
	ProductionMode  bool
	AuditLog        bool
	CarryRole       bool
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() config {
	return config{
		AppName:         envString("APP_NAME", "MentalMentor"),
		JWTSecret:       envString("JWT_SECRET", ""),
		JWTAlgorithm:    envString("JWT_ALG", "HS256"),
		AccessTTL:       time.Duration(envInt("ACCESS_TOKEN_EXPIRE_MINUTES", 15)) * time.Minute,
		RefreshTTL:      time.Duration(envInt("REFRESH_TOKEN_EXPIRE_DAYS", 30)) * 24 * time.Hour,
		RedisURL:        envString("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:     envString("DATABASE_URL", ""),
		UsersTable:      envString("USERS_TABLE", "users"),
		DBMaxConns:      int32(envInt("DB_MAX_CONNS", 10)),
		LogLevel:        envString("LOG_LEVEL", "info"),
		Port:            envInt("PORT", 8000),
		TrustProxy:      envBool("TRUST_PROXY", false),
		ProductionMode:  envBool("PRODUCTION", false),
		AuditLog:        envBool("AUDIT_LOG", true),
		CarryRole:       envBool("CARRY_ROLE_ON_REFRESH", false),
		RequestTimeout:  envDuration("REQUEST_TIMEOUT", 15*time.Second),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func (c config) validate() error {
	if c.JWTSecret == "" {
		return errors.New(envPrefix + "JWT_SECRET is required")
	}
	if c.DatabaseURL == "" {
		return errors.New(envPrefix + "DATABASE_URL is required")
	}
	return nil
}

// engineConfig maps the service settings onto the engine's configuration.
func (c config) engineConfig() goSession.Config {
	cfg := goSession.DefaultConfig()
	cfg.JWT.Secret = []byte(c.JWTSecret)
	cfg.JWT.Algorithm = c.JWTAlgorithm
	cfg.JWT.AccessTTL = c.AccessTTL
	cfg.JWT.RefreshTTL = c.RefreshTTL
	cfg.JWT.Issuer = c.AppName
	cfg.JWT.Audience = c.AppName
	cfg.Session.CarryRoleOnRefresh = c.CarryRole
	cfg.Security.ProductionMode = c.ProductionMode
	cfg.Security.EnableIPThrottle = c.TrustProxy
	cfg.Audit.Enabled = c.AuditLog
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(envPrefix + key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(envString(key, ""))
	if err != nil {
		return def
	}
	return v
}

// envInt reads a positive int.
func envInt(key string, def int) int {
	n, err := strconv.Atoi(envString(key, ""))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(envString(key, ""))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
