package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	authmw "github.com/MrEthical07/goSession/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// Registrar creates users. Create must return users.ErrEmailTaken for a duplicate
// email.
type Registrar interface {
	Create(ctx context.Context, email, passwordHash string) (*goSession.Principal, error)
}

// PasswordHasher hashes new passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// Config holds router options.
type Config struct {
	// MaxBodyBytes caps JSON request bodies. Defaults to 64 KiB.
	MaxBodyBytes int64
	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP. Enable
	// only behind a proxy that overwrites them.
	TrustProxyHeaders bool
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	// HTTPMetrics records per-route request counts and latency when set.
	HTTPMetrics *HTTPMetrics
	// Registrar and Hasher enable POST /api/v1/auth/register when both are set.
	Registrar Registrar
	Hasher    PasswordHasher
	// ReadinessChecks are run by /api/v1/health/ready next to the refresh store ping.
	ReadinessChecks map[string]ReadinessCheck
	// RequestTimeout bounds each request. Zero disables it.
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter returns the HTTP handler for engine.
func NewRouter(engine *goSession.Engine, cfg Config) http.Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	h := &Handler{
		engine:    engine,
		maxBody:   cfg.MaxBodyBytes,
		checks:    cfg.ReadinessChecks,
		logger:    cfg.Logger,
		cooldown:  engine.Config().Security.LoginCooldownDuration,
		registrar: cfg.Registrar,
		hasher:    cfg.Hasher,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Middleware)
	}
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(clientIP)
	r.Use(accessLog(cfg.Logger))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/health", func(r chi.Router) {
			r.Get("/", h.Live)
			r.Get("/live", h.Live)
			r.Get("/ready", h.Ready)
		})

		r.Route("/auth", func(r chi.Router) {
			if h.registrar != nil && h.hasher != nil {
				r.Post("/register", h.Register)
			}
			r.Post("/login", h.Login)
			r.Post("/login_json", h.LoginJSON)
			r.Post("/refresh", h.Refresh)
			r.Post("/logout", h.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequirePrincipal(engine))
			r.Get("/users/me", h.Me)
			r.Get("/users/{userID}", h.User)
			r.With(authmw.RequireAdmin()).Get("/admin/ping", h.AdminPing)
		})
	})

	return r
}

// clientIP records the caller's address for throttling and audit.
func clientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if ip != "" {
			r = r.WithContext(goSession.WithClientIP(r.Context(), ip))
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "http request",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("ip", goSession.ClientIPFromContext(r.Context())),
			)
		})
	}
}
