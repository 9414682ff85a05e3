// Command sessiond serves the session token endpoints over HTTP.
//
// It reads SESSIOND_* environment variables, connects to Redis for refresh
// entries and to Postgres for the users table, and exposes /api/v1 plus
// Prometheus metrics on /metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/httpapi"
	"github.com/MrEthical07/goSession/internal/users"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/password"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := loadConfig()
	log := newLogger(cfg.LogLevel)
	if err := cfg.validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	pool, err := newDBPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	directory, err := users.NewDirectory(pool, cfg.UsersTable)
	if err != nil {
		return err
	}
	verifier, err := password.NewVerifier()
	if err != nil {
		return err
	}

	engine, err := goSession.New().
		WithConfig(cfg.engineConfig()).
		WithRedis(rdb).
		WithLogger(log).
		WithPrincipalLookup(directory).
		WithCredentialLookup(directory).
		WithPasswordVerifier(verifier).
		WithAuditSink(goSession.NewSlogSink(log.With(slog.String("component", "audit")))).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()
	log.Info("engine.ready", slog.Any("security", engine.SecurityReport()))

	if _, err := engine.Ping(ctx); err != nil {
		log.Warn("redis.unreachable", slog.Any("error", err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		promexport.NewCollector(engine),
	)
	httpMetrics, err := httpapi.NewHTTPMetrics(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	handler := httpapi.NewRouter(engine, httpapi.Config{
		TrustProxyHeaders: cfg.TrustProxy,
		MetricsHandler:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		HTTPMetrics:       httpMetrics,
		Registrar:         directory,
		Hasher:            verifier,
		ReadinessChecks: map[string]httpapi.ReadinessCheck{
			"postgres": pool.Ping,
		},
		RequestTimeout: cfg.RequestTimeout,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	log.Info("server.start", slog.String("addr", srv.Addr), slog.String("issuer", cfg.AppName))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("server.stop", slog.String("reason", "signal"))
	case err := <-errCh:
		log.Error("server.fail", slog.Any("error", err))
		return err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server.shutdown.fail", slog.Any("error", err))
		return err
	}

	log.Info("server.stopped",
		slog.Uint64("audit_dropped", engine.AuditDropped()),
	)
	return nil
}

// newDBPool opens the pool and checks one connection can be acquired.
func newDBPool(ctx context.Context, cfg config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
