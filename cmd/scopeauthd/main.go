// Command scopeauthd serves the scopeAuth password grant and a pair of
// scope-protected endpoints over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/scopeAuth"
	"github.com/MrEthical07/scopeAuth/directory/cached"
	"github.com/MrEthical07/scopeAuth/directory/sqlstore"
	"github.com/MrEthical07/scopeAuth/internal/settings"
	promexport "github.com/MrEthical07/scopeAuth/metrics/export/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", os.Getenv("SCOPEAUTH_CONFIG"), "path to the YAML settings file")
	flag.Parse()

	cfg, err := settings.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scopeauthd: %v\n", err)
		os.Exit(2)
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "scopeauthd: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("scopeauthd stopped")
	}
}

func run(ctx context.Context, cfg *settings.Settings, logger *logrus.Logger) error {
	dialect, err := sqlstore.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return err
	}
	store, err := sqlstore.Open(ctx, dialect, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open principal store: %w", err)
	}
	defer store.Close()

	if cfg.Database.Migrate {
		applied, err := store.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrate principal store: %w", err)
		}
		logger.WithField("applied", applied).Info("principal store migrated")
	}
	if err := seed(ctx, store, cfg.Seed, logger); err != nil {
		return err
	}

	var directory scopeAuth.UserDirectory = store
	if cfg.Cache.Enabled {
		directory = cached.New(store, cached.Config{MaxEntries: cfg.Cache.MaxEntries, TTL: cfg.Cache.TTL})
	}

	builder := scopeAuth.New().
		WithConfig(cfg.EngineConfig()).
		WithUserDirectory(directory).
		WithLogger(logger)

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable at startup; login throttling fails open")
		}
		builder.WithRedis(client)
	}
	if cfg.Audit.Enabled {
		builder.WithAuditSink(scopeAuth.NewLogrusSink(logger.WithField("component", "audit")))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.WithFields(logrus.Fields{
		"access_ttl":    report.AccessTTL.String(),
		"rate_limiting": report.RateLimitingActive,
		"ip_throttle":   report.IPThrottleActive,
		"legacy_bcrypt": report.LegacyBcrypt,
	}).Info("security posture")
	for _, w := range report.Warnings {
		logger.Warn("security: " + w)
	}

	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewDBStatsCollector(store.DB(), "principals"),
			promexport.NewCollector(engine),
		)
	}

	srv := &http.Server{
		Addr: cfg.Server.ListenAddr,
		Handler: newRouter(serverDeps{
			engine:         engine,
			directory:      directory,
			health:         store,
			registry:       registry,
			metricsPath:    cfg.Metrics.Path,
			trustForwarded: cfg.Server.TrustForwarded,
			logger:         logger,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seed creates configured principals that do not exist yet.
func seed(ctx context.Context, store *sqlstore.Store, principals []settings.SeedPrincipal, logger logrus.FieldLogger) error {
	for _, p := range principals {
		_, err := store.FindByUsername(ctx, p.Username)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, scopeAuth.ErrPrincipalNotFound):
			return fmt.Errorf("seed principal %q: %w", p.Username, err)
		}

		id, err := store.Create(ctx, p.Principal())
		switch {
		case errors.Is(err, sqlstore.ErrDuplicateUsername):
			continue
		case err != nil:
			return fmt.Errorf("seed principal %q: %w", p.Username, err)
		}
		logger.WithFields(logrus.Fields{"username": p.Username, "user_id": id}).Info("seeded principal")
	}
	return nil
}
