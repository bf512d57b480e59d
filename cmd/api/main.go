package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apphttp "arrume_backend/internal/http"
	"arrume_backend/internal/http/router"
	"arrume_backend/internal/leads"
	leadrepo "arrume_backend/internal/leads/repository"
	"arrume_backend/internal/linkshortener"
	"arrume_backend/internal/notification"
	"arrume_backend/internal/postalcode"
	"arrume_backend/internal/providers"
	providerrepo "arrume_backend/internal/providers/repository"
	providerservice "arrume_backend/internal/providers/service"
	"arrume_backend/internal/whatsapp"
	"arrume_backend/migrations"
	"arrume_backend/platform/config"
	"arrume_backend/platform/db"
	"arrume_backend/platform/logger"
	"arrume_backend/platform/metrics"
	"arrume_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if cfg.UsesPostgres() {
		pool = mustConnect(ctx, cfg, log)
		defer pool.Close()
	}

	m := metrics.New()
	val := validator.New()

	candidates := mustCandidateReader(cfg, pool, log)
	store, closeStore := mustLeadStore(ctx, cfg, pool, log)
	defer closeStore()

	cache := initPostalCache(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	providersModule := providers.NewModule(candidates, cfg, val, m, log)
	resolver := postalcode.NewFromConfig(cfg, cache, m, log)
	shortener := linkshortener.NewFromConfig(cfg, m, log)
	dispatcher := notification.NewDispatcher(newTransport(cfg, m, log), shortener, cfg.GetZAPISenderPhone(), m, log)

	leadsModule := leads.NewModule(leads.Deps{
		Store:      store,
		Resolver:   resolver,
		Matcher:    providersModule.Service(),
		Dispatcher: dispatcher,
	}, cfg, val, m, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Health:  db.NewPoolHealth(pool),
		Metrics: m,
		Modules: []apphttp.Module{
			leadsModule,
			providersModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func mustConnect(ctx context.Context, cfg *config.Config, log *logger.Logger) *pgxpool.Pool {
	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	log.Info("database connection established")

	if err := db.RunMigrations(ctx, pool, migrations.FS); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")
	return pool
}

func mustCandidateReader(cfg *config.Config, pool *pgxpool.Pool, log *logger.Logger) providerservice.CandidateReader {
	if cfg.GetProviderSource() == config.BackendFixture {
		fixture, err := providerrepo.LoadFixture(cfg.GetProviderFixturePath())
		if err != nil {
			log.Error("failed to load provider fixture", "error", err, "path", cfg.GetProviderFixturePath())
			panic("failed to load provider fixture: " + err.Error())
		}
		log.Info("using provider fixture", "path", cfg.GetProviderFixturePath())
		return fixture
	}
	return providerrepo.New(pool)
}

func mustLeadStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, log *logger.Logger) (leadrepo.Store, func()) {
	if cfg.GetLeadStore() == config.BackendSQLite {
		store, err := leadrepo.OpenSQLite(ctx, cfg.GetSQLitePath())
		if err != nil {
			log.Error("failed to open sqlite lead store", "error", err, "path", cfg.GetSQLitePath())
			panic("failed to open sqlite lead store: " + err.Error())
		}
		log.Info("using sqlite lead store", "path", cfg.GetSQLitePath())
		return store, func() { _ = store.Close() }
	}
	return leadrepo.New(pool), func() {}
}

func initPostalCache(ctx context.Context, cfg config.CacheConfig, log *logger.Logger) postalcode.Cache {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; postal code cache disabled")
		return nil
	}

	client, err := postalcode.NewRedisClient(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; postal code cache disabled", "error", err)
		return nil
	}
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable at startup; cache calls will be retried per request", "error", err)
	}
	return postalcode.NewRedisCache(client, cfg.GetPostalCacheTTL())
}

func newTransport(cfg config.WhatsAppConfig, m *metrics.Metrics, log *logger.Logger) notification.Transport {
	if cfg.GetZAPIUseFake() {
		log.Warn("ZAPI_USE_FAKE enabled; whatsapp messages are only logged")
		return whatsapp.NewLogTransport(log)
	}
	return whatsapp.NewClient(cfg, m, log)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
