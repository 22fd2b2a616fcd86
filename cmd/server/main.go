// Package main is the entry point for the backoffice inventory API server.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"backoffice/internal/app"
	"backoffice/internal/config"
	"backoffice/internal/core/keylock"
	v1 "backoffice/internal/infrastructure/http/v1"
	"backoffice/internal/infrastructure/http/v1/handlers"
	"backoffice/internal/infrastructure/metrics"
	"backoffice/internal/infrastructure/storage/memory"
	"backoffice/internal/infrastructure/storage/postgres"
	"backoffice/pkg/logger"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: !cfg.IsProduction(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	log.Infow("starting backoffice server",
		"storage", cfg.Storage,
		"lock_backend", cfg.LockBackend,
		"propagation", cfg.PropagationMode,
	)

	checks := make(map[string]handlers.Pinger)
	routerCfg := v1.RouterConfig{Logger: log, HealthChecks: checks}
	engineCfg := app.EngineConfig{Deferred: cfg.PropagationMode == config.PropagationOutbox}

	switch cfg.Storage {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, poolConfig(cfg))
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()

		if cfg.MigrateOnStart {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatalw("failed to apply migrations", "error", err)
			}
		}

		txm := postgres.NewTxManager(pool).WithStatementTimeout(cfg.StatementTimeout)
		checks["database"] = txm
		engineCfg.TxManager = txm
		engineCfg.Repos = app.PostgresRepositories(txm)
		if engineCfg.Deferred {
			engineCfg.Publisher = postgres.NewOutboxPublisher(txm)
		}
		if cfg.IdempotencyEnabled {
			routerCfg.Idempotency = postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL)
		}

	case config.StorageMemory:
		store := memory.NewStore()
		engineCfg.TxManager = store
		engineCfg.Repos = app.MemoryRepositories(store)
		log.Warn("using in-memory storage, data is lost on restart")
	}

	var lockerCloser func()
	engineCfg.Locker, lockerCloser = newLocker(cfg, checks)
	defer lockerCloser()

	if cfg.MetricsEnabled {
		engineCfg.Metrics = metrics.NewLedger(nil)
		routerCfg.Metrics = promhttp.Handler()
	}

	engine := app.NewEngine(engineCfg)
	routerCfg.Service = engine.Service
	routerCfg.Catalog = engine.Catalog

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("server starting", "addr", cfg.AppAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Errorw("server stopped with error", "error", err)
		return
	}
	log.Info("server stopped")
}

func poolConfig(cfg *config.Config) postgres.PoolConfig {
	pc := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	pc.MaxConns = cfg.DBMaxConns
	pc.MinConns = cfg.DBMinConns
	return pc
}

// newLocker builds the per-key lock backend. The returned func releases
// any client it opened.
func newLocker(cfg *config.Config, checks map[string]handlers.Pinger) (keylock.Locker, func()) {
	if cfg.LockBackend != config.LockRedis {
		return keylock.NewLocal(), func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	checks["redis"] = pingFunc(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	return keylock.NewRedis(rdb, keylock.WithTTL(cfg.LockTTL)), func() { _ = rdb.Close() }
}
