// Package main is the entry point for the backoffice background worker.
// It relays the transactional outbox into asynq and runs cost propagation
// tasks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"backoffice/internal/app"
	"backoffice/internal/config"
	"backoffice/internal/core/keylock"
	"backoffice/internal/infrastructure/queue"
	"backoffice/internal/infrastructure/storage/postgres"
	"backoffice/pkg/logger"
)

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

	if cfg.Storage != config.StoragePostgres {
		log.Fatalw("worker requires postgres storage", "storage", cfg.Storage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log.WithComponent("worker"))

	log.Infow("starting backoffice worker",
		"concurrency", cfg.WorkerConcurrency,
		"poll_interval", cfg.OutboxPollInterval,
	)

	pc := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	pc.ApplicationName = "backoffice-worker"
	pc.MaxConns = cfg.DBMaxConns
	pc.MinConns = cfg.DBMinConns
	pool, err := postgres.NewPool(ctx, pc)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool).WithStatementTimeout(cfg.StatementTimeout)

	var locker keylock.Locker = keylock.NewLocal()
	if cfg.LockBackend == config.LockRedis {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		locker = keylock.NewRedis(rdb, keylock.WithTTL(cfg.LockTTL))
	}

	engine := app.NewEngine(app.EngineConfig{
		TxManager: txm,
		Locker:    locker,
		Repos:     app.PostgresRepositories(txm),
		Publisher: postgres.NewOutboxPublisher(txm),
		Deferred:  true,
	})

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client := queue.NewClient(redisOpt)
	defer client.Close()

	relay := postgres.NewOutboxRelay(txm, cfg.OutboxBatchSize, client)
	worker := queue.NewWorker(queue.WorkerConfig{
		RedisOpt:    redisOpt,
		Concurrency: cfg.WorkerConcurrency,
		Propagator:  engine.Service,
		BaseContext: func() context.Context { return context.WithoutCancel(ctx) },
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return relay.Run(gctx, cfg.OutboxPollInterval, cfg.OutboxCleanup)
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	var idem *postgres.IdempotencyStore
	if cfg.IdempotencyEnabled {
		idem = postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL)
	}
	g.Go(func() error {
		maintain(gctx, pool, idem, cfg.OutboxCleanup)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Errorw("worker stopped with error", "error", err)
		return
	}
	log.Info("worker stopped")
}

// maintain logs pool stats and purges expired idempotency keys on every tick.
// store may be nil.
func maintain(ctx context.Context, pool *postgres.Pool, store *postgres.IdempotencyStore, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pool.LogStats(ctx)
			if store == nil {
				continue
			}
			n, err := store.CleanupExpired(ctx)
			if err != nil {
				logger.Error(ctx, "idempotency cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info(ctx, "cleaned up idempotency keys", "count", n)
			}
		}
	}
}
