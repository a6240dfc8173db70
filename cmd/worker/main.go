// Package main is the entry point for the progress engine worker.
//
// The worker owns the write-behind pipeline: it runs the migrations and the
// scheduler that flushes dirty progress pairs to PostgreSQL, and drains the
// remaining dirty set on shutdown. Transport deployments host the application
// handlers separately via application.NewHandlers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lessonforge/progress-engine/config"
	"github.com/lessonforge/progress-engine/internal/infrastructure/messaging"
	"github.com/lessonforge/progress-engine/internal/infrastructure/persistence/postgres"
	"github.com/lessonforge/progress-engine/internal/infrastructure/persistence/redis"
	"github.com/lessonforge/progress-engine/internal/infrastructure/scheduler"
	"github.com/lessonforge/progress-engine/internal/infrastructure/scheduler/jobs"
	"github.com/lessonforge/progress-engine/internal/infrastructure/service"
	"github.com/lessonforge/progress-engine/pkg/circuitbreaker"
	"github.com/lessonforge/progress-engine/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	slogger := setupSlog(cfg)
	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})

	slogger.Info("starting progress engine worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL (durable snapshot store)
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		slogger.Info("closing database connection...")
		dbConn.Close()
	}()

	slogger.Info("running database migrations...")
	if err := postgres.Migrate(ctx, dbConn); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slogger.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (fast store + dirty tracker)
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("connecting to redis...")
	redisCfg := redis.DefaultConfig()
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	redisCfg.PoolSize = cfg.Redis.PoolSize
	redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
	redisCfg.DialTimeout = cfg.Redis.DialTimeout
	redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
	redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

	redisCache, err := redis.NewCache(redisCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer func() {
		slogger.Info("closing redis connection...")
		_ = redisCache.Close()
	}()
	slogger.Info("redis connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES & LEDGER
	// ─────────────────────────────────────────────────────────────────────────
	snapshotRepo := postgres.NewSnapshotRepository(dbConn)
	progressCache := redis.NewProgressCache(redisCache)
	dirtyTracker := redis.NewDirtyTracker(redisCache)

	breaker := circuitbreaker.SnapshotStoreBreaker(func(name string, from, to circuitbreaker.State) {
		slogger.Warn("circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	})

	warmer := service.NewCacheWarmer(snapshotRepo, progressCache, breaker, log)
	ledger := service.NewBitLedger(progressCache, warmer, dirtyTracker, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = slogger
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		slogger.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	syncJob := jobs.NewSyncSnapshotsJob(
		ledger, dirtyTracker, snapshotRepo, eventBus, slogger,
		jobs.SyncSnapshotsConfig{
			MaxBatch: cfg.Scheduler.SyncMaxBatch,
			Timeout:  cfg.Scheduler.JobTimeout,
		},
	)

	sched := scheduler.New(scheduler.Config{Logger: slogger})
	if cfg.Scheduler.Enabled {
		if err := sched.Register(syncJob, scheduler.NewIntervalSchedule(cfg.Scheduler.SyncInterval)); err != nil {
			return fmt.Errorf("failed to register sync job: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		slogger.Warn("scheduler disabled; dirty pairs will not be flushed")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("progress engine worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	slogger.Info("received shutdown signal", "signal", sig.String())
	slogger.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	if cfg.Scheduler.Enabled {
		// Final flush so a clean shutdown leaves no dirty pairs behind.
		flushCtx, cancelFlush := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		if _, err := sched.RunNow(flushCtx, syncJob.Name()); err != nil {
			slogger.Error("final snapshot flush failed", "error", err)
		}
		cancelFlush()

		if err := sched.Stop(); err != nil {
			slogger.Error("failed to stop scheduler", "error", err)
		}
	}

	slogger.Info("shutdown completed successfully")
	return nil
}

// setupSlog configures the process-wide structured logger used by the
// scheduler and event bus.
func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
