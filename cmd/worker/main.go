// Package main - точка входа фонового Worker-процесса 42Connect.
//
// Worker отвечает за периодические задачи:
// - Ресинхронизация проектов всех известных студентов с Intra API
// - Очистка устаревших записей dashboard-кэша
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Grihladin/42Connect/config"
	"github.com/Grihladin/42Connect/internal/application/command"
	"github.com/Grihladin/42Connect/internal/infrastructure/external/intra"
	"github.com/Grihladin/42Connect/internal/infrastructure/persistence/postgres"
	"github.com/Grihladin/42Connect/internal/infrastructure/persistence/redis"
	"github.com/Grihladin/42Connect/internal/infrastructure/scheduler"
	"github.com/Grihladin/42Connect/internal/infrastructure/scheduler/jobs"
	"github.com/Grihladin/42Connect/pkg/logger"

	"github.com/joho/godotenv"
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
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slogger := setupSlog(cfg)
	log := setupLogger(cfg)

	slogger.Info("starting 42Connect worker",
		"env", string(cfg.App.Environment),
		"resync_interval", cfg.Scheduler.ResyncInterval.String(),
	)

	if !cfg.Scheduler.Enabled {
		slogger.Info("scheduler disabled, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. POSTGRESQL + МИГРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	// Worker тоже гоняет миграции: при деплое он может стартовать раньше
	// сервера.
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	studentRepo := postgres.NewStudentRepository(dbConn)
	projectRepo := postgres.NewProjectRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache  *redis.Cache
		dashCache   *redis.DashboardCache
		invalidator command.DashboardInvalidator
		locker      command.SyncLocker
	)

	if !cfg.Redis.Disabled {
		redisCache, err = redis.NewCache(redisConfigFrom(cfg))
		if err != nil {
			slogger.Warn("redis unavailable, running without cache", "error", err)
		} else {
			defer redisCache.Close()
			dashCache = redis.NewDashboardCache(redisCache, cfg.Redis.DashboardTTL)
			invalidator = dashCache
			locker = redis.NewSyncLock(redisCache, 0)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. INTRA КЛИЕНТ И ОБРАБОТЧИКИ
	// ─────────────────────────────────────────────────────────────────────────
	intraConfig := intra.DefaultClientConfig(cfg.Intra.BaseURL, cfg.Intra.ClientID, cfg.Intra.ClientSecret)
	intraConfig.Timeout = cfg.Intra.RequestTimeout
	intraConfig.RateLimit = cfg.Intra.RateLimit
	intraConfig.RateLimitBurst = cfg.Intra.RateLimitBurst
	intraConfig.MaxRetries = cfg.Intra.MaxRetries
	intraConfig.PageSize = cfg.Intra.PageSize
	intraConfig.Logger = slogger

	gateway := intra.NewGateway(intra.NewClient(intraConfig))

	syncHandler := command.NewSyncStudentHandler(
		studentRepo, projectRepo, gateway, invalidator, locker, log,
		command.DefaultSyncStudentHandlerConfig(),
	)
	bulkHandler := command.NewSyncAllStudentsHandler(studentRepo, syncHandler, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:     slogger,
		JobTimeout: cfg.Scheduler.JobTimeout,
	})

	resyncJob := jobs.NewResyncStudentsJob(bulkHandler, cfg.Features, slogger, jobs.ResyncStudentsConfig{
		Concurrency: cfg.Scheduler.MaxConcurrentJobs,
	})
	// Джиттер размазывает обращения к Intra между несколькими инстансами.
	resyncSchedule := scheduler.EveryWithJitter(cfg.Scheduler.ResyncInterval, cfg.Scheduler.ResyncInterval/10)
	if err := sched.Register(resyncJob, resyncSchedule); err != nil {
		return fmt.Errorf("failed to register resync job: %w", err)
	}

	if dashCache != nil {
		cleanupJob := jobs.NewCacheCleanupJob(dashCache, slogger)
		if err := sched.Register(cleanupJob, scheduler.Every(cfg.Scheduler.CleanupInterval)); err != nil {
			return fmt.Errorf("failed to register cleanup job: %w", err)
		}
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	slogger.Info("42Connect worker is running")

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	slogger.Info("received shutdown signal", "signal", sig.String())

	if err := sched.Stop(); err != nil {
		return fmt.Errorf("scheduler stop failed: %w", err)
	}

	snap := sched.GetMetrics().Snapshot()
	slogger.Info("shutdown completed",
		"executions", snap.TotalExecutions,
		"failures", snap.TotalFailures,
	)

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает логгер для прикладных обработчиков.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.AddCaller = cfg.App.Debug
	return logger.New(opts)
}

// setupSlog настраивает slog для инфраструктуры.
func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// redisConfigFrom переносит настройки приложения в конфиг Redis-клиента.
func redisConfigFrom(cfg *config.Config) redis.Config {
	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	rc.PoolSize = cfg.Redis.PoolSize
	rc.MinIdleConns = cfg.Redis.MinIdleConns
	rc.DialTimeout = cfg.Redis.DialTimeout
	rc.ReadTimeout = cfg.Redis.ReadTimeout
	rc.WriteTimeout = cfg.Redis.WriteTimeout
	return rc
}
