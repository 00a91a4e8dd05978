// Package main - точка входа HTTP-сервера 42Connect.
//
// Сервер отвечает за:
// - OAuth-вход через 42 Intra и cookie-сессии
// - Dashboard студента (завершённые и текущие проекты)
// - Подбор помощников по активным проектам
// - Vibe-матчинг по описанию стиля работы
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
	"github.com/Grihladin/42Connect/internal/application/query"
	"github.com/Grihladin/42Connect/internal/infrastructure/external/intra"
	"github.com/Grihladin/42Connect/internal/infrastructure/external/similarity"
	"github.com/Grihladin/42Connect/internal/infrastructure/persistence/postgres"
	"github.com/Grihladin/42Connect/internal/infrastructure/persistence/redis"
	connecthttp "github.com/Grihladin/42Connect/internal/interface/http"
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
	// 1. КОНФИГУРАЦИЯ
	// ─────────────────────────────────────────────────────────────────────────
	// .env нужен только для локальной разработки, в проде переменные
	// приходят из окружения.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	slogger := setupSlog(cfg)

	log.Info("starting 42Connect server",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL + МИГРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database ready")

	studentRepo := postgres.NewStudentRepository(dbConn)
	projectRepo := postgres.NewProjectRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	// Без Redis сервер работает: dashboard собирается на каждый запрос,
	// sync-блокировка остаётся только process-local.
	var (
		redisCache  *redis.Cache
		dashCache   *redis.DashboardCache
		syncLock    *redis.SyncLock
		invalidator command.DashboardInvalidator
		queryCache  query.DashboardCache
		locker      command.SyncLocker
	)

	if !cfg.Redis.Disabled {
		redisCache, err = redis.NewCache(redisConfigFrom(cfg))
		if err != nil {
			log.Warn("redis unavailable, running without cache", logger.Err(err))
		} else {
			defer redisCache.Close()
			dashCache = redis.NewDashboardCache(redisCache, cfg.Redis.DashboardTTL)
			syncLock = redis.NewSyncLock(redisCache, 0)
			invalidator = dashCache
			queryCache = dashCache
			locker = syncLock
			log.Info("redis ready")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ВНЕШНИЕ КЛИЕНТЫ
	// ─────────────────────────────────────────────────────────────────────────
	intraConfig := intra.DefaultClientConfig(cfg.Intra.BaseURL, cfg.Intra.ClientID, cfg.Intra.ClientSecret)
	intraConfig.Timeout = cfg.Intra.RequestTimeout
	intraConfig.RateLimit = cfg.Intra.RateLimit
	intraConfig.RateLimitBurst = cfg.Intra.RateLimitBurst
	intraConfig.MaxRetries = cfg.Intra.MaxRetries
	intraConfig.RetryBaseDelay = cfg.Intra.RetryBaseDelay
	intraConfig.RetryMaxDelay = cfg.Intra.RetryMaxDelay
	intraConfig.PageSize = cfg.Intra.PageSize
	intraConfig.Logger = slogger
	intraConfig.Debug = cfg.App.Debug

	intraClient := intra.NewClient(intraConfig)
	gateway := intra.NewGateway(intraClient)

	// Внешний similarity-сервис подключается только при включённом флаге,
	// локальный fuzzy-фолбэк доступен всегда.
	var primary similarity.Provider
	if cfg.Similarity.BaseURL != "" &&
		cfg.Features.IsEnabled(config.FeatureExperimentalSimilarity, nil) {
		simConfig := similarity.DefaultClientConfig(cfg.Similarity.BaseURL)
		simConfig.Timeout = cfg.Similarity.RequestTimeout
		simConfig.MaxRetries = cfg.Similarity.MaxRetries
		simConfig.Logger = slogger
		primary = similarity.NewClient(simConfig)
	}
	scorer := similarity.NewScorer(primary, similarity.NewLocal(), slogger)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ОБРАБОТЧИКИ КОМАНД И ЗАПРОСОВ
	// ─────────────────────────────────────────────────────────────────────────
	syncHandler := command.NewSyncStudentHandler(
		studentRepo, projectRepo, gateway, invalidator, locker, log,
		command.DefaultSyncStudentHandlerConfig(),
	)
	prefsHandler := command.NewUpdatePreferencesHandler(studentRepo, invalidator, log)

	dashboardHandler := query.NewGetDashboardHandler(studentRepo, projectRepo, queryCache, log)
	helpersHandler := query.NewFindHelpersHandler(studentRepo, projectRepo, projectRepo, log)
	vibesHandler := query.NewMatchVibesHandler(studentRepo, projectRepo, scorer, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	sessions, err := connecthttp.NewSessionStore(connecthttp.SessionConfig{
		Secret:     cfg.Session.Secret,
		CookieName: cfg.Session.CookieName,
		MaxAge:     cfg.Session.MaxAge,
		Secure:     cfg.Session.Secure,
	})
	if err != nil {
		return fmt.Errorf("failed to build session store: %w", err)
	}

	oauth := connecthttp.NewOAuthFlow(connecthttp.OAuthConfig{
		BaseURL:      cfg.Intra.BaseURL,
		ClientID:     cfg.Intra.ClientID,
		ClientSecret: cfg.Intra.ClientSecret,
		RedirectURL:  cfg.Intra.RedirectURL,
	})

	probes := map[string]func(ctx context.Context) error{
		"postgres": dbConn.Ping,
	}
	if redisCache != nil {
		probes["redis"] = redisCache.Ping
	}

	serverConfig := connecthttp.DefaultConfig()
	serverConfig.Host = cfg.HTTP.Host
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	serverConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	serverConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	serverConfig.AllowedOrigin = cfg.HTTP.AllowedOrigin

	server := connecthttp.NewServer(serverConfig, connecthttp.Dependencies{
		GetDashboard:      dashboardHandler,
		FindHelpers:       helpersHandler,
		MatchVibes:        vibesHandler,
		SyncStudent:       syncHandler,
		UpdatePreferences: prefsHandler,
		Sessions:          sessions,
		OAuth:             oauth,
		Profile:           intraClient,
		Features:          cfg.Features,
		HealthProbes:      probes,
		Logger:            log,
	})

	errCh := server.StartAsync()
	log.Info("42Connect server is running", logger.String("address", serverConfig.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	log.Info("shutdown completed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает основной структурированный логгер приложения.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.AddCaller = cfg.App.Debug
	return logger.New(opts)
}

// setupSlog настраивает slog для инфраструктурных клиентов.
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
