// Package main - точка входа HTTP сервера StressSense.
//
// Сервер принимает снимки комнаты от IoT датчика и данные экранного
// времени от телефонов, оценивает уровень стресса нечёткой моделью,
// хранит историю оценок и отдаёт данные для дашборда.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stresssense/stress-sense/config"
	"github.com/stresssense/stress-sense/internal/application/command"
	"github.com/stresssense/stress-sense/internal/application/query"
	"github.com/stresssense/stress-sense/internal/domain/reading"
	"github.com/stresssense/stress-sense/internal/infrastructure/memo"
	"github.com/stresssense/stress-sense/internal/infrastructure/persistence/memory"
	"github.com/stresssense/stress-sense/internal/infrastructure/persistence/postgres"
	"github.com/stresssense/stress-sense/internal/infrastructure/persistence/redis"
	httpserver "github.com/stresssense/stress-sense/internal/interface/http"
	"github.com/stresssense/stress-sense/internal/interface/http/handlers"
	"github.com/stresssense/stress-sense/pkg/logger"
	"github.com/stresssense/stress-sense/pkg/retry"
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
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Level:   cfg.Observability.LogLevel,
		Format:  cfg.Observability.LogFormat,
		Debug:   cfg.App.Debug,
		Service: cfg.App.Name,
	})
	slog.SetDefault(log)
	log.Info("starting StressSense server",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. МОДЕЛЬ СТРЕССА
	// Неверный файл переопределения останавливает запуск.
	// ─────────────────────────────────────────────────────────────────────────
	model, err := config.LoadModel(cfg.Model.File)
	if err != nil {
		return fmt.Errorf("failed to load stress model: %w", err)
	}
	engine, err := memo.New(model, cfg.Model.CacheSize)
	if err != nil {
		return fmt.Errorf("failed to create result cache: %w", err)
	}
	log.Info("stress model loaded",
		"file", cfg.Model.File,
		"rules", model.RuleCount(),
		"cache_size", cfg.Model.CacheSize,
	)

	checker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	startup := retry.StartupRetrier(retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		log.Warn("dependency not ready, retrying", "attempt", attempt, "delay", delay.String(), logger.Err(err))
	}))

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ИСТОРИЯ ОЦЕНОК (PostgreSQL или память)
	// ─────────────────────────────────────────────────────────────────────────
	var readings reading.Repository
	if cfg.Database.Enabled() {
		conn, err := connectDatabase(ctx, cfg.Database, startup)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database connection...")
			conn.Close()
		}()

		if cfg.Database.AutoMigrate {
			applied, err := postgres.NewMigrator(conn).Migrate(ctx)
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("database schema is up to date", "applied", applied)
		}

		readings = postgres.NewReadingRepository(conn)
		checker.AddCheck("database", handlers.NewPingCheck(conn))
		log.Info("database connection established")
	} else {
		readings = memory.NewReadingRepository()
		log.Warn("DATABASE_URL not set, reading history is kept in memory")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ТЕКУЩЕЕ СОСТОЯНИЕ (Redis или память)
	// ─────────────────────────────────────────────────────────────────────────
	var state reading.StateStore
	if cfg.Redis.Enabled() {
		cache, err := connectRedis(ctx, cfg.Redis, startup)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing Redis connection...")
			_ = cache.Close()
		}()

		state = redis.NewStateStore(cache)
		checker.AddCheck("redis", handlers.NewPingCheck(cache))
		log.Info("Redis connection established", "host", cfg.Redis.Host, "port", cfg.Redis.Port)
	} else {
		state = memory.NewStateStore()
		log.Info("Redis disabled, live state is kept in memory")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. КОМАНДЫ, ЗАПРОСЫ И HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	var deviceAuth *handlers.DeviceKeyAuth
	if cfg.Auth.Enabled() {
		deviceAuth, err = handlers.NewDeviceKeyAuth(cfg.Auth.DeviceKeyHashes)
		if err != nil {
			return fmt.Errorf("failed to load device key hashes: %w", err)
		}
		log.Info("device key authentication enabled", "keys", len(cfg.Auth.DeviceKeyHashes))
	}

	srvCfg := httpserver.DefaultConfig()
	srvCfg.Host = cfg.HTTP.Host
	srvCfg.Port = cfg.HTTP.Port
	srvCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	srvCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	srvCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	srvCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	srvCfg.RateLimitPerMinute = cfg.HTTP.RateLimit
	srvCfg.LegacyRoutes = cfg.HTTP.LegacyRoutes
	srvCfg.Version = cfg.App.Version

	server := httpserver.NewServer(srvCfg, httpserver.Dependencies{
		RecordEnvironment: command.NewRecordEnvironmentHandler(state, log),
		AssessStress:      command.NewAssessStressHandler(engine, readings, state, log),
		GetDashboard:      query.NewGetDashboardHandler(state).InZone(cfg.Zone()),
		GetDeviceHistory:  query.NewGetDeviceHistoryHandler(readings),
		Engine:            engine,
		Readings:          readings,
		HealthChecker:     checker,
		DeviceAuth:        deviceAuth,
		Logger:            log,
	})
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("http shutdown: %w", err)
	}
	stats := engine.Stats()
	log.Info("shutdown completed successfully", "cache_hits", stats.Hits, "cache_misses", stats.Misses)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// connectDatabase открывает пул, повторяя попытки пока база поднимается.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig, r *retry.Retrier) (*postgres.Connection, error) {
	pgCfg := postgres.DefaultConfig(cfg.URL)
	pgCfg.MaxConns = int32(cfg.MaxConns)
	pgCfg.MinConns = int32(cfg.MinConns)
	pgCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime

	var conn *postgres.Connection
	err := r.Do(ctx, func(ctx context.Context) error {
		var err error
		conn, err = postgres.NewConnection(ctx, pgCfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

// connectRedis подключается к Redis с теми же повторами.
func connectRedis(ctx context.Context, cfg config.RedisConfig, r *retry.Retrier) (*redis.Cache, error) {
	rCfg := redis.DefaultConfig()
	rCfg.Host = cfg.Host
	rCfg.Port = cfg.Port
	rCfg.Password = cfg.Password
	rCfg.DB = cfg.DB
	rCfg.PoolSize = cfg.PoolSize
	rCfg.DialTimeout = cfg.DialTimeout
	rCfg.ReadTimeout = cfg.ReadTimeout
	rCfg.WriteTimeout = cfg.WriteTimeout
	rCfg.StateTTL = cfg.StateTTL

	var cache *redis.Cache
	err := r.Do(ctx, func(context.Context) error {
		var err error
		cache, err = redis.NewCache(rCfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return cache, nil
}
