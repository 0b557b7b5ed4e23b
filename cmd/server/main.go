// Package main - точка входа HTTP API сервера движка прогресса KanaQuest.
//
// Сервер обслуживает:
// - Запросы прогресса, мастерства и серий пользователя
// - Лидерборды с обогащением профилями из directory-сервиса
// - Запись попыток практики (одиночных и батчами через webhook)
// - Административные операции (сброс мастерства, пересборка лидерборда)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kanaquest/progress-engine/config"
	"github.com/kanaquest/progress-engine/internal/application/command"
	"github.com/kanaquest/progress-engine/internal/application/eventhandler"
	"github.com/kanaquest/progress-engine/internal/application/query"
	"github.com/kanaquest/progress-engine/internal/domain/leaderboard"
	"github.com/kanaquest/progress-engine/internal/domain/mastery"
	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/infrastructure/external/directory"
	"github.com/kanaquest/progress-engine/internal/infrastructure/messaging"
	"github.com/kanaquest/progress-engine/internal/infrastructure/persistence/postgres"
	"github.com/kanaquest/progress-engine/internal/infrastructure/persistence/redis"
	httpapi "github.com/kanaquest/progress-engine/internal/interface/http"
	"github.com/kanaquest/progress-engine/internal/interface/http/handlers"
	"github.com/kanaquest/progress-engine/pkg/logger"
	"github.com/kanaquest/progress-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

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
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log, slogLog := setupLoggers(cfg)
	log.Info("starting KanaQuest progress engine API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var progressCache progress.Cache
	var boardCache leaderboard.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		if cfg.Redis.PoolSize > 0 {
			redisCfg.PoolSize = cfg.Redis.PoolSize
		}

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			progressCache = redis.NewProgressCache(redisCache, cfg.Engine.CacheTTL)
			boardCache = redis.NewLeaderboardCache(redisCache, cfg.Engine.LeaderboardCacheTTL)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	progressRepo := postgres.NewProgressRepository(dbConn)
	masteryRepo := postgres.NewMasteryRepository(dbConn)
	streakRepo := postgres.NewStreakRepository(dbConn)
	boardRepo := postgres.NewLeaderboardRepository(dbConn)
	analyticsRepo := postgres.NewAnalyticsRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// При включённом REDIS_EVENT_BUS_ENABLED события уходят в Redis Pub/Sub
	// и доходят до остальных инстансов; иначе шина остаётся локальной.
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = slogLog

	var eventBus shared.EventBus
	if redisCache != nil && cfg.Redis.EventBusEnabled {
		eventBus, err = messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewPubSub(redisCache.Client()),
			ChannelName:    cfg.Redis.EventBusChannel,
			LocalBusConfig: busCfg,
			Logger:         slogLog,
		})
		if err != nil {
			log.Warn("failed to start Redis event bus, falling back to in-memory", logger.Err(err))
			eventBus = messaging.NewInMemoryEventBus(busCfg)
		} else {
			log.Info("Redis event bus enabled", logger.String("channel", cfg.Redis.EventBusChannel))
		}
	} else {
		eventBus = messaging.NewInMemoryEventBus(busCfg)
	}
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ДОМЕННЫЕ СЕРВИСЫ И ОБРАБОТЧИКИ КОМАНД
	// ─────────────────────────────────────────────────────────────────────────
	clock := timeutil.SystemClock{}
	curve := progress.NewLevelCurve(progress.DefaultLevelCurveConfig())

	calcCfg := progress.DefaultCalculatorConfig()
	if cfg.Engine.XPBaseMultiplier > 0 {
		calcCfg.BaseMultiplier = cfg.Engine.XPBaseMultiplier
	}
	calculator := progress.NewCalculator(calcCfg)

	recordPractice := command.NewRecordPracticeHandler(
		masteryRepo, progressRepo, progressCache, streakRepo, analyticsRepo,
		calculator, curve, eventBus, clock,
	)
	awardXP := command.NewAwardXPHandler(
		progressRepo, progressCache, calculator, curve, eventBus, clock,
	)
	freezeStreak := command.NewFreezeStreakHandler(
		streakRepo, eventBus, clock,
		command.FreezeStreakHandlerConfig{FreezeLimit: cfg.Engine.StreakFreezeLimit},
	)
	resetMastery := command.NewResetMasteryHandler(masteryRepo, eventBus, clock)
	rebuildLeaderboard := command.NewRebuildLeaderboardHandler(
		progressRepo, masteryRepo, streakRepo, analyticsRepo, boardRepo, boardCache,
		leaderboard.DefaultScoreWeights(), eventBus, clock, log,
	)
	cleanupAnalytics := command.NewCleanupAnalyticsHandler(analyticsRepo, progressRepo, eventBus, clock, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ПОДПИСКА ОБРАБОТЧИКОВ СОБЫТИЙ
	// Обработчики регистрируются через диспетчер: ретраи с бэкоффом и
	// dead letter queue для событий, которые так и не удалось обработать.
	// ─────────────────────────────────────────────────────────────────────────
	dispatcher := messaging.NewDispatcherBuilder(eventBus).
		WithLogger(slogLog).
		Build()
	dispatcher.Use(messaging.RecoveryMiddleware(slogLog))
	dispatcher.Use(messaging.LoggingMiddleware(slogLog))

	onMilestone := eventhandler.NewOnStreakMilestoneHandler(awardXP, slogLog)
	if err := dispatcher.Register(onMilestone.EventType(), "streak_milestone_award", onMilestone.Handle); err != nil {
		return fmt.Errorf("failed to register milestone handler: %w", err)
	}
	onLevelUp := eventhandler.NewOnLevelUpHandler(analyticsRepo, clock, slogLog)
	if err := dispatcher.Register(onLevelUp.EventType(), "level_up_analytics", onLevelUp.Handle); err != nil {
		return fmt.Errorf("failed to register level-up handler: %w", err)
	}
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start event dispatcher: %w", err)
	}
	defer func() { _ = dispatcher.Stop() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ОБРАБОТЧИКИ ЗАПРОСОВ (READ SIDE)
	// ─────────────────────────────────────────────────────────────────────────
	getProgress := query.NewGetProgressHandler(progressRepo, progressCache)
	getXPHistory := query.NewGetXPHistoryHandler(progressRepo)
	getReviewQueue := query.NewGetReviewQueueHandler(masteryRepo, clock)
	getWeakAreas := query.NewGetWeakAreasHandler(masteryRepo)
	getMasteryStats := query.NewGetMasteryStatsHandler(masteryRepo, clock)
	getStreaks := query.NewGetStreaksHandler(streakRepo)
	getUserRank := query.NewGetUserRankHandler(boardRepo, boardCache)
	getLeaderboard := query.NewGetLeaderboardHandler(boardRepo, boardCache)

	// Выключенные фичи оставляют зависимость nil, HTTP слой ответит 501
	var getInsights *query.GetInsightsHandler
	if cfg.Features.IsEnabled(config.FeatureAnalyticsInsights, nil) {
		getInsights = query.NewGetInsightsHandler(analyticsRepo, masteryRepo, progressRepo, clock)
	} else {
		log.Warn("analytics insights are disabled by feature flag")
	}
	if !cfg.Features.IsEnabled(config.FeatureStreakFreezes, nil) {
		log.Warn("streak freezes are disabled by feature flag")
		freezeStreak = nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. DIRECTORY-СЕРВИС (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var directoryClient *directory.CachedClient
	if !cfg.Directory.Disabled && cfg.Directory.BaseURL != "" {
		log.Info("initializing directory client...", logger.String("base_url", cfg.Directory.BaseURL))
		dirCfg := directory.DefaultClientConfig(cfg.Directory.BaseURL)
		dirCfg.APIKey = cfg.Directory.APIKey
		dirCfg.Timeout = cfg.Directory.RequestTimeout
		dirCfg.Logger = slogLog
		if cfg.Directory.RateLimit > 0 {
			dirCfg.RateLimiterConfig.RequestsPerSecond = float64(cfg.Directory.RateLimit) / 60.0
		}
		if cfg.Directory.RateLimitBurst > 0 {
			dirCfg.RateLimiterConfig.BurstSize = cfg.Directory.RateLimitBurst
		}
		directoryClient = directory.NewCachedClient(
			directory.NewClient(dirCfg), redisCache, cfg.Directory.CacheTTL, slogLog,
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}
	if directoryClient != nil {
		healthChecker.AddCheck("directory", handlers.NewDirectoryCheck(directoryClient))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 13. WEBHOOK ПРИЁМА ПРАКТИКИ
	// ─────────────────────────────────────────────────────────────────────────
	webhookHandler := handlers.NewPracticeWebhookHandler(func(ctx context.Context, e handlers.PracticeEventDTO) error {
		_, err := recordPractice.Handle(ctx, command.RecordPracticeCommand{
			UserID:           e.UserID,
			CharacterID:      e.CharacterID,
			CharacterType:    mastery.CharacterType(e.CharacterType),
			Accuracy:         e.Accuracy,
			TimeSpentSeconds: e.TimeSpentSeconds,
			IsPerfect:        e.IsPerfect,
			StrokesCorrect:   e.StrokesCorrect,
			StrokesTotal:     e.StrokesTotal,
			Timestamp:        e.Timestamp,
		})
		return err
	})
	webhookHandler.SetErrorHandler(func(err error) {
		log.Warn("webhook practice event failed", logger.Err(err))
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 14. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.WebhookSecret = cfg.HTTP.WebhookSecret
	if cfg.HTTP.AdminAPIKeyHash != "" {
		serverCfg.AdminKeyHashes = []string{cfg.HTTP.AdminAPIKeyHash}
	}

	server := httpapi.NewServer(serverCfg, httpapi.Dependencies{
		GetProgressHandler:     getProgress,
		GetXPHistoryHandler:    getXPHistory,
		GetReviewQueueHandler:  getReviewQueue,
		GetWeakAreasHandler:    getWeakAreas,
		GetMasteryStatsHandler: getMasteryStats,
		GetStreaksHandler:      getStreaks,
		GetUserRankHandler:     getUserRank,
		GetLeaderboardHandler:  getLeaderboard,
		GetInsightsHandler:     getInsights,

		RecordPracticeHandler:     recordPractice,
		AwardXPHandler:            awardXP,
		FreezeStreakHandler:       freezeStreak,
		ResetMasteryHandler:       resetMastery,
		RebuildLeaderboardHandler: rebuildLeaderboard,
		CleanupAnalyticsHandler:   cleanupAnalytics,

		Directory:      directoryClient,
		Features:       cfg.Features,
		Logger:         log,
		HealthChecker:  healthChecker,
		WebhookHandler: webhookHandler,
	})

	errCh := server.StartAsync()
	log.Info("KanaQuest progress engine API is running", logger.String("address", server.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 15. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLoggers настраивает структурированное логирование: собственный логгер
// приложения и slog для инфраструктурных компонентов.
func setupLoggers(cfg *config.Config) (*logger.Logger, *slog.Logger) {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)

	log := logger.New(opts)

	slogOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		slogOpts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.App.Environment == config.EnvProduction {
		handler = slog.NewJSONHandler(os.Stdout, slogOpts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, slogOpts)
	}

	slogLog := slog.New(handler)
	slog.SetDefault(slogLog)

	return log, slogLog
}
