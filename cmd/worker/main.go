// Package main - точка входа фонового воркера движка прогресса KanaQuest.
//
// Воркер выполняет периодические задачи:
// - Ежедневный свип просроченных серий (после границы дня UTC)
// - Пересборка лидербордов по всем периодам
// - Очистка аналитики за пределами окна ретенции
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
	"github.com/kanaquest/progress-engine/internal/domain/leaderboard"
	"github.com/kanaquest/progress-engine/internal/domain/progress"
	"github.com/kanaquest/progress-engine/internal/domain/shared"
	"github.com/kanaquest/progress-engine/internal/infrastructure/messaging"
	"github.com/kanaquest/progress-engine/internal/infrastructure/persistence/postgres"
	"github.com/kanaquest/progress-engine/internal/infrastructure/persistence/redis"
	"github.com/kanaquest/progress-engine/internal/infrastructure/scheduler"
	"github.com/kanaquest/progress-engine/internal/infrastructure/scheduler/jobs"
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
	log.Info("starting KanaQuest progress engine worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("scheduler_enabled", cfg.Scheduler.Enabled),
	)

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler is disabled, nothing to do")
		return nil
	}

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

	// Миграции идемпотентны, безопасно запускать из обоих бинарников.
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
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

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, cache invalidation disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			progressCache = redis.NewProgressCache(redisCache, cfg.Engine.CacheTTL)
			boardCache = redis.NewLeaderboardCache(redisCache, cfg.Engine.LeaderboardCacheTTL)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. РЕПОЗИТОРИИ И EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	progressRepo := postgres.NewProgressRepository(dbConn)
	masteryRepo := postgres.NewMasteryRepository(dbConn)
	streakRepo := postgres.NewStreakRepository(dbConn)
	boardRepo := postgres.NewLeaderboardRepository(dbConn)
	analyticsRepo := postgres.NewAnalyticsRepository(dbConn)

	// При включённом REDIS_EVENT_BUS_ENABLED воркер делит шину событий с API
	// сервером через Redis Pub/Sub; иначе события остаются внутри процесса.
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
	// 6. ОБРАБОТЧИКИ КОМАНД ДЛЯ ФОНОВЫХ ЗАДАЧ
	// ─────────────────────────────────────────────────────────────────────────
	clock := timeutil.SystemClock{}
	curve := progress.NewLevelCurve(progress.DefaultLevelCurveConfig())

	calcCfg := progress.DefaultCalculatorConfig()
	if cfg.Engine.XPBaseMultiplier > 0 {
		calcCfg.BaseMultiplier = cfg.Engine.XPBaseMultiplier
	}
	calculator := progress.NewCalculator(calcCfg)

	expireStreaks := command.NewExpireStreaksHandler(
		streakRepo, progressRepo, progressCache, eventBus, clock, log,
	)
	rebuildLeaderboard := command.NewRebuildLeaderboardHandler(
		progressRepo, masteryRepo, streakRepo, analyticsRepo, boardRepo, boardCache,
		leaderboard.DefaultScoreWeights(), eventBus, clock, log,
	)
	cleanupAnalytics := command.NewCleanupAnalyticsHandler(
		analyticsRepo, progressRepo, eventBus, clock, log,
	)

	// Свип публикует STREAK_BROKEN, а milestone-награды идут через AwardXP,
	// поэтому воркеру нужны те же подписчики, что и API серверу.
	awardXP := command.NewAwardXPHandler(
		progressRepo, progressCache, calculator, curve, eventBus, clock,
	)
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
	// 7. ПЛАНИРОВЩИК И ЗАДАЧИ
	// ─────────────────────────────────────────────────────────────────────────
	schedCfg := scheduler.DefaultSchedulerConfig()
	schedCfg.Logger = slogLog
	if cfg.App.Location != nil {
		schedCfg.Timezone = cfg.App.Location
	}
	sched := scheduler.NewScheduler(schedCfg)

	expireCfg := jobs.DefaultExpireStreaksConfig()
	expireCfg.Timeout = cfg.Scheduler.JobTimeout
	expireJob := jobs.NewExpireStreaksJob(expireStreaks, slogLog, expireCfg)

	sweepExpr := fmt.Sprintf("%d %d * * *", cfg.Scheduler.StreakSweepMinute, cfg.Scheduler.StreakSweepHour)
	sweepSchedule, err := scheduler.ParseCronExpression(sweepExpr)
	if err != nil {
		return fmt.Errorf("invalid streak sweep schedule %q: %w", sweepExpr, err)
	}
	if err := sched.Register(expireJob, sweepSchedule); err != nil {
		return fmt.Errorf("failed to register expire streaks job: %w", err)
	}

	rebuildCfg := jobs.DefaultRebuildLeaderboardsConfig()
	rebuildCfg.Timeout = cfg.Scheduler.JobTimeout
	rebuildJob := jobs.NewRebuildLeaderboardsJob(rebuildLeaderboard, slogLog, rebuildCfg)
	if err := sched.Register(rebuildJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RebuildLeaderboardInterval)); err != nil {
		return fmt.Errorf("failed to register rebuild leaderboards job: %w", err)
	}

	cleanupCfg := jobs.DefaultCleanupAnalyticsConfig()
	cleanupCfg.RetentionDays = cfg.Engine.AnalyticsRetentionDays
	cleanupCfg.Timeout = cfg.Scheduler.JobTimeout
	cleanupJob := jobs.NewCleanupAnalyticsJob(cleanupAnalytics, slogLog, cleanupCfg)
	if err := sched.Register(cleanupJob, scheduler.NewIntervalSchedule(cfg.Scheduler.CleanupInterval)); err != nil {
		return fmt.Errorf("failed to register cleanup analytics job: %w", err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	log.Info("worker is running",
		logger.String("streak_sweep", sweepExpr),
		logger.Duration("rebuild_interval", cfg.Scheduler.RebuildLeaderboardInterval),
		logger.Duration("cleanup_interval", cfg.Scheduler.CleanupInterval),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	log.Info("stopping scheduler...")
	if err := sched.Stop(); err != nil {
		return fmt.Errorf("scheduler stop failed: %w", err)
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
