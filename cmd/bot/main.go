// Package main - точка входа для CompTIA Study Hub Bot.
//
// Бот превращает подготовку к сертификациям CompTIA в игру: адаптивные
// квизы, серии занятий, достижения и Pomodoro-таймеры держат темп, а
// ежедневный дайджест напоминает сообществу, кто сегодня в ударе.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries/Event Handlers)
// - Infrastructure: хранилище прогресса, OpenAI, планировщик, event bus
// - Interface: Telegram Bot handlers, HTTP endpoints
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

	"github.com/joho/godotenv"

	// Application layer
	"github.com/studyhub/comptia-study-hub/internal/application/command"
	"github.com/studyhub/comptia-study-hub/internal/application/eventhandler"
	"github.com/studyhub/comptia-study-hub/internal/application/query"

	// Infrastructure layer
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/external/openai"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/messaging"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/persistence/memory"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/scheduler"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/scheduler/jobs"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/timers"

	// Interface layer
	httpserver "github.com/studyhub/comptia-study-hub/internal/interface/http"
	"github.com/studyhub/comptia-study-hub/internal/interface/telegram"

	// Domain and packages
	"github.com/studyhub/comptia-study-hub/config"
	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/pomodoro"
	"github.com/studyhub/comptia-study-hub/pkg/logger"
	"github.com/studyhub/comptia-study-hub/pkg/retry"
	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
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
	// .env is optional: production injects real environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting CompTIA Study Hub Bot",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	clock := timeutil.RealClock{}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ИНИЦИАЛИЗАЦИЯ ХРАНИЛИЩА ПРОГРЕССА
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing progress store...")
	store := memory.NewProgressStore(clock)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	busConfig := messaging.DefaultConfig()
	busConfig.Log = log
	bus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ ТАЙМЕРОВ POMODORO
	// ─────────────────────────────────────────────────────────────────────────
	timerManager := timers.NewManager(timers.Options{
		Durations: pomodoro.Durations{
			Study:      cfg.Study.StudyDuration,
			ShortBreak: cfg.Study.ShortBreakDuration,
			LongBreak:  cfg.Study.LongBreakDuration,
		},
		Retention: cfg.Study.SessionRetention,
		Clock:     clock,
		Bus:       bus,
		Log:       log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ ВНЕШНИХ КЛИЕНТОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing OpenAI client...")
	aiConfig := openai.DefaultClientConfig()
	aiConfig.BaseURL = cfg.OpenAI.BaseURL
	aiConfig.APIKey = cfg.OpenAI.APIKey
	aiConfig.Model = cfg.OpenAI.Model
	aiConfig.Timeout = cfg.OpenAI.RequestTimeout
	aiConfig.RateLimiter = openai.RateLimiterConfig{
		RequestsPerMinute: cfg.OpenAI.RateLimit,
		BurstSize:         cfg.OpenAI.RateLimitBurst,
	}
	aiConfig.Retry = retry.Config{
		MaxAttempts:  cfg.OpenAI.MaxRetries,
		InitialDelay: cfg.OpenAI.RetryBaseDelay,
		MaxDelay:     retry.DefaultConfig().MaxDelay,
		Multiplier:   retry.DefaultConfig().Multiplier,
		JitterFactor: retry.DefaultConfig().JitterFactor,
	}
	aiConfig.CircuitBreaker.FailureThreshold = cfg.OpenAI.CircuitBreakerThreshold
	aiConfig.CircuitBreaker.Timeout = cfg.OpenAI.CircuitBreakerTimeout
	aiConfig.Logger = log
	aiClient := openai.NewClient(aiConfig)

	if !aiClient.Enabled() {
		log.Warn("OPENAI_API_KEY is empty, quiz and flashcard generation disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	engine := learner.NewEngine(learner.EngineConfig{
		MinSample:           cfg.Study.MinSample,
		LowAccuracy:         cfg.Study.LowAccuracy,
		HighAccuracy:        cfg.Study.HighAccuracy,
		WeakSpotMinAttempts: cfg.Study.WeakSpotMinAttempts,
	})
	evaluator := learner.NewEvaluator()

	recordAnswerCmd := command.NewRecordAnswerHandler(store, evaluator, bus, clock)
	addStudyTimeCmd := command.NewAddStudyTimeHandler(store, evaluator, bus, clock)
	selectTrackCmd := command.NewSelectTrackHandler(store, bus, clock)
	startPomodoroCmd := command.NewStartPomodoroHandler(timerManager)
	stopPomodoroCmd := command.NewStopPomodoroHandler(timerManager)

	statisticsQuery := query.NewGetStatisticsHandler(store, engine)
	analysisQuery := query.NewGetAnalysisHandler(store, engine)
	leaderboardQuery := query.NewGetLeaderboardHandler(store)
	pomodoroStatusQuery := query.NewGetPomodoroStatusHandler(timerManager, clock)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. РЕГИСТРАЦИЯ EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

	sessionFinished := eventhandler.NewOnSessionFinishedHandler(addStudyTimeCmd, log)
	if err := sessionFinished.Register(bus); err != nil {
		return fmt.Errorf("failed to register session-finished handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. СОЗДАНИЕ TELEGRAM BOT
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing Telegram bot...")

	botConfig := telegram.DefaultBotConfig(cfg.Telegram.Token)
	botConfig.PollingTimeout = cfg.Telegram.PollingTimeout
	botConfig.RateLimit.RequestsPerMinute = perMinuteRate(cfg.Telegram.UserRateLimit, cfg.Telegram.UserRateLimitWindow)
	botConfig.WeakSpotLimit = cfg.Study.WeakSpotLimit
	botConfig.Logger = log
	botConfig.Clock = clock

	bot, err := telegram.NewBot(botConfig, telegram.BotDependencies{
		RecordAnswer:   recordAnswerCmd,
		SelectTrack:    selectTrackCmd,
		StartPomodoro:  startPomodoroCmd,
		StopPomodoro:   stopPomodoroCmd,
		Statistics:     statisticsQuery,
		Analysis:       analysisQuery,
		Leaderboard:    leaderboardQuery,
		PomodoroStatus: pomodoroStatusQuery,
		AI:             aiClient,
	})
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	// Push notifications when a pomodoro session completes or is cancelled.
	if err := bot.RegisterSessionNotifications(bus); err != nil {
		return fmt.Errorf("failed to register session notifications: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ИНИЦИАЛИЗАЦИЯ ПЛАНИРОВЩИКА
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		log.Info("initializing scheduler...")
		sched = scheduler.New(scheduler.Config{
			Log:        log,
			JobTimeout: cfg.Scheduler.JobTimeout,
		})

		expireJob := jobs.NewExpireSessionsJob(timerManager, log)
		if err := sched.Register(expireJob, scheduler.Every(cfg.Scheduler.ExpireSessionsInterval)); err != nil {
			return fmt.Errorf("failed to register expire-sessions job: %w", err)
		}

		digestJob := jobs.NewDailyDigestJob(store, bot.Client(), bus, log, jobs.DailyDigestConfig{
			ChatID:               cfg.Telegram.DigestChatID,
			TopN:                 cfg.Study.LeaderboardSize,
			AccuracyMinQuestions: cfg.Study.AccuracyBoardMinQuestions,
		})
		if err := sched.Register(digestJob, scheduler.DailyAt(cfg.Scheduler.DailyDigestHour, cfg.Scheduler.DailyDigestMinute)); err != nil {
			return fmt.Errorf("failed to register daily-digest job: %w", err)
		}
	} else {
		log.Info("scheduler disabled by configuration")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpServer := httpserver.NewServer(cfg.HTTP, cfg.App, httpserver.StatusSource{
		BotRunning:     bot.IsRunning,
		ActiveSessions: timerManager.ActiveCount,
		Learners: func() int {
			all, err := store.All(context.Background())
			if err != nil {
				return 0
			}
			return len(all)
		},
	}, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. ЗАПУСК СЕРВИСОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("starting services...")

	errCh := make(chan error, 2)

	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	go func() {
		if err := bot.Start(ctx); err != nil {
			errCh <- fmt.Errorf("telegram bot error: %w", err)
		}
	}()

	if sched != nil {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("CompTIA Study Hub Bot is running",
		logger.String("http_host", cfg.HTTP.Host),
		logger.Int("http_port", cfg.HTTP.Port),
		logger.Bool("scheduler", cfg.Scheduler.Enabled),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("service error", logger.Err(err))
		return err
	case <-ctx.Done():
		log.Info("root context cancelled")
	}

	log.Info("starting graceful shutdown...",
		logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error

	if sched != nil {
		log.Info("stopping scheduler...")
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler gracefully", logger.Err(err))
			shutdownErr = err
		}
	}

	log.Info("stopping Telegram bot...")
	if err := bot.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop bot gracefully", logger.Err(err))
		shutdownErr = err
	}

	log.Info("stopping HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		shutdownErr = err
	}

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors")
	} else {
		log.Info("shutdown completed successfully")
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное JSON-логирование.
func setupLogger(cfg *config.Config) *logger.Logger {
	level := logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		level = logger.LevelDebug
	}

	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  level,
	})
	logger.SetDefault(log)

	return log
}

// perMinuteRate нормализует лимит "N запросов за окно W" к запросам в минуту.
func perMinuteRate(limit int, window time.Duration) int {
	if limit <= 0 || window <= 0 {
		return 0
	}
	rate := int(float64(limit) * float64(time.Minute) / float64(window))
	if rate < 1 {
		rate = 1
	}
	return rate
}
