package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/studyhub/comptia-study-hub/internal/application/command"
	"github.com/studyhub/comptia-study-hub/internal/application/query"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/external/openai"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/external/telegram"
	"github.com/studyhub/comptia-study-hub/internal/interface/telegram/handler"
	"github.com/studyhub/comptia-study-hub/internal/interface/telegram/middleware"
	"github.com/studyhub/comptia-study-hub/internal/interface/telegram/presenter"
	"github.com/studyhub/comptia-study-hub/pkg/logger"
	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// BotConfig contains configuration for the Telegram bot.
type BotConfig struct {
	// Token is the Telegram Bot API token.
	Token string

	// PollingTimeout is the long-polling timeout.
	PollingTimeout time.Duration

	// APIBaseURL overrides the Bot API endpoint. Empty means the public
	// Telegram API; tests point this at a local server.
	APIBaseURL string

	// RateLimit configures per-user command throttling.
	RateLimit middleware.RateLimitConfig

	// MaxConcurrentUpdates limits concurrent update processing.
	MaxConcurrentUpdates int

	// GracefulShutdownTimeout bounds how long Stop waits for in-flight
	// handlers.
	GracefulShutdownTimeout time.Duration

	// Logger for structured logging.
	Logger *logger.Logger

	// Clock for time-dependent rendering. Nil means wall clock.
	Clock timeutil.Clock

	// WeakSpotLimit bounds how many weak topics the analysis card lists.
	// Zero uses the query-side default.
	WeakSpotLimit int
}

// DefaultBotConfig returns sensible defaults.
func DefaultBotConfig(token string) BotConfig {
	return BotConfig{
		Token:                   token,
		PollingTimeout:          30 * time.Second,
		RateLimit:               middleware.DefaultRateLimitConfig(),
		MaxConcurrentUpdates:    50,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// BotDependencies aggregates the application layer the handlers need.
type BotDependencies struct {
	// Commands
	RecordAnswer  *command.RecordAnswerHandler
	SelectTrack   *command.SelectTrackHandler
	StartPomodoro *command.StartPomodoroHandler
	StopPomodoro  *command.StopPomodoroHandler

	// Queries
	Statistics     *query.GetStatisticsHandler
	Analysis       *query.GetAnalysisHandler
	Leaderboard    *query.GetLeaderboardHandler
	PomodoroStatus *query.GetPomodoroStatusHandler

	// AI content collaborator
	AI *openai.Client
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════════

// Bot is the Telegram bot controller: client, router and middleware.
type Bot struct {
	config BotConfig
	client *telegram.Client
	router *Router
	log    *logger.Logger

	rateLimiter *middleware.RateLimiter
	recovery    *middleware.Recovery

	running   bool
	runningMu sync.RWMutex
	updateSem chan struct{}
	wg        sync.WaitGroup
}

// NewBot creates the bot with all handlers registered.
func NewBot(config BotConfig, deps BotDependencies) (*Bot, error) {
	if config.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.MaxConcurrentUpdates <= 0 {
		config.MaxConcurrentUpdates = DefaultBotConfig(config.Token).MaxConcurrentUpdates
	}
	if config.GracefulShutdownTimeout <= 0 {
		config.GracefulShutdownTimeout = DefaultBotConfig(config.Token).GracefulShutdownTimeout
	}

	clientConfig := telegram.DefaultClientConfig(config.Token)
	if config.PollingTimeout > 0 {
		clientConfig.PollingTimeout = config.PollingTimeout
	}
	if config.APIBaseURL != "" {
		clientConfig.BaseURL = config.APIBaseURL
	}
	clientConfig.Logger = config.Logger
	client := telegram.NewClient(clientConfig)

	cards := presenter.NewCardPresenter()

	basics := handler.NewBasicsHandler(config.Clock)
	track := handler.NewTrackHandler(deps.SelectTrack)
	quiz := handler.NewQuizHandler(deps.Statistics, deps.RecordAnswer, deps.AI, cards)
	content := handler.NewContentHandler(deps.Statistics, deps.AI, cards)
	progress := handler.NewProgressHandler(
		deps.Statistics, deps.Analysis, deps.Leaderboard, deps.AI, cards, config.Logger, config.WeakSpotLimit)
	pomo := handler.NewPomodoroHandler(
		deps.StartPomodoro, deps.StopPomodoro, deps.PomodoroStatus, cards, config.Clock)

	router := NewRouter(RouterConfig{Logger: config.Logger})

	router.RegisterCommand("start", basics.Start)
	router.RegisterCommand("help", basics.Help)
	router.RegisterCommand("about", basics.About)
	router.RegisterCommand("quote", basics.Quote)
	router.RegisterCommand("certs", track.Certs)
	router.RegisterCommand("selectcert", track.SelectCert)
	router.RegisterCommand("quiz", quiz.Ask)
	router.RegisterCommand("stats", progress.Stats)
	router.RegisterCommand("analysis", progress.Analysis)
	router.RegisterCommand("leaderboard", progress.Leaderboard)
	router.RegisterCommand("flashcards", content.Flashcards)
	router.RegisterCommand("explain", content.Explain)
	router.RegisterCommand("pomodoro", pomo.Pomodoro)
	router.RegisterCommand("stoppomodoro", pomo.StopPomodoro)

	router.RegisterCallbackPrefix("quiz:", quiz.Answer)
	router.RegisterCallbackPrefix("track:", track.SelectFromButton)
	router.RegisterCallbackPrefix("pomodoro:", pomo.Callback)

	return &Bot{
		config: config,
		client: client,
		router: router,
		log:    config.Logger.With(logger.Component("bot")),
		rateLimiter: middleware.NewRateLimiter(config.RateLimit),
		recovery: middleware.NewRecovery(middleware.RecoveryConfig{
			Logger: config.Logger,
		}),
		updateSem: make(chan struct{}, config.MaxConcurrentUpdates),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start verifies the token and blocks on the long-polling loop until
// the context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.runningMu.Lock()
	if b.running {
		b.runningMu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	b.runningMu.Unlock()

	me, err := b.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verify bot token: %w", err)
	}
	b.log.Info("bot verified",
		logger.Int64("id", me.ID),
		logger.String("username", me.Username),
	)

	return b.client.StartPolling(ctx, b.handleUpdate)
}

// Stop waits for in-flight handlers, bounded by the shutdown timeout.
func (b *Bot) Stop(ctx context.Context) error {
	b.runningMu.Lock()
	if !b.running {
		b.runningMu.Unlock()
		return nil
	}
	b.running = false
	b.runningMu.Unlock()

	b.log.Info("stopping telegram bot")
	b.rateLimiter.Stop()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(b.config.GracefulShutdownTimeout):
		b.log.Warn("graceful shutdown timeout exceeded")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the bot is currently polling.
func (b *Bot) IsRunning() bool {
	b.runningMu.RLock()
	defer b.runningMu.RUnlock()
	return b.running
}

// Client exposes the Bot API client for the scheduler's digest job.
func (b *Bot) Client() *telegram.Client {
	return b.client
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION NOTIFICATIONS
// ══════════════════════════════════════════════════════════════════════════════

// RegisterSessionNotifications subscribes the bot to completed pomodoro
// sessions so learners get pinged when the timer runs out. User IDs are
// private-chat IDs, so the event's user maps straight to a chat.
func (b *Bot) RegisterSessionNotifications(subscriber shared.EventSubscriber) error {
	return subscriber.Subscribe(shared.EventSessionCompleted, func(event shared.Event) error {
		completed, ok := event.(shared.SessionCompletedEvent)
		if !ok {
			return nil
		}

		chatID, err := strconv.ParseInt(completed.UserID, 10, 64)
		if err != nil {
			return nil
		}

		note := presenter.SessionFinishedNote(completed.SessionType, completed.DurationMinutes)
		notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := b.client.SendHTML(notifyCtx, chatID, note); err != nil {
			if telegram.IsUserBlocked(err) {
				return nil
			}
			b.log.Warn("session notification failed",
				logger.String("user_id", completed.UserID),
				logger.Err(err),
			)
		}
		return nil
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE HANDLING
// ══════════════════════════════════════════════════════════════════════════════

// handleUpdate processes one update from the polling loop.
func (b *Bot) handleUpdate(ctx context.Context, update *telegram.Update) error {
	select {
	case b.updateSem <- struct{}{}:
		defer func() { <-b.updateSem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	b.wg.Add(1)
	defer b.wg.Done()

	switch {
	case update.Message != nil:
		return b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		return b.handleCallbackQuery(ctx, update.CallbackQuery)
	default:
		return nil
	}
}

// handleMessage processes an incoming message. Non-command text is
// ignored; the whole surface is command driven.
func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) error {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return nil
	}

	cmd := telegram.ExtractCommand(msg)
	if cmd == "" {
		return nil
	}

	telegramID := msg.From.ID
	chatID := msg.Chat.ID

	limit := b.rateLimiter.Check(telegramID)
	if !limit.Allowed {
		_, err := b.client.SendHTML(ctx, chatID, limit.ResponseMessage)
		return err
	}

	req := handler.Request{
		UserID:    strconv.FormatInt(telegramID, 10),
		ChatID:    chatID,
		MessageID: msg.MessageID,
		Args:      telegram.ExtractCommandArgs(msg),
	}

	result, err := b.recovery.Run(telegramID, "/"+cmd, func() error {
		return b.router.HandleCommand(ctx, b.client, cmd, req)
	})
	if result.Recovered {
		_, sendErr := b.client.SendHTML(ctx, chatID, result.UserMessage)
		return sendErr
	}
	if err != nil {
		b.log.Error("command failed",
			logger.String("command", cmd),
			logger.Int64("telegram_id", telegramID),
			logger.Err(err),
		)
		_, sendErr := b.client.SendHTML(ctx, chatID,
			"😔 <b>Something went wrong.</b>\n\nPlease try again in a minute.")
		return sendErr
	}
	return nil
}

// handleCallbackQuery processes an inline keyboard press.
func (b *Bot) handleCallbackQuery(ctx context.Context, cq *telegram.CallbackQuery) error {
	if cq == nil || cq.From == nil {
		return nil
	}

	// Clear the button's loading state regardless of the outcome.
	defer func() {
		_ = b.client.AnswerCallbackQuery(ctx, cq.ID, "")
	}()

	telegramID := cq.From.ID
	var chatID, messageID int64
	if cq.Message != nil && cq.Message.Chat != nil {
		chatID = cq.Message.Chat.ID
		messageID = cq.Message.MessageID
	}

	limit := b.rateLimiter.Check(telegramID)
	if !limit.Allowed {
		return b.client.AnswerCallbackQuery(ctx, cq.ID, "⏳ Slow down!")
	}

	req := handler.CallbackRequest{
		UserID:    strconv.FormatInt(telegramID, 10),
		ChatID:    chatID,
		MessageID: messageID,
		Data:      cq.Data,
	}

	result, err := b.recovery.Run(telegramID, "callback:"+cq.Data, func() error {
		return b.router.HandleCallback(ctx, b.client, req)
	})
	if result.Recovered && chatID != 0 {
		_, sendErr := b.client.SendHTML(ctx, chatID, result.UserMessage)
		return sendErr
	}
	if err != nil {
		b.log.Error("callback failed",
			logger.String("data", cq.Data),
			logger.Int64("telegram_id", telegramID),
			logger.Err(err),
		)
	}
	return nil
}
