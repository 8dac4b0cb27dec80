package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration.
type Config struct {
	// Application
	App AppConfig

	// Telegram Bot
	Telegram TelegramConfig

	// OpenAI-compatible content API
	OpenAI OpenAIConfig

	// Study core: adaptive thresholds, pomodoro durations
	Study StudyConfig

	// Scheduler
	Scheduler SchedulerConfig

	// HTTP keep-alive server
	HTTP HTTPConfig

	// Observability
	Observability ObservabilityConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string
	Environment Environment
	Debug       bool
	Version     string

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration
}

// TelegramConfig holds Telegram Bot settings.
type TelegramConfig struct {
	// Bot token from @BotFather
	Token string

	// Long polling timeout
	PollingTimeout time.Duration

	// Per-user rate limiting
	UserRateLimit       int           // commands per minute per user
	UserRateLimitWindow time.Duration // sliding window size

	// Chat for scheduled digests (0 = disabled)
	DigestChatID int64
}

// OpenAIConfig holds the AI content API settings.
type OpenAIConfig struct {
	// BaseURL of an OpenAI-compatible API
	BaseURL string

	// APIKey for authentication
	APIKey string

	// Model name for chat completions
	Model string

	// Rate limiting (protect from being blocked)
	RateLimit      int // requests per minute
	RateLimitBurst int // burst size
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration

	// Circuit breaker settings
	CircuitBreakerThreshold int           // failures before opening
	CircuitBreakerTimeout   time.Duration // time before half-open
}

// StudyConfig holds the study-core policy constants.
type StudyConfig struct {
	// Adaptive difficulty: minimum answered questions before adapting
	MinSample int

	// Accuracy band boundaries
	LowAccuracy  float64
	HighAccuracy float64

	// Weak-spot analysis
	WeakSpotMinAttempts int
	WeakSpotLimit       int

	// Pomodoro durations
	StudyDuration      time.Duration
	ShortBreakDuration time.Duration
	LongBreakDuration  time.Duration

	// How long terminal sessions stay queryable before cleanup
	SessionRetention time.Duration

	// Leaderboard size
	LeaderboardSize int

	// Minimum questions to appear on the accuracy leaderboard
	AccuracyBoardMinQuestions int
}

// SchedulerConfig holds background job settings.
type SchedulerConfig struct {
	// Enable/disable scheduler
	Enabled bool

	// Job intervals
	ExpireSessionsInterval time.Duration // pomodoro expiry sweep

	// Daily digest time (UTC)
	DailyDigestHour   int // 0-23
	DailyDigestMinute int // 0-59

	// Concurrency
	JobTimeout time.Duration
}

// HTTPConfig holds the keep-alive server settings.
type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App:           loadAppConfig(),
		Telegram:      loadTelegramConfig(),
		OpenAI:        loadOpenAIConfig(),
		Study:         loadStudyConfig(),
		Scheduler:     loadSchedulerConfig(),
		HTTP:          loadHTTPConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func loadAppConfig() AppConfig {
	env := Environment(getEnv("APP_ENV", "development"))

	return AppConfig{
		Name:            getEnv("APP_NAME", "comptia-study-hub"),
		Environment:     env,
		Debug:           env == EnvDevelopment || getEnvBool("APP_DEBUG", false),
		Version:         getEnv("APP_VERSION", "0.1.0"),
		ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func loadTelegramConfig() TelegramConfig {
	return TelegramConfig{
		Token:               getEnv("TELEGRAM_BOT_TOKEN", ""),
		PollingTimeout:      getEnvDuration("TELEGRAM_POLLING_TIMEOUT", 30*time.Second),
		UserRateLimit:       getEnvInt("TELEGRAM_USER_RATE_LIMIT", 20),
		UserRateLimitWindow: getEnvDuration("TELEGRAM_USER_RATE_WINDOW", time.Minute),
		DigestChatID:        getEnvInt64("TELEGRAM_DIGEST_CHAT_ID", 0),
	}
}

func loadOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL:                 getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		APIKey:                  getEnv("OPENAI_API_KEY", ""),
		Model:                   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		RateLimit:               getEnvInt("OPENAI_RATE_LIMIT", 30),
		RateLimitBurst:          getEnvInt("OPENAI_RATE_LIMIT_BURST", 5),
		RequestTimeout:          getEnvDuration("OPENAI_REQUEST_TIMEOUT", 60*time.Second),
		MaxRetries:              getEnvInt("OPENAI_MAX_RETRIES", 3),
		RetryBaseDelay:          getEnvDuration("OPENAI_RETRY_BASE_DELAY", time.Second),
		CircuitBreakerThreshold: getEnvInt("OPENAI_CB_THRESHOLD", 5),
		CircuitBreakerTimeout:   getEnvDuration("OPENAI_CB_TIMEOUT", time.Minute),
	}
}

func loadStudyConfig() StudyConfig {
	return StudyConfig{
		MinSample:                 getEnvInt("STUDY_MIN_SAMPLE", 5),
		LowAccuracy:               getEnvFloat("STUDY_LOW_ACCURACY", 0.50),
		HighAccuracy:              getEnvFloat("STUDY_HIGH_ACCURACY", 0.85),
		WeakSpotMinAttempts:       getEnvInt("STUDY_WEAK_SPOT_MIN_ATTEMPTS", 1),
		WeakSpotLimit:             getEnvInt("STUDY_WEAK_SPOT_LIMIT", 5),
		StudyDuration:             getEnvDuration("POMODORO_STUDY_DURATION", 25*time.Minute),
		ShortBreakDuration:        getEnvDuration("POMODORO_SHORT_BREAK_DURATION", 5*time.Minute),
		LongBreakDuration:         getEnvDuration("POMODORO_LONG_BREAK_DURATION", 15*time.Minute),
		SessionRetention:          getEnvDuration("POMODORO_SESSION_RETENTION", time.Hour),
		LeaderboardSize:           getEnvInt("LEADERBOARD_SIZE", 5),
		AccuracyBoardMinQuestions: getEnvInt("LEADERBOARD_ACCURACY_MIN_QUESTIONS", 10),
	}
}

func loadSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:                getEnvBool("SCHEDULER_ENABLED", true),
		ExpireSessionsInterval: getEnvDuration("SCHEDULER_EXPIRE_SESSIONS_INTERVAL", 30*time.Second),
		DailyDigestHour:        getEnvInt("SCHEDULER_DAILY_DIGEST_HOUR", 9),
		DailyDigestMinute:      getEnvInt("SCHEDULER_DAILY_DIGEST_MINUTE", 0),
		JobTimeout:             getEnvDuration("SCHEDULER_JOB_TIMEOUT", time.Minute),
	}
}

func loadHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Host:         getEnv("HTTP_HOST", "0.0.0.0"),
		Port:         getEnvInt("HTTP_PORT", 8080),
		ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if c.Study.MinSample <= 0 {
		return errors.New("STUDY_MIN_SAMPLE must be positive")
	}
	if c.Study.LowAccuracy < 0 || c.Study.LowAccuracy > 1 {
		return errors.New("STUDY_LOW_ACCURACY must be in [0, 1]")
	}
	if c.Study.HighAccuracy < c.Study.LowAccuracy || c.Study.HighAccuracy > 1 {
		return errors.New("STUDY_HIGH_ACCURACY must be in [LOW, 1]")
	}
	if c.Study.StudyDuration <= 0 || c.Study.ShortBreakDuration <= 0 || c.Study.LongBreakDuration <= 0 {
		return errors.New("pomodoro durations must be positive")
	}
	if c.Scheduler.DailyDigestHour < 0 || c.Scheduler.DailyDigestHour > 23 {
		return errors.New("SCHEDULER_DAILY_DIGEST_HOUR must be 0-23")
	}
	if c.Scheduler.DailyDigestMinute < 0 || c.Scheduler.DailyDigestMinute > 59 {
		return errors.New("SCHEDULER_DAILY_DIGEST_MINUTE must be 0-59")
	}
	return nil
}

// IsProduction returns true in the production environment.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// ─────────────────────────────────────────────────────────────────────────────
// Environment helpers
// ─────────────────────────────────────────────────────────────────────────────

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
