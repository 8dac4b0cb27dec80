// Package middleware contains Telegram bot middlewares for update processing.
package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER MIDDLEWARE
// Per-user token bucket. Protects the bot (and the AI API behind it)
// from command spam while letting a few quick taps through.
// ══════════════════════════════════════════════════════════════════════════════

// RateLimitConfig holds configuration for the rate limiter.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained per-user command rate.
	RequestsPerMinute int

	// BurstSize is how many commands can land back to back.
	BurstSize int

	// CleanupInterval is how often idle buckets are evicted.
	CleanupInterval time.Duration

	// IdleEvictAfter is how long a bucket may sit unused before eviction.
	IdleEvictAfter time.Duration
}

// DefaultRateLimitConfig returns sensible defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 20,
		BurstSize:         5,
		CleanupInterval:   5 * time.Minute,
		IdleEvictAfter:    15 * time.Minute,
	}
}

// RateLimitResult is the outcome of a rate limit check.
type RateLimitResult struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// RetryAfter is how long the user should wait before retrying.
	RetryAfter time.Duration

	// ResponseMessage is the HTML message to send when limited.
	ResponseMessage string
}

// RateLimiter implements per-user rate limiting.
type RateLimiter struct {
	config  RateLimitConfig
	buckets sync.Map // map[int64]*userBucket
	stopCh  chan struct{}
}

type userBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	lastSeen   time.Time
}

// NewRateLimiter creates a new rate limiter with the given configuration
// and starts its cleanup loop.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultRateLimitConfig().RequestsPerMinute
	}
	if config.BurstSize <= 0 {
		config.BurstSize = DefaultRateLimitConfig().BurstSize
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultRateLimitConfig().CleanupInterval
	}
	if config.IdleEvictAfter <= 0 {
		config.IdleEvictAfter = DefaultRateLimitConfig().IdleEvictAfter
	}

	rl := &RateLimiter{
		config: config,
		stopCh: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Check consumes one token for the user and reports whether the request
// is allowed.
func (rl *RateLimiter) Check(telegramID int64) *RateLimitResult {
	bucket := rl.getBucket(telegramID)

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(bucket.lastRefill).Seconds()
	bucket.tokens += elapsed * bucket.refillRate
	if bucket.tokens > bucket.maxTokens {
		bucket.tokens = bucket.maxTokens
	}
	bucket.lastRefill = now
	bucket.lastSeen = now

	if bucket.tokens >= 1 {
		bucket.tokens--
		return &RateLimitResult{Allowed: true}
	}

	wait := time.Duration((1 - bucket.tokens) / bucket.refillRate * float64(time.Second))
	return &RateLimitResult{
		Allowed:    false,
		RetryAfter: wait,
		ResponseMessage: fmt.Sprintf(
			"⏳ <b>Slow down!</b>\n\nTry again in %d seconds.", int(wait.Seconds())+1),
	}
}

// Stop terminates the cleanup loop.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *RateLimiter) getBucket(telegramID int64) *userBucket {
	if val, ok := rl.buckets.Load(telegramID); ok {
		return val.(*userBucket)
	}

	bucket := &userBucket{
		tokens:     float64(rl.config.BurstSize),
		maxTokens:  float64(rl.config.BurstSize),
		refillRate: float64(rl.config.RequestsPerMinute) / 60.0,
		lastRefill: time.Now(),
		lastSeen:   time.Now(),
	}
	actual, _ := rl.buckets.LoadOrStore(telegramID, bucket)
	return actual.(*userBucket)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.config.IdleEvictAfter)
			rl.buckets.Range(func(key, val any) bool {
				bucket := val.(*userBucket)
				bucket.mu.Lock()
				idle := bucket.lastSeen.Before(cutoff)
				bucket.mu.Unlock()
				if idle {
					rl.buckets.Delete(key)
				}
				return true
			})
		case <-rl.stopCh:
			return
		}
	}
}
