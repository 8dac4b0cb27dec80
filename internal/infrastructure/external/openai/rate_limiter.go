package openai

import (
	"context"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER - Token Bucket implementation
// ══════════════════════════════════════════════════════════════════════════════

// RateLimiter implements the Token Bucket algorithm to keep the client
// below the API's request quota. Tokens refill continuously; a 429 from
// the server empties the bucket and enforces the advertised Retry-After.
type RateLimiter struct {
	mu sync.Mutex

	maxTokens    float64   // bucket capacity (burst size)
	refillRate   float64   // tokens added per second
	tokens       float64   // current token count
	lastRefill   time.Time // last time tokens were added
	penaltyUntil time.Time // no requests allowed before this instant
}

// RateLimiterConfig contains configuration for the rate limiter.
type RateLimiterConfig struct {
	// RequestsPerMinute is the maximum sustained request rate.
	RequestsPerMinute int

	// BurstSize is the number of requests that can be made in a burst.
	BurstSize int
}

// DefaultRateLimiterConfig returns conservative defaults for a paid API.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerMinute: 30,
		BurstSize:         5,
	}
}

// NewRateLimiter creates a RateLimiter with the given configuration.
// Non-positive values fall back to the defaults.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	defaults := DefaultRateLimiterConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if config.BurstSize <= 0 {
		config.BurstSize = defaults.BurstSize
	}

	return &RateLimiter{
		maxTokens:  float64(config.BurstSize),
		refillRate: float64(config.RequestsPerMinute) / 60.0,
		tokens:     float64(config.BurstSize), // start with a full bucket
		lastRefill: time.Now(),
	}
}

// Allow blocks until a token is available or the context is cancelled.
func (rl *RateLimiter) Allow(ctx context.Context) error {
	for {
		waitTime, ok := rl.tryAcquire()
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// TryAllow attempts to acquire a token without blocking.
func (rl *RateLimiter) TryAllow() bool {
	_, ok := rl.tryAcquire()
	return ok
}

// RecordRateLimitHit records that the API answered 429. The bucket is
// emptied and requests are held back for retryAfter (or one refill
// interval when the server did not say).
func (rl *RateLimiter) RecordRateLimitHit(retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.tokens = 0
	if retryAfter <= 0 {
		retryAfter = time.Duration(1.0 / rl.refillRate * float64(time.Second))
	}
	rl.penaltyUntil = time.Now().Add(retryAfter)
}

// tryAcquire attempts to consume a token. On failure it returns how long
// to wait before trying again.
func (rl *RateLimiter) tryAcquire() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Before(rl.penaltyUntil) {
		return rl.penaltyUntil.Sub(now), false
	}

	rl.refillTokens(now)

	if rl.tokens < 1.0 {
		tokensNeeded := 1.0 - rl.tokens
		return time.Duration(tokensNeeded / rl.refillRate * float64(time.Second)), false
	}

	rl.tokens--
	return 0, true
}

// refillTokens adds tokens based on elapsed time. Must be called with
// the lock held.
func (rl *RateLimiter) refillTokens(now time.Time) {
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}

	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now
}
