// Package openai implements a client for OpenAI-compatible chat-completions
// APIs. It generates quiz questions, flashcards and concept explanations for
// the study bot.
//
// The client is defensive about the upstream service: a token-bucket rate
// limiter keeps it under quota, a circuit breaker fails fast while the API
// is down, and transient failures are retried with exponential backoff.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/pkg/circuitbreaker"
	"github.com/studyhub/comptia-study-hub/pkg/logger"
	"github.com/studyhub/comptia-study-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains all settings for the AI client.
type ClientConfig struct {
	// BaseURL of the OpenAI-compatible API (without trailing slash).
	BaseURL string

	// APIKey for Bearer authentication. Empty disables the client.
	APIKey string

	// Model name passed in every chat-completions request.
	Model string

	// Timeout for a single HTTP request.
	Timeout time.Duration

	// RateLimiter settings.
	RateLimiter RateLimiterConfig

	// CircuitBreaker settings.
	CircuitBreaker circuitbreaker.Config

	// Retry settings for transient failures.
	Retry retry.Config

	// Logger for structured logging. Nil defaults to the global logger.
	Logger *logger.Logger
}

// DefaultClientConfig returns sensible defaults for the public OpenAI API.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:        "https://api.openai.com",
		Model:          "gpt-4o-mini",
		Timeout:        60 * time.Second,
		RateLimiter:    DefaultRateLimiterConfig(),
		CircuitBreaker: circuitbreaker.DefaultConfig("openai"),
		Retry:          retry.DefaultConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	log        *logger.Logger
	limiter    *RateLimiter
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a Client with the given configuration.
// Zero-value fields fall back to DefaultClientConfig.
func NewClient(config ClientConfig) *Client {
	defaults := DefaultClientConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.CircuitBreaker.Name == "" {
		config.CircuitBreaker.Name = "openai"
	}
	if config.Logger == nil {
		config.Logger = logger.Default()
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		log:        config.Logger.With(logger.Component("openai")),
		limiter:    NewRateLimiter(config.RateLimiter),
		breaker:    circuitbreaker.New(config.CircuitBreaker),
	}
}

// Enabled reports whether the client has an API key and can serve requests.
// Handlers fall back to static content when the client is disabled.
func (c *Client) Enabled() bool {
	return c.config.APIKey != ""
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT TYPES
// ══════════════════════════════════════════════════════════════════════════════

// QuizQuestion is a multiple-choice question produced by the model.
type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer"` // index into Options
	Explanation string   `json:"explanation"`
}

// Flashcard is a single front/back study card.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// ══════════════════════════════════════════════════════════════════════════════
// OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GenerateQuestions asks the model for count multiple-choice questions on the
// given certification topic at the given difficulty.
func (c *Client) GenerateQuestions(ctx context.Context, cert, topic string, difficulty learner.Difficulty, count int) ([]QuizQuestion, error) {
	if count <= 0 {
		count = 1
	}

	prompt := buildQuizPrompt(cert, topic, difficulty, count)
	raw, err := c.complete(ctx, "generate_questions", prompt, 350*count, 0.7)
	if err != nil {
		return nil, err
	}

	questions, err := parseQuizQuestions(raw)
	if err != nil {
		return nil, err
	}

	c.log.Debug("generated quiz questions",
		logger.Topic(topic),
		logger.String("difficulty", string(difficulty)),
		logger.Int("count", len(questions)),
	)
	return questions, nil
}

// GenerateFlashcards asks the model for count flashcards on the given topic.
func (c *Client) GenerateFlashcards(ctx context.Context, cert, topic string, count int) ([]Flashcard, error) {
	if count <= 0 {
		count = 5
	}

	prompt := buildFlashcardPrompt(cert, topic, count)
	raw, err := c.complete(ctx, "generate_flashcards", prompt, 120*count, 0.5)
	if err != nil {
		return nil, err
	}

	cards, err := parseFlashcards(raw)
	if err != nil {
		return nil, err
	}

	c.log.Debug("generated flashcards",
		logger.Topic(topic),
		logger.Int("count", len(cards)),
	)
	return cards, nil
}

// ExplainTopic asks the model for a short exam-oriented explanation
// of a concept.
func (c *Client) ExplainTopic(ctx context.Context, cert, concept string) (string, error) {
	prompt := buildExplainPrompt(cert, concept)
	raw, err := c.complete(ctx, "explain_topic", prompt, 400, 0.3)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// GenerateRecommendations produces three short study recommendations
// for the learner's weakest topics.
func (c *Client) GenerateRecommendations(ctx context.Context, cert string, weakTopics []string) (string, error) {
	if len(weakTopics) == 0 {
		return "", shared.NewDomainError("openai", "generate_recommendations",
			shared.ErrInvalidInput, "no weak topics to recommend for")
	}
	if len(weakTopics) > 3 {
		weakTopics = weakTopics[:3]
	}

	prompt := buildRecommendationPrompt(cert, weakTopics)
	raw, err := c.complete(ctx, "generate_recommendations", prompt, 120, 0.2)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROMPT CONSTRUCTION
// ══════════════════════════════════════════════════════════════════════════════

func buildQuizPrompt(cert, topic string, difficulty learner.Difficulty, count int) string {
	return fmt.Sprintf(`Generate %d multiple-choice questions for the CompTIA %s exam on the topic "%s" at %s difficulty.

Respond with a JSON array only, no prose. Each element:
{"question": "...", "options": ["...", "...", "...", "..."], "answer": 0, "explanation": "..."}

Rules:
- exactly 4 options per question
- "answer" is the zero-based index of the correct option
- "explanation" is one sentence on why the answer is correct`,
		count, cert, topic, difficulty)
}

func buildFlashcardPrompt(cert, topic string, count int) string {
	return fmt.Sprintf(`Generate %d flashcards for the CompTIA %s exam on the topic "%s".

Respond with a JSON array only, no prose. Each element:
{"front": "term or question", "back": "concise definition or answer"}

Keep each back under 30 words.`,
		count, cert, topic)
}

func buildExplainPrompt(cert, concept string) string {
	return fmt.Sprintf(`Explain "%s" for a CompTIA %s exam candidate.

Use at most 150 words. Structure:
1. One-sentence definition.
2. Why it matters on the exam.
3. One real-world example.`,
		concept, cert)
}

func buildRecommendationPrompt(cert string, weakTopics []string) string {
	return fmt.Sprintf(`CompTIA %s study focus needed: %s

Generate exactly 3 bullet points. Each bullet point must be:
- Maximum 8 words
- Start with action verb
- No explanations

Format:
• [action verb] [topic] [method/resource]
• [action verb] [topic] [method/resource]
• [action verb] [topic] [method/resource]`,
		cert, strings.Join(weakTopics, ", "))
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE PARSING
// ══════════════════════════════════════════════════════════════════════════════

func parseQuizQuestions(raw string) ([]QuizQuestion, error) {
	var questions []QuizQuestion
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &questions); err != nil {
		return nil, shared.WrapError("openai", "parse_questions",
			shared.ErrExternalService, "model returned malformed question JSON", err)
	}
	if len(questions) == 0 {
		return nil, shared.NewDomainError("openai", "parse_questions",
			shared.ErrExternalService, "model returned no questions")
	}

	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			return nil, shared.NewDomainError("openai", "parse_questions",
				shared.ErrExternalService, fmt.Sprintf("question %d has empty text", i))
		}
		if len(q.Options) != 4 {
			return nil, shared.NewDomainError("openai", "parse_questions",
				shared.ErrExternalService, fmt.Sprintf("question %d has %d options, want 4", i, len(q.Options)))
		}
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			return nil, shared.NewDomainError("openai", "parse_questions",
				shared.ErrExternalService, fmt.Sprintf("question %d answer index %d out of range", i, q.Answer))
		}
	}
	return questions, nil
}

func parseFlashcards(raw string) ([]Flashcard, error) {
	var cards []Flashcard
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &cards); err != nil {
		return nil, shared.WrapError("openai", "parse_flashcards",
			shared.ErrExternalService, "model returned malformed flashcard JSON", err)
	}
	if len(cards) == 0 {
		return nil, shared.NewDomainError("openai", "parse_flashcards",
			shared.ErrExternalService, "model returned no flashcards")
	}

	for i, card := range cards {
		if strings.TrimSpace(card.Front) == "" || strings.TrimSpace(card.Back) == "" {
			return nil, shared.NewDomainError("openai", "parse_flashcards",
				shared.ErrExternalService, fmt.Sprintf("flashcard %d has an empty side", i))
		}
	}
	return cards, nil
}

// stripCodeFence removes a surrounding markdown code fence. Models often
// wrap JSON in ```json blocks even when told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:] // drop the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP LAYER
// ══════════════════════════════════════════════════════════════════════════════

// chatRequest is the chat-completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the chat-completions response body.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// apiErrorDTO is the error envelope of OpenAI-compatible APIs.
type apiErrorDTO struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

const maxResponseBytes = 1 << 20 // 1 MB

// complete performs one chat completion with rate limiting, circuit
// breaking and retries, and returns the model's text.
func (c *Client) complete(ctx context.Context, op, prompt string, maxTokens int, temperature float64) (string, error) {
	if !c.Enabled() {
		return "", shared.ErrAIUnavailable
	}

	body := chatRequest{
		Model:       c.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var content string
	err := retry.Do(ctx, c.config.Retry, func(ctx context.Context) error {
		if err := c.limiter.Allow(ctx); err != nil {
			return retry.Permanent(err)
		}

		return c.breaker.Execute(ctx, func(ctx context.Context) error {
			out, reqErr := c.doSingleRequest(ctx, body)
			if reqErr != nil {
				return reqErr
			}
			content = out
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			err = shared.WrapError("openai", op, shared.ErrServiceUnavailable,
				"AI API temporarily blocked by circuit breaker", err)
		}
		c.log.Warn("AI request failed",
			logger.String("op", op),
			logger.Err(err),
		)
		return "", err
	}

	return content, nil
}

// doSingleRequest performs exactly one HTTP round trip.
func (c *Client) doSingleRequest(ctx context.Context, body chatRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", retry.Permanent(shared.WrapError("openai", "request",
			shared.ErrInvalidInput, "failed to encode request body", err))
	}

	url := c.config.BaseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", retry.Permanent(shared.WrapError("openai", "request",
			shared.ErrInvalidInput, "failed to build request", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", shared.WrapError("openai", "request",
			shared.ErrServiceUnavailable, "request to AI API failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", shared.WrapError("openai", "request",
			shared.ErrServiceUnavailable, "failed to read response body", err)
	}

	c.log.Debug("AI API response",
		logger.Int("status", resp.StatusCode),
		logger.Latency(time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		c.limiter.RecordRateLimitHit(retryAfter)
		return "", shared.NewDomainError("openai", "request",
			shared.ErrRateLimited, "AI API rate limit exceeded")

	case resp.StatusCode >= http.StatusInternalServerError:
		return "", shared.NewDomainError("openai", "request",
			shared.ErrServiceUnavailable, fmt.Sprintf("AI API returned status %d", resp.StatusCode))

	case resp.StatusCode >= http.StatusBadRequest:
		var apiErr apiErrorDTO
		msg := fmt.Sprintf("AI API returned status %d", resp.StatusCode)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return "", retry.Permanent(shared.NewDomainError("openai", "request",
			shared.ErrExternalService, msg))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return "", retry.Permanent(shared.WrapError("openai", "parse",
			shared.ErrExternalService, "failed to decode chat response", err))
	}
	if len(chatResp.Choices) == 0 {
		return "", retry.Permanent(shared.NewDomainError("openai", "parse",
			shared.ErrExternalService, "chat response has no choices"))
	}

	return chatResp.Choices[0].Message.Content, nil
}

// parseRetryAfter parses a Retry-After header value in seconds.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
