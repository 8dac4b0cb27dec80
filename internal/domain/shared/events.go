// Package shared contains common domain types, errors and events
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Learner events
	EventAnswerRecorded      EventType = "learner.answer_recorded"
	EventTrackSelected       EventType = "learner.track_selected"
	EventStudyTimeAdded      EventType = "learner.study_time_added"
	EventStreakUpdated       EventType = "learner.streak_updated"
	EventStreakBroken        EventType = "learner.streak_broken"
	EventAchievementUnlocked EventType = "learner.achievement_unlocked"

	// Pomodoro events
	EventSessionStarted   EventType = "pomodoro.session_started"
	EventSessionCompleted EventType = "pomodoro.session_completed"
	EventSessionCancelled EventType = "pomodoro.session_cancelled"

	// System events
	EventDailyDigestSent EventType = "system.daily_digest_sent"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Learner Events
// ═══════════════════════════════════════════════════════════════════════════

// AnswerRecordedEvent is emitted after every recorded practice answer.
type AnswerRecordedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	Topic     string `json:"topic"`
	IsCorrect bool   `json:"is_correct"`
	Total     int    `json:"total_questions"`
	Correct   int    `json:"correct_answers"`
}

// Payload implements Event interface.
func (e AnswerRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"topic":           e.Topic,
		"is_correct":      e.IsCorrect,
		"total_questions": e.Total,
		"correct_answers": e.Correct,
	}
}

// NewAnswerRecordedEvent creates a new AnswerRecordedEvent.
func NewAnswerRecordedEvent(userID, topic string, isCorrect bool, total, correct int) AnswerRecordedEvent {
	return AnswerRecordedEvent{
		BaseEvent: NewBaseEvent(EventAnswerRecorded, userID),
		UserID:    userID,
		Topic:     topic,
		IsCorrect: isCorrect,
		Total:     total,
		Correct:   correct,
	}
}

// TrackSelectedEvent is emitted when a learner picks a certification track.
type TrackSelectedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Track  string `json:"track"`
}

// Payload implements Event interface.
func (e TrackSelectedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"track":   e.Track,
	}
}

// NewTrackSelectedEvent creates a new TrackSelectedEvent.
func NewTrackSelectedEvent(userID, track string) TrackSelectedEvent {
	return TrackSelectedEvent{
		BaseEvent: NewBaseEvent(EventTrackSelected, userID),
		UserID:    userID,
		Track:     track,
	}
}

// StudyTimeAddedEvent is emitted when study minutes are credited.
type StudyTimeAddedEvent struct {
	BaseEvent
	UserID       string `json:"user_id"`
	Minutes      int    `json:"minutes"`
	TotalMinutes int    `json:"total_minutes"`
}

// Payload implements Event interface.
func (e StudyTimeAddedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       e.UserID,
		"minutes":       e.Minutes,
		"total_minutes": e.TotalMinutes,
	}
}

// NewStudyTimeAddedEvent creates a new StudyTimeAddedEvent.
func NewStudyTimeAddedEvent(userID string, minutes, totalMinutes int) StudyTimeAddedEvent {
	return StudyTimeAddedEvent{
		BaseEvent:    NewBaseEvent(EventStudyTimeAdded, userID),
		UserID:       userID,
		Minutes:      minutes,
		TotalMinutes: totalMinutes,
	}
}

// StreakUpdatedEvent is emitted when a learner's daily streak grows.
type StreakUpdatedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Streak int    `json:"streak"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"streak":  e.Streak,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(userID string, streak int) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent: NewBaseEvent(EventStreakUpdated, userID),
		UserID:    userID,
		Streak:    streak,
	}
}

// StreakBrokenEvent is emitted when a learner's daily streak resets.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		UserID:         userID,
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// AchievementUnlockedEvent is emitted for every newly earned achievement.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	AchievementID string `json:"achievement_id"`
	Name          string `json:"name"`
	Points        int    `json:"points"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"achievement_id": e.AchievementID,
		"name":           e.Name,
		"points":         e.Points,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, achievementID, name string, points int) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, userID),
		UserID:        userID,
		AchievementID: achievementID,
		Name:          name,
		Points:        points,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pomodoro Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionStartedEvent is emitted when a pomodoro session starts.
type SessionStartedEvent struct {
	BaseEvent
	UserID          string `json:"user_id"`
	SessionID       string `json:"session_id"`
	SessionType     string `json:"session_type"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Payload implements Event interface.
func (e SessionStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":          e.UserID,
		"session_id":       e.SessionID,
		"session_type":     e.SessionType,
		"duration_minutes": e.DurationMinutes,
	}
}

// NewSessionStartedEvent creates a new SessionStartedEvent.
func NewSessionStartedEvent(userID, sessionID, sessionType string, durationMinutes int) SessionStartedEvent {
	return SessionStartedEvent{
		BaseEvent:       NewBaseEvent(EventSessionStarted, userID),
		UserID:          userID,
		SessionID:       sessionID,
		SessionType:     sessionType,
		DurationMinutes: durationMinutes,
	}
}

// SessionCompletedEvent is emitted exactly once when a session runs to its
// full duration, whether expiry was observed by a status poll or by the
// background watcher.
type SessionCompletedEvent struct {
	BaseEvent
	UserID          string `json:"user_id"`
	SessionID       string `json:"session_id"`
	SessionType     string `json:"session_type"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Payload implements Event interface.
func (e SessionCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":          e.UserID,
		"session_id":       e.SessionID,
		"session_type":     e.SessionType,
		"duration_minutes": e.DurationMinutes,
	}
}

// NewSessionCompletedEvent creates a new SessionCompletedEvent.
func NewSessionCompletedEvent(userID, sessionID, sessionType string, durationMinutes int) SessionCompletedEvent {
	return SessionCompletedEvent{
		BaseEvent:       NewBaseEvent(EventSessionCompleted, userID),
		UserID:          userID,
		SessionID:       sessionID,
		SessionType:     sessionType,
		DurationMinutes: durationMinutes,
	}
}

// SessionCancelledEvent is emitted when a session is stopped early.
type SessionCancelledEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	SessionID      string `json:"session_id"`
	SessionType    string `json:"session_type"`
	ElapsedMinutes int    `json:"elapsed_minutes"`
}

// Payload implements Event interface.
func (e SessionCancelledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"session_id":      e.SessionID,
		"session_type":    e.SessionType,
		"elapsed_minutes": e.ElapsedMinutes,
	}
}

// NewSessionCancelledEvent creates a new SessionCancelledEvent.
func NewSessionCancelledEvent(userID, sessionID, sessionType string, elapsedMinutes int) SessionCancelledEvent {
	return SessionCancelledEvent{
		BaseEvent:      NewBaseEvent(EventSessionCancelled, userID),
		UserID:         userID,
		SessionID:      sessionID,
		SessionType:    sessionType,
		ElapsedMinutes: elapsedMinutes,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
