// Package pomodoro содержит доменную модель таймер-сессий (Pomodoro).
// Сессии не зависят от учебного прогресса: это отдельная машина состояний
// на пользователя, управляемая настенными часами и явными командами.
package pomodoro

import (
	"errors"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS & ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// SessionType определяет вид сессии.
type SessionType string

const (
	// TypeStudy - фокусная учебная сессия.
	TypeStudy SessionType = "study"
	// TypeShortBreak - короткий перерыв.
	TypeShortBreak SessionType = "short_break"
	// TypeLongBreak - длинный перерыв.
	TypeLongBreak SessionType = "long_break"
)

// IsValid проверяет, что тип сессии известен.
func (t SessionType) IsValid() bool {
	switch t {
	case TypeStudy, TypeShortBreak, TypeLongBreak:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление типа.
func (t SessionType) String() string {
	return string(t)
}

// IsBreak возвращает true для перерывов.
func (t SessionType) IsBreak() bool {
	return t == TypeShortBreak || t == TypeLongBreak
}

// State определяет состояние сессии.
// Машина состояний: Running -> {Completed, Cancelled}; терминальные
// состояния сохраняются до запуска следующей сессии.
type State string

const (
	// StateRunning - сессия идёт.
	StateRunning State = "running"
	// StateCompleted - сессия дошла до конца своей длительности.
	StateCompleted State = "completed"
	// StateCancelled - сессия остановлена досрочно.
	StateCancelled State = "cancelled"
)

// IsTerminal возвращает true для завершённых состояний.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// Durations задаёт длительность каждого типа сессии.
type Durations struct {
	Study      time.Duration
	ShortBreak time.Duration
	LongBreak  time.Duration
}

// DefaultDurations возвращает классические длительности Pomodoro.
func DefaultDurations() Durations {
	return Durations{
		Study:      25 * time.Minute,
		ShortBreak: 5 * time.Minute,
		LongBreak:  15 * time.Minute,
	}
}

// For возвращает длительность для типа сессии.
func (d Durations) For(t SessionType) (time.Duration, error) {
	switch t {
	case TypeStudy:
		return d.Study, nil
	case TypeShortBreak:
		return d.ShortBreak, nil
	case TypeLongBreak:
		return d.LongBreak, nil
	default:
		return 0, ErrUnknownType
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrUnknownType - неизвестный тип сессии.
	ErrUnknownType = errors.New("unknown session type")

	// ErrAlreadyTerminal - попытка перевести завершённую сессию.
	ErrAlreadyTerminal = errors.New("session already in terminal state")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: SESSION
// ══════════════════════════════════════════════════════════════════════════════

// Session - одна Pomodoro-сессия пользователя.
// Инвариант: у пользователя не более одной сессии в состоянии Running.
// Инвариант поддерживает менеджер таймеров, а не сама сущность.
type Session struct {
	// ID - уникальный идентификатор сессии.
	ID string

	// UserID - идентификатор пользователя-владельца.
	UserID string

	// Type - вид сессии.
	Type SessionType

	// State - текущее состояние.
	State State

	// StartedAt - время запуска.
	StartedAt time.Time

	// Duration - настроенная длительность.
	Duration time.Duration

	// EndedAt - время перехода в терминальное состояние (нулевое для Running).
	EndedAt time.Time

	// Notified - уведомление о завершении уже отправлено.
	// Защищает от дублей между ленивым завершением при Status
	// и фоновым наблюдателем истечения.
	Notified bool
}

// NewSession создаёт запущенную сессию.
func NewSession(id, userID string, t SessionType, startedAt time.Time, duration time.Duration) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		Type:      t,
		State:     StateRunning,
		StartedAt: startedAt,
		Duration:  duration,
	}
}

// ElapsedAt возвращает прошедшее время на момент now.
// Для завершённой сессии - время до её завершения.
func (s *Session) ElapsedAt(now time.Time) time.Duration {
	end := now
	if s.State.IsTerminal() && !s.EndedAt.IsZero() {
		end = s.EndedAt
	}
	elapsed := end.Sub(s.StartedAt)
	if elapsed < 0 {
		return 0
	}
	if elapsed > s.Duration && s.State != StateCancelled {
		return s.Duration
	}
	return elapsed
}

// RemainingAt возвращает оставшееся время на момент now (не меньше нуля).
func (s *Session) RemainingAt(now time.Time) time.Duration {
	remaining := s.Duration - s.ElapsedAt(now)
	if remaining < 0 || s.State.IsTerminal() {
		return 0
	}
	return remaining
}

// IsExpiredAt возвращает true, если запущенная сессия дошла до конца
// своей длительности к моменту now.
func (s *Session) IsExpiredAt(now time.Time) bool {
	return s.State == StateRunning && !now.Before(s.StartedAt.Add(s.Duration))
}

// Complete переводит сессию в Completed.
func (s *Session) Complete(at time.Time) error {
	if s.State.IsTerminal() {
		return ErrAlreadyTerminal
	}
	s.State = StateCompleted
	s.EndedAt = at
	return nil
}

// Cancel переводит сессию в Cancelled.
func (s *Session) Cancel(at time.Time) error {
	if s.State.IsTerminal() {
		return ErrAlreadyTerminal
	}
	s.State = StateCancelled
	s.EndedAt = at
	return nil
}

// MarkNotified помечает, что уведомление о завершении отправлено.
// Возвращает false, если уже было помечено.
func (s *Session) MarkNotified() bool {
	if s.Notified {
		return false
	}
	s.Notified = true
	return true
}

// Clone возвращает копию сессии для выдачи наружу.
func (s *Session) Clone() *Session {
	cp := *s
	return &cp
}
