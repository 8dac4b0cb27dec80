// Package learner содержит доменную модель учебного прогресса пользователя.
// Это ядро бизнес-логики - из зависимостей только календарные
// помощники pkg/timeutil.
package learner

import (
	"errors"
	"strings"
	"time"

	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// UserID представляет стабильный идентификатор пользователя чат-платформы.
type UserID string

// IsValid проверяет, что UserID непустой.
func (u UserID) IsValid() bool {
	return len(strings.TrimSpace(string(u))) > 0
}

// String возвращает строковое представление идентификатора.
func (u UserID) String() string {
	return string(u)
}

// Track представляет выбранный сертификационный трек (например, "Security+").
// Пустое значение означает, что трек ещё не выбран.
type Track string

// IsZero возвращает true, если трек не выбран.
func (t Track) IsZero() bool {
	return t == ""
}

// String возвращает строковое представление трека.
func (t Track) String() string {
	return string(t)
}

// Topic представляет тему (домен сертификации), по которой задаются вопросы.
type Topic string

// IsValid проверяет, что тема непустая.
func (t Topic) IsValid() bool {
	return len(strings.TrimSpace(string(t))) > 0
}

// String возвращает строковое представление темы.
func (t Topic) String() string {
	return string(t)
}

// Difficulty представляет уровень сложности вопросов.
type Difficulty string

const (
	// DifficultyBeginner - начальный уровень.
	DifficultyBeginner Difficulty = "beginner"
	// DifficultyIntermediate - средний уровень.
	DifficultyIntermediate Difficulty = "intermediate"
	// DifficultyAdvanced - продвинутый уровень.
	DifficultyAdvanced Difficulty = "advanced"
)

// IsValid проверяет, что уровень сложности корректен.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// TopicStat хранит статистику ответов по одной теме.
type TopicStat struct {
	// Attempts - количество попыток.
	Attempts int

	// Correct - количество правильных ответов.
	Correct int
}

// Accuracy возвращает долю правильных ответов (0.0 - 1.0).
// Для темы без попыток возвращает 0.
func (s TopicStat) Accuracy() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Attempts)
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyUserID - пустой идентификатор пользователя.
	ErrEmptyUserID = errors.New("invalid user id: must be non-empty")

	// ErrEmptyTopic - пустая тема вопроса.
	ErrEmptyTopic = errors.New("invalid topic: must be non-empty")

	// ErrZeroTimestamp - нулевая отметка времени активности.
	ErrZeroTimestamp = errors.New("invalid timestamp: must be non-zero")

	// ErrNonPositiveMinutes - неположительное учебное время.
	ErrNonPositiveMinutes = errors.New("invalid study minutes: must be positive")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// Progress - центральная сущность системы: учебный прогресс одного пользователя.
// Инвариант: CorrectAnswers <= TotalQuestions всегда.
type Progress struct {
	// UserID - идентификатор пользователя (уникальный ключ).
	UserID UserID

	// SelectedTrack - выбранный сертификационный трек (пустой до выбора).
	SelectedTrack Track

	// StudyStreak - серия последовательных дней с учебной активностью.
	StudyStreak int

	// TotalQuestions - всего отвеченных вопросов.
	TotalQuestions int

	// CorrectAnswers - правильных ответов.
	CorrectAnswers int

	// StudyScore - накопленные очки (за правильные ответы и достижения).
	StudyScore int

	// StudyTimeMinutes - накопленное учебное время в минутах.
	StudyTimeMinutes int

	// LastStudyDate - дата последней учебной активности (нулевая до первой).
	LastStudyDate time.Time

	// TopicStats - статистика по темам, основа для поиска слабых мест.
	TopicStats map[Topic]TopicStat

	// Achievements - полученные достижения: id -> время получения.
	// Множество только растёт.
	Achievements map[AchievementID]time.Time

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// CorrectAnswerPoints - очки за один правильный ответ.
const CorrectAnswerPoints = 10

// NewProgress создаёт запись прогресса с нулевыми значениями по умолчанию.
func NewProgress(userID UserID, now time.Time) (*Progress, error) {
	if !userID.IsValid() {
		return nil, ErrEmptyUserID
	}

	return &Progress{
		UserID:       userID,
		TopicStats:   make(map[Topic]TopicStat),
		Achievements: make(map[AchievementID]time.Time),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// StreakChange описывает, что произошло с серией при записи активности.
type StreakChange struct {
	// Updated - серия выросла на 1.
	Updated bool

	// Broken - серия была сброшена до 1 после пропуска.
	Broken bool

	// PreviousStreak - значение серии до сброса (если Broken).
	PreviousStreak int

	// DaysMissed - сколько дней было пропущено (если Broken).
	DaysMissed int
}

// RecordAnswer записывает один ответ на вопрос: счётчики, статистика темы,
// серия дней. Операция либо применяется целиком, либо (при невалидном входе)
// не меняет состояние вовсе.
func (p *Progress) RecordAnswer(topic Topic, isCorrect bool, ts time.Time) (StreakChange, error) {
	if !topic.IsValid() {
		return StreakChange{}, ErrEmptyTopic
	}
	if ts.IsZero() {
		return StreakChange{}, ErrZeroTimestamp
	}

	p.TotalQuestions++
	if isCorrect {
		p.CorrectAnswers++
		p.StudyScore += CorrectAnswerPoints
	}

	stat := p.TopicStats[topic]
	stat.Attempts++
	if isCorrect {
		stat.Correct++
	}
	p.TopicStats[topic] = stat

	change := p.recordActivityDay(ts)
	p.UpdatedAt = ts

	return change, nil
}

// recordActivityDay обновляет серию дней по календарному дню активности.
// Тот же день - без изменений; следующий день - серия +1;
// пропуск >= 2 дней - сброс до 1.
func (p *Progress) recordActivityDay(ts time.Time) StreakChange {
	day := timeutil.StartOfDay(ts)

	// Первая активность
	if p.LastStudyDate.IsZero() {
		p.StudyStreak = 1
		p.LastStudyDate = day
		return StreakChange{Updated: true}
	}

	switch {
	case timeutil.IsSameDay(p.LastStudyDate, ts) || day.Before(timeutil.StartOfDay(p.LastStudyDate)):
		// Тот же день (или запоздавшая запись) - серия не меняется
		return StreakChange{}
	case timeutil.IsConsecutiveDay(p.LastStudyDate, ts):
		p.StudyStreak++
		p.LastStudyDate = day
		return StreakChange{Updated: true}
	default:
		prev := p.StudyStreak
		missed := timeutil.DaysBetween(p.LastStudyDate, ts) - 1
		p.StudyStreak = 1
		p.LastStudyDate = day
		return StreakChange{Broken: true, PreviousStreak: prev, DaysMissed: missed}
	}
}

// AddStudyMinutes добавляет учебное время. Минуты должны быть положительными.
func (p *Progress) AddStudyMinutes(minutes int, now time.Time) error {
	if minutes <= 0 {
		return ErrNonPositiveMinutes
	}
	p.StudyTimeMinutes += minutes
	p.UpdatedAt = now
	return nil
}

// SelectTrack безусловно перезаписывает выбранный трек.
// Проверка трека по каталогу сертификаций - ответственность вызывающего слоя.
func (p *Progress) SelectTrack(track Track, now time.Time) {
	p.SelectedTrack = track
	p.UpdatedAt = now
}

// Accuracy возвращает общую долю правильных ответов (0.0 - 1.0).
func (p *Progress) Accuracy() float64 {
	if p.TotalQuestions == 0 {
		return 0
	}
	return float64(p.CorrectAnswers) / float64(p.TotalQuestions)
}

// HasAchievement проверяет, есть ли у пользователя достижение.
func (p *Progress) HasAchievement(id AchievementID) bool {
	_, ok := p.Achievements[id]
	return ok
}

// UnlockAchievement добавляет достижение и начисляет его очки.
// Возвращает false, если достижение уже было получено (множество монотонно).
func (p *Progress) UnlockAchievement(id AchievementID, points int, at time.Time) bool {
	if p.HasAchievement(id) {
		return false
	}
	p.Achievements[id] = at
	p.StudyScore += points
	p.UpdatedAt = at
	return true
}

// Clone возвращает глубокую копию прогресса.
// Используется хранилищем для выдачи read-only снимков наружу.
func (p *Progress) Clone() *Progress {
	cp := *p

	cp.TopicStats = make(map[Topic]TopicStat, len(p.TopicStats))
	for topic, stat := range p.TopicStats {
		cp.TopicStats[topic] = stat
	}

	cp.Achievements = make(map[AchievementID]time.Time, len(p.Achievements))
	for id, at := range p.Achievements {
		cp.Achievements[id] = at
	}

	return &cp
}
