package learner

import (
	"sort"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS (Достижения)
// Таблица предикатов - это данные: добавление нового достижения - это
// новая строка в каталоге, а не новая ветка в логике.
// ══════════════════════════════════════════════════════════════════════════════

// AchievementID представляет идентификатор достижения.
type AchievementID string

const (
	// AchievementFirstSteps - 10 отвеченных вопросов.
	AchievementFirstSteps AchievementID = "first_steps"
	// AchievementQuestionWarrior - 100 отвеченных вопросов.
	AchievementQuestionWarrior AchievementID = "question_warrior"
	// AchievementStudyLegend - 500 отвеченных вопросов.
	AchievementStudyLegend AchievementID = "study_legend"
	// AchievementWeekStreak - 7 дней подряд.
	AchievementWeekStreak AchievementID = "week_streak"
	// AchievementIronWill - 30 дней подряд.
	AchievementIronWill AchievementID = "iron_will"
	// AchievementAccuracyMaster - точность 90%+ при 20+ вопросах.
	AchievementAccuracyMaster AchievementID = "accuracy_master"
	// AchievementTopicExpert - точность 85%+ по любой теме при 5+ попытках.
	AchievementTopicExpert AchievementID = "topic_expert"
	// AchievementMarathoner - 300+ минут учебного времени.
	AchievementMarathoner AchievementID = "marathoner"
)

// Predicate проверяет выполнение условия достижения над снимком прогресса.
type Predicate func(p *Progress) bool

// AchievementDefinition описывает достижение.
type AchievementDefinition struct {
	ID          AchievementID
	Name        string
	Description string
	Emoji       string
	Category    string
	Points      int
	Unlocked    Predicate
}

// Definitions возвращает полный каталог достижений.
func Definitions() []AchievementDefinition {
	return []AchievementDefinition{
		{
			ID: AchievementFirstSteps, Name: "First Steps",
			Description: "Answer 10 practice questions", Emoji: "🎯",
			Category: "volume", Points: 50,
			Unlocked: func(p *Progress) bool { return p.TotalQuestions >= 10 },
		},
		{
			ID: AchievementQuestionWarrior, Name: "Question Warrior",
			Description: "Answer 100 practice questions", Emoji: "⚔️",
			Category: "volume", Points: 150,
			Unlocked: func(p *Progress) bool { return p.TotalQuestions >= 100 },
		},
		{
			ID: AchievementStudyLegend, Name: "Study Legend",
			Description: "Answer 500 practice questions", Emoji: "🏆",
			Category: "volume", Points: 500,
			Unlocked: func(p *Progress) bool { return p.TotalQuestions >= 500 },
		},
		{
			ID: AchievementWeekStreak, Name: "Week of Fire",
			Description: "Study 7 days in a row", Emoji: "🔥",
			Category: "streak", Points: 100,
			Unlocked: func(p *Progress) bool { return p.StudyStreak >= 7 },
		},
		{
			ID: AchievementIronWill, Name: "Iron Will",
			Description: "Study 30 days in a row", Emoji: "💪",
			Category: "streak", Points: 500,
			Unlocked: func(p *Progress) bool { return p.StudyStreak >= 30 },
		},
		{
			ID: AchievementAccuracyMaster, Name: "Accuracy Master",
			Description: "Maintain 90%+ accuracy over 20+ questions", Emoji: "🎓",
			Category: "accuracy", Points: 200,
			Unlocked: func(p *Progress) bool {
				return p.TotalQuestions >= 20 && p.Accuracy() >= 0.90
			},
		},
		{
			ID: AchievementTopicExpert, Name: "Topic Expert",
			Description: "Reach 85%+ accuracy in any topic (5+ attempts)", Emoji: "🧠",
			Category: "mastery", Points: 250,
			Unlocked: func(p *Progress) bool {
				for _, stat := range p.TopicStats {
					if stat.Attempts >= 5 && stat.Accuracy() >= 0.85 {
						return true
					}
				}
				return false
			},
		},
		{
			ID: AchievementMarathoner, Name: "Marathoner",
			Description: "Accumulate 300 minutes of focused study", Emoji: "⏱️",
			Category: "time", Points: 150,
			Unlocked: func(p *Progress) bool { return p.StudyTimeMinutes >= 300 },
		},
	}
}

// Definition возвращает определение достижения по идентификатору.
func Definition(id AchievementID) (AchievementDefinition, bool) {
	for _, def := range Definitions() {
		if def.ID == id {
			return def, true
		}
	}
	return AchievementDefinition{}, false
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATOR
// ══════════════════════════════════════════════════════════════════════════════

// Evaluator определяет новые достижения по снимку прогресса.
// Без побочных эффектов: слияние результата в хранилище - ответственность
// вызывающего.
type Evaluator struct {
	definitions []AchievementDefinition
}

// NewEvaluator создаёт оценщик с полным каталогом достижений.
func NewEvaluator() *Evaluator {
	return &Evaluator{definitions: Definitions()}
}

// NewEvaluatorWithDefinitions создаёт оценщик с произвольным каталогом.
// Используется в тестах и для расширения каталога без изменения кода.
func NewEvaluatorWithDefinitions(defs []AchievementDefinition) *Evaluator {
	return &Evaluator{definitions: defs}
}

// Evaluate возвращает достижения, условия которых выполнены, но которых
// ещё нет в множестве полученных. Идемпотентна: повторный вызов на
// неизменённом прогрессе возвращает пустой результат.
func (e *Evaluator) Evaluate(p *Progress) []AchievementDefinition {
	if p == nil {
		return nil
	}

	var unlocked []AchievementDefinition
	for _, def := range e.definitions {
		if p.HasAchievement(def.ID) {
			continue
		}
		if def.Unlocked != nil && def.Unlocked(p) {
			unlocked = append(unlocked, def)
		}
	}
	return unlocked
}

// Unlocked возвращает полученные достижения, отсортированные по времени получения.
func Unlocked(p *Progress) []UnlockedAchievement {
	result := make([]UnlockedAchievement, 0, len(p.Achievements))
	for id, at := range p.Achievements {
		def, ok := Definition(id)
		if !ok {
			// Достижение из устаревшего каталога - показываем как есть
			def = AchievementDefinition{ID: id, Name: string(id)}
		}
		result = append(result, UnlockedAchievement{Definition: def, UnlockedAt: at})
	}

	// Стабильный порядок: от старых к новым, при равенстве - по id
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UnlockedAt.Equal(result[j].UnlockedAt) {
			return result[i].UnlockedAt.Before(result[j].UnlockedAt)
		}
		return result[i].Definition.ID < result[j].Definition.ID
	})
	return result
}

// UnlockedAchievement - полученное достижение со временем получения.
type UnlockedAchievement struct {
	Definition AchievementDefinition
	UnlockedAt time.Time
}
