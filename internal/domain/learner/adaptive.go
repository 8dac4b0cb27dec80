package learner

import (
	"sort"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADAPTIVE DIFFICULTY ENGINE
// Чистые вычисления над снимком прогресса: без побочных эффектов,
// безопасно вызывать конкурентно из любого количества читателей.
// ══════════════════════════════════════════════════════════════════════════════

// EngineConfig содержит пороги адаптивной сложности.
// Значения приходят из конфигурации приложения, а не зашиты в логику.
type EngineConfig struct {
	// MinSample - минимум отвеченных вопросов для адаптации.
	// До этого порога всегда возвращается начальный уровень.
	MinSample int

	// LowAccuracy - ниже этого порога точности -> beginner.
	LowAccuracy float64

	// HighAccuracy - выше этого порога точности -> advanced.
	HighAccuracy float64

	// WeakSpotMinAttempts - минимум попыток по теме, чтобы тема
	// учитывалась в анализе слабых/сильных мест.
	WeakSpotMinAttempts int
}

// DefaultEngineConfig возвращает пороги по умолчанию.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinSample:           5,
		LowAccuracy:         0.50,
		HighAccuracy:        0.85,
		WeakSpotMinAttempts: 1,
	}
}

// Engine вычисляет следующий уровень сложности и слабые места.
type Engine struct {
	cfg EngineConfig
}

// NewEngine создаёт движок адаптивной сложности.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.MinSample <= 0 {
		cfg.MinSample = DefaultEngineConfig().MinSample
	}
	if cfg.WeakSpotMinAttempts <= 0 {
		cfg.WeakSpotMinAttempts = 1
	}
	return &Engine{cfg: cfg}
}

// NextDifficulty возвращает уровень сложности для следующего вопроса.
// Чистая функция от точности и размера выборки.
func (e *Engine) NextDifficulty(p *Progress) Difficulty {
	if p == nil || p.TotalQuestions < e.cfg.MinSample {
		// Недостаточно данных для адаптации
		return DifficultyBeginner
	}

	accuracy := p.Accuracy()
	switch {
	case accuracy < e.cfg.LowAccuracy:
		return DifficultyBeginner
	case accuracy < e.cfg.HighAccuracy:
		return DifficultyIntermediate
	default:
		return DifficultyAdvanced
	}
}

// TopicScore - тема с её статистикой, элемент результата анализа.
type TopicScore struct {
	Topic    Topic
	Attempts int
	Correct  int
	Accuracy float64
}

// WeakSpots возвращает до limit тем, отсортированных по возрастанию точности.
// Темы без попыток исключаются. При равной точности первыми идут темы
// с большим числом попыток: больше свидетельств слабости.
func (e *Engine) WeakSpots(p *Progress, limit int) []TopicScore {
	scores := e.collectScores(p)

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Accuracy != scores[j].Accuracy {
			return scores[i].Accuracy < scores[j].Accuracy
		}
		if scores[i].Attempts != scores[j].Attempts {
			return scores[i].Attempts > scores[j].Attempts
		}
		return scores[i].Topic < scores[j].Topic
	})

	return clampScores(scores, limit)
}

// Strengths возвращает до limit тем с наибольшей точностью.
// Зеркальный запрос к WeakSpots - используется в /analysis для
// поддержания уверенности пользователя.
func (e *Engine) Strengths(p *Progress, limit int) []TopicScore {
	scores := e.collectScores(p)

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Accuracy != scores[j].Accuracy {
			return scores[i].Accuracy > scores[j].Accuracy
		}
		if scores[i].Attempts != scores[j].Attempts {
			return scores[i].Attempts > scores[j].Attempts
		}
		return scores[i].Topic < scores[j].Topic
	})

	return clampScores(scores, limit)
}

func (e *Engine) collectScores(p *Progress) []TopicScore {
	if p == nil {
		return nil
	}

	scores := make([]TopicScore, 0, len(p.TopicStats))
	for topic, stat := range p.TopicStats {
		if stat.Attempts < e.cfg.WeakSpotMinAttempts || stat.Attempts == 0 {
			continue
		}
		scores = append(scores, TopicScore{
			Topic:    topic,
			Attempts: stat.Attempts,
			Correct:  stat.Correct,
			Accuracy: stat.Accuracy(),
		})
	}
	return scores
}

func clampScores(scores []TopicScore, limit int) []TopicScore {
	if limit <= 0 || limit >= len(scores) {
		return scores
	}
	return scores[:limit]
}
