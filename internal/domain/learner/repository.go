package learner

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем прогресса.
// Текущая реализация - in-memory (infrastructure/persistence/memory);
// состояние живёт столько, сколько живёт процесс.
// ══════════════════════════════════════════════════════════════════════════════

// AnswerRecord - результат записи одного ответа.
type AnswerRecord struct {
	// Progress - снимок прогресса после применения записи.
	Progress *Progress

	// Streak - что произошло с серией дней.
	Streak StreakChange
}

// Repository определяет операции над хранилищем прогресса.
//
// Контракт конкурентности: мутации для одного пользователя линеаризуемы
// и применяются в порядке вызова; операции разных пользователей
// не блокируют друг друга. Все возвращаемые записи - копии: мутировать
// их снаружи безопасно и бесполезно.
type Repository interface {
	// GetOrCreate возвращает существующую запись или создаёт новую
	// с нулевыми значениями. Никогда не завершается ошибкой для валидного id.
	GetOrCreate(ctx context.Context, userID UserID) (*Progress, error)

	// RecordAnswer атомарно записывает один ответ: счётчики, статистика
	// темы, серия дней. Отклонённая операция не меняет состояние.
	RecordAnswer(ctx context.Context, userID UserID, topic Topic, isCorrect bool, ts time.Time) (AnswerRecord, error)

	// AddStudyMinutes добавляет учебное время (minutes > 0).
	AddStudyMinutes(ctx context.Context, userID UserID, minutes int, ts time.Time) (*Progress, error)

	// SelectTrack безусловно перезаписывает выбранный трек.
	SelectTrack(ctx context.Context, userID UserID, track Track, ts time.Time) (*Progress, error)

	// ApplyAchievements добавляет новые достижения в запись пользователя.
	// Уже полученные пропускаются. Возвращает id реально добавленных.
	ApplyAchievements(ctx context.Context, userID UserID, defs []AchievementDefinition, at time.Time) ([]AchievementID, error)

	// Snapshot возвращает копию записи пользователя.
	// Возвращает shared.ErrNotFound, если записи ещё нет.
	Snapshot(ctx context.Context, userID UserID) (*Progress, error)

	// All возвращает копии всех записей (для лидербордов и дайджеста).
	All(ctx context.Context) ([]*Progress, error)
}

// StateExporter - точка расширения для будущей персистентности:
// сериализуемые снимки без привязки к конкретной технологии хранения.
type StateExporter interface {
	// ExportState возвращает сериализуемый снимок всего хранилища.
	ExportState(ctx context.Context) ([]byte, error)

	// ImportState загружает снимок, полностью замещая текущее состояние.
	ImportState(ctx context.Context, data []byte) error
}
