// Package memory implements in-process storage for learner progress.
// State lives for the lifetime of the process; the StateExporter
// implementation provides serializable snapshots for future persistence.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS STORE - In-Memory Repository
// ══════════════════════════════════════════════════════════════════════════════

// ProgressStore is an in-memory implementation of learner.Repository.
//
// Concurrency model: a registry RWMutex guards the user map itself;
// each record carries its own mutex, so mutations for one user are
// linearizable while different users never contend. All reads return
// deep copies.
type ProgressStore struct {
	mu      sync.RWMutex
	records map[learner.UserID]*progressEntry

	clock timeutil.Clock
}

// progressEntry pairs a record with its per-user lock.
type progressEntry struct {
	mu       sync.Mutex
	progress *learner.Progress
}

// NewProgressStore creates an empty store. A nil clock defaults to real time.
func NewProgressStore(clock timeutil.Clock) *ProgressStore {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &ProgressStore{
		records: make(map[learner.UserID]*progressEntry),
		clock:   clock,
	}
}

// entryFor returns the entry for a user, creating it under the registry
// lock if missing. Returns an error only for an invalid id.
func (s *ProgressStore) entryFor(userID learner.UserID) (*progressEntry, error) {
	if !userID.IsValid() {
		return nil, shared.NewDomainError("learner", "get_or_create", shared.ErrInvalidID,
			"user id must be non-empty")
	}

	s.mu.RLock()
	entry, ok := s.records[userID]
	s.mu.RUnlock()
	if ok {
		return entry, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check: another goroutine may have created it between locks.
	if entry, ok := s.records[userID]; ok {
		return entry, nil
	}

	progress, err := learner.NewProgress(userID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	entry = &progressEntry{progress: progress}
	s.records[userID] = entry
	return entry, nil
}

// lookup returns the entry without creating it.
func (s *ProgressStore) lookup(userID learner.UserID) (*progressEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.records[userID]
	return entry, ok
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// GetOrCreate returns the existing record or creates a fresh one.
func (s *ProgressStore) GetOrCreate(ctx context.Context, userID learner.UserID) (*learner.Progress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := s.entryFor(userID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.progress.Clone(), nil
}

// RecordAnswer applies a single answer atomically for the user.
// A rejected operation leaves the record untouched.
func (s *ProgressStore) RecordAnswer(ctx context.Context, userID learner.UserID, topic learner.Topic, isCorrect bool, ts time.Time) (learner.AnswerRecord, error) {
	if err := ctx.Err(); err != nil {
		return learner.AnswerRecord{}, err
	}

	entry, err := s.entryFor(userID)
	if err != nil {
		return learner.AnswerRecord{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	change, err := entry.progress.RecordAnswer(topic, isCorrect, ts)
	if err != nil {
		return learner.AnswerRecord{}, shared.NewDomainError("learner", "record_answer", err,
			fmt.Sprintf("user %s: %v", userID, err))
	}

	return learner.AnswerRecord{
		Progress: entry.progress.Clone(),
		Streak:   change,
	}, nil
}

// AddStudyMinutes credits study time to the user.
func (s *ProgressStore) AddStudyMinutes(ctx context.Context, userID learner.UserID, minutes int, ts time.Time) (*learner.Progress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := s.entryFor(userID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := entry.progress.AddStudyMinutes(minutes, ts); err != nil {
		return nil, shared.NewDomainError("learner", "add_study_minutes", err,
			fmt.Sprintf("user %s: %v", userID, err))
	}

	return entry.progress.Clone(), nil
}

// SelectTrack unconditionally overwrites the selected track.
func (s *ProgressStore) SelectTrack(ctx context.Context, userID learner.UserID, track learner.Track, ts time.Time) (*learner.Progress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := s.entryFor(userID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.progress.SelectTrack(track, ts)
	return entry.progress.Clone(), nil
}

// ApplyAchievements unlocks the given achievements, skipping any already
// held, and returns the ids actually added.
func (s *ProgressStore) ApplyAchievements(ctx context.Context, userID learner.UserID, defs []learner.AchievementDefinition, at time.Time) ([]learner.AchievementID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := s.entryFor(userID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	added := make([]learner.AchievementID, 0, len(defs))
	for _, def := range defs {
		if entry.progress.UnlockAchievement(def.ID, def.Points, at) {
			added = append(added, def.ID)
		}
	}
	return added, nil
}

// Snapshot returns a copy of the user's record, or shared.ErrNotFound.
func (s *ProgressStore) Snapshot(ctx context.Context, userID learner.UserID) (*learner.Progress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, ok := s.lookup(userID)
	if !ok {
		return nil, shared.NewDomainError("learner", "snapshot", shared.ErrNotFound,
			fmt.Sprintf("no progress for user %s", userID))
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.progress.Clone(), nil
}

// All returns copies of every record, ordered by user id for stable output.
func (s *ProgressStore) All(ctx context.Context) ([]*learner.Progress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entries := make([]*progressEntry, 0, len(s.records))
	for _, entry := range s.records {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	result := make([]*learner.Progress, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		result = append(result, entry.progress.Clone())
		entry.mu.Unlock()
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UserID < result[j].UserID
	})

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE EXPORT / IMPORT
// ══════════════════════════════════════════════════════════════════════════════

// storeSnapshot is the serialized form of the whole store.
type storeSnapshot struct {
	ExportedAt time.Time          `json:"exported_at"`
	Records    []progressSnapshot `json:"records"`
}

// progressSnapshot mirrors learner.Progress with stable JSON field names.
type progressSnapshot struct {
	UserID           string               `json:"user_id"`
	SelectedTrack    string               `json:"selected_track,omitempty"`
	StudyStreak      int                  `json:"study_streak"`
	TotalQuestions   int                  `json:"total_questions"`
	CorrectAnswers   int                  `json:"correct_answers"`
	StudyScore       int                  `json:"study_score"`
	StudyTimeMinutes int                  `json:"study_time_minutes"`
	LastStudyDate    time.Time            `json:"last_study_date,omitempty"`
	TopicStats       map[string]topicStat `json:"topic_stats,omitempty"`
	Achievements     map[string]time.Time `json:"achievements,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

type topicStat struct {
	Attempts int `json:"attempts"`
	Correct  int `json:"correct"`
}

// ExportState returns a JSON snapshot of the entire store.
func (s *ProgressStore) ExportState(ctx context.Context) ([]byte, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := storeSnapshot{
		ExportedAt: s.clock.Now(),
		Records:    make([]progressSnapshot, 0, len(all)),
	}
	for _, p := range all {
		snapshot.Records = append(snapshot.Records, toSnapshot(p))
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, shared.WrapError("learner", "export_state", shared.ErrInvalidInput,
			"failed to marshal state snapshot", err)
	}
	return data, nil
}

// ImportState replaces the current state with the given snapshot.
func (s *ProgressStore) ImportState(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var snapshot storeSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return shared.NewDomainError("learner", "import_state", shared.ErrInvalidInput,
			fmt.Sprintf("malformed snapshot: %v", err))
	}

	records := make(map[learner.UserID]*progressEntry, len(snapshot.Records))
	for _, rec := range snapshot.Records {
		progress, err := fromSnapshot(rec)
		if err != nil {
			return shared.NewDomainError("learner", "import_state", shared.ErrInvalidInput,
				fmt.Sprintf("record %q: %v", rec.UserID, err))
		}
		records[progress.UserID] = &progressEntry{progress: progress}
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return nil
}

func toSnapshot(p *learner.Progress) progressSnapshot {
	rec := progressSnapshot{
		UserID:           p.UserID.String(),
		SelectedTrack:    p.SelectedTrack.String(),
		StudyStreak:      p.StudyStreak,
		TotalQuestions:   p.TotalQuestions,
		CorrectAnswers:   p.CorrectAnswers,
		StudyScore:       p.StudyScore,
		StudyTimeMinutes: p.StudyTimeMinutes,
		LastStudyDate:    p.LastStudyDate,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}

	if len(p.TopicStats) > 0 {
		rec.TopicStats = make(map[string]topicStat, len(p.TopicStats))
		for topic, stat := range p.TopicStats {
			rec.TopicStats[topic.String()] = topicStat{Attempts: stat.Attempts, Correct: stat.Correct}
		}
	}

	if len(p.Achievements) > 0 {
		rec.Achievements = make(map[string]time.Time, len(p.Achievements))
		for id, at := range p.Achievements {
			rec.Achievements[string(id)] = at
		}
	}

	return rec
}

func fromSnapshot(rec progressSnapshot) (*learner.Progress, error) {
	userID := learner.UserID(rec.UserID)
	if !userID.IsValid() {
		return nil, learner.ErrEmptyUserID
	}
	if rec.CorrectAnswers > rec.TotalQuestions {
		return nil, fmt.Errorf("correct answers %d exceed total questions %d",
			rec.CorrectAnswers, rec.TotalQuestions)
	}

	progress := &learner.Progress{
		UserID:           userID,
		SelectedTrack:    learner.Track(rec.SelectedTrack),
		StudyStreak:      rec.StudyStreak,
		TotalQuestions:   rec.TotalQuestions,
		CorrectAnswers:   rec.CorrectAnswers,
		StudyScore:       rec.StudyScore,
		StudyTimeMinutes: rec.StudyTimeMinutes,
		LastStudyDate:    rec.LastStudyDate,
		TopicStats:       make(map[learner.Topic]learner.TopicStat, len(rec.TopicStats)),
		Achievements:     make(map[learner.AchievementID]time.Time, len(rec.Achievements)),
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}

	for topic, stat := range rec.TopicStats {
		if stat.Correct > stat.Attempts {
			return nil, fmt.Errorf("topic %q: correct %d exceeds attempts %d",
				topic, stat.Correct, stat.Attempts)
		}
		progress.TopicStats[learner.Topic(topic)] = learner.TopicStat{
			Attempts: stat.Attempts,
			Correct:  stat.Correct,
		}
	}

	for id, at := range rec.Achievements {
		progress.Achievements[learner.AchievementID(id)] = at
	}

	return progress, nil
}
