package command

import (
	"context"
	"time"

	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
)

// applyAchievements evaluates the achievement catalog against a progress
// snapshot, merges new unlocks into the store and publishes an event per
// unlock. The evaluator is idempotent, so concurrent callers at worst race
// to apply the same unlock and the store deduplicates.
func applyAchievements(
	ctx context.Context,
	repo learner.Repository,
	evaluator *learner.Evaluator,
	publisher shared.EventPublisher,
	userID learner.UserID,
	snapshot *learner.Progress,
	now time.Time,
	correlationID string,
) ([]learner.AchievementDefinition, error) {
	candidates := evaluator.Evaluate(snapshot)
	if len(candidates) == 0 {
		return nil, nil
	}

	applied, err := repo.ApplyAchievements(ctx, userID, candidates, now)
	if err != nil {
		return nil, err
	}

	var unlocked []learner.AchievementDefinition
	for _, def := range candidates {
		for _, id := range applied {
			if def.ID != id {
				continue
			}
			unlocked = append(unlocked, def)
			event := shared.NewAchievementUnlockedEvent(userID.String(), string(def.ID), def.Name, def.Points)
			if correlationID != "" {
				event.BaseEvent = event.BaseEvent.WithCorrelationID(correlationID)
			}
			publishEvent(publisher, event)
			break
		}
	}
	return unlocked, nil
}

// publishEvent publishes an event. Publish errors are swallowed: the
// in-memory bus only fails when closed, and command outcomes must not
// depend on subscriber health.
func publishEvent(publisher shared.EventPublisher, event shared.Event) {
	if publisher == nil {
		return
	}
	_ = publisher.Publish(event)
}
