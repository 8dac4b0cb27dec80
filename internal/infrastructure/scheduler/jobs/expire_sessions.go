// Package jobs contains the scheduled job implementations for the study hub.
package jobs

import (
	"context"
	"fmt"

	"github.com/studyhub/comptia-study-hub/internal/domain/pomodoro"
	"github.com/studyhub/comptia-study-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE SESSIONS JOB
// ══════════════════════════════════════════════════════════════════════════════

// SessionSweeper is the slice of the timer manager this job needs.
type SessionSweeper interface {
	ExpireDue(ctx context.Context) ([]*pomodoro.Session, error)
}

// ExpireSessionsJob sweeps pomodoro timers and completes those that have
// run past their duration. Sessions that users never poll still complete;
// the completion events carry study-time crediting and notifications.
type ExpireSessionsJob struct {
	sweeper SessionSweeper
	log     *logger.Logger
}

// NewExpireSessionsJob creates the sweep job.
func NewExpireSessionsJob(sweeper SessionSweeper, log *logger.Logger) *ExpireSessionsJob {
	if log == nil {
		log = logger.Default()
	}
	return &ExpireSessionsJob{
		sweeper: sweeper,
		log:     log.With(logger.Component("expire_sessions")),
	}
}

// Name implements scheduler.Job.
func (j *ExpireSessionsJob) Name() string {
	return "expire_sessions"
}

// Description implements scheduler.Job.
func (j *ExpireSessionsJob) Description() string {
	return "Completes pomodoro sessions that have run past their duration"
}

// Run implements scheduler.Job.
func (j *ExpireSessionsJob) Run(ctx context.Context) error {
	completed, err := j.sweeper.ExpireDue(ctx)
	if err != nil {
		return fmt.Errorf("expire sessions sweep: %w", err)
	}
	if len(completed) > 0 {
		j.log.Info("sessions expired", logger.Int("count", len(completed)))
	}
	return nil
}
