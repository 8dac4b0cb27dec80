package scheduler

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULES
// ══════════════════════════════════════════════════════════════════════════════

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every creates an IntervalSchedule.
func Every(interval time.Duration) IntervalSchedule {
	if interval <= 0 {
		interval = time.Minute
	}
	return IntervalSchedule{Interval: interval}
}

// Next implements Schedule.
func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String implements Schedule.
func (s IntervalSchedule) String() string {
	return fmt.Sprintf("every %s", s.Interval)
}

// DailySchedule runs a job once per day at a fixed UTC time.
type DailySchedule struct {
	Hour   int // 0-23
	Minute int // 0-59
}

// DailyAt creates a DailySchedule. Out-of-range values are clamped.
func DailyAt(hour, minute int) DailySchedule {
	if hour < 0 || hour > 23 {
		hour = 0
	}
	if minute < 0 || minute > 59 {
		minute = 0
	}
	return DailySchedule{Hour: hour, Minute: minute}
}

// Next implements Schedule.
func (s DailySchedule) Next(t time.Time) time.Time {
	u := t.UTC()
	next := time.Date(u.Year(), u.Month(), u.Day(), s.Hour, s.Minute, 0, 0, time.UTC)
	if !next.After(u) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// String implements Schedule.
func (s DailySchedule) String() string {
	return fmt.Sprintf("daily at %02d:%02d UTC", s.Hour, s.Minute)
}
