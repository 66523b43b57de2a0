package export

import (
	"context"
	"log/slog"
	"time"

	"ifscore/score"
)

// SchedulerConfig configures the nightly export scheduler.
type SchedulerConfig struct {
	Reporter *Reporter
	// Interval overrides the daily cadence when positive.
	Interval  time.Duration
	RunHour   int
	RunMinute int
	Logger    *slog.Logger
}

// Scheduler executes export runs on a fixed cadence.
type Scheduler struct {
	reporter  *Reporter
	interval  time.Duration
	runHour   int
	runMinute int
	logger    *slog.Logger
}

// NewScheduler constructs a scheduler with sane defaults.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		reporter:  cfg.Reporter,
		interval:  cfg.Interval,
		runHour:   clampHour(cfg.RunHour),
		runMinute: clampMinute(cfg.RunMinute),
		logger:    logger,
	}
}

// Start begins the scheduling loop until the context is cancelled. Each firing
// evaluates the UTC day that completed before the run.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.reporter == nil {
		return
	}
	for {
		now := time.Now().UTC()
		delay := s.interval
		if delay <= 0 {
			delay = s.nextRun(now).Sub(now)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			day := score.DayOf(time.Now().UTC()).Prev()
			if _, err := s.reporter.Run(ctx, day); err != nil {
				s.logger.Error("export run failed", "error", err, "day", day.String())
			}
		}
	}
}

func (s *Scheduler) nextRun(after time.Time) time.Time {
	target := time.Date(after.Year(), after.Month(), after.Day(), s.runHour, s.runMinute, 0, 0, time.UTC)
	if !target.After(after) {
		target = target.Add(24 * time.Hour)
	}
	return target
}

func clampHour(hour int) int {
	if hour < 0 {
		return 0
	}
	if hour > 23 {
		return 23
	}
	return hour
}

func clampMinute(minute int) int {
	if minute < 0 {
		return 0
	}
	if minute > 59 {
		return 59
	}
	return minute
}
