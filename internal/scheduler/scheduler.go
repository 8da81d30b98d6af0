// Package scheduler clears completion flags for repeating goals when their
// recurrence boundary passes. It works straight against the store; cached
// goal instances go stale until their next explicit fetch.
package scheduler

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/limbo/goalbot/internal/repository"
	"github.com/limbo/goalbot/pkg/entity"
)

type Scheduler struct {
	goals  repository.GoalsRepositoryI
	logger *slog.Logger
}

func New(goalsRepo repository.GoalsRepositoryI, logger *slog.Logger) *Scheduler {
	if goalsRepo == nil {
		log.Fatal("provided nil goalsRepo to scheduler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		goals:  goalsRepo,
		logger: logger,
	}
}

// Run ticks once at every UTC midnight until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(time.Until(nextMidnightUTC(time.Now().UTC())))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case now := <-timer.C:
			if err := s.ResetDue(ctx, now.UTC()); err != nil {
				s.logger.Error("recurrence reset failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ResetDue runs the bulk resets that are due at the given instant. Daily
// goals reset on every tick; weekly on Mondays, monthly on the 1st, yearly
// on January 1st. The updates are independent and idempotent.
func (s *Scheduler) ResetDue(ctx context.Context, now time.Time) error {
	due := []entity.RepeatType{entity.RepeatDaily}
	if now.Weekday() == time.Monday {
		due = append(due, entity.RepeatWeekly)
	}
	if now.Day() == 1 {
		due = append(due, entity.RepeatMonthly)
	}
	if now.Day() == 1 && now.Month() == time.January {
		due = append(due, entity.RepeatYearly)
	}
	for _, repeat := range due {
		affected, err := s.goals.ResetCompleted(ctx, repeat)
		if err != nil {
			return err
		}
		s.logger.Info("recurrence reset",
			slog.String("repeat", repeat.Display()),
			slog.Int64("goals", affected),
		)
	}
	return nil
}

func nextMidnightUTC(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
