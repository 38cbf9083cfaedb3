package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/semmidev/pgkeeper/internal/config"
	"github.com/semmidev/pgkeeper/internal/domain"
)

const DefaultPollInterval = 60 * time.Second

type Job func(ctx context.Context) error

type Logger interface {
	Infof(template string, args ...interface{})
}

// Scheduler runs a job once at startup and then whenever the schedule is due,
// checking every poll interval. Runs never overlap: due times that pass while
// a run is in progress are dropped.
type Scheduler struct {
	schedule cron.Schedule
	poll     time.Duration
	logger   Logger
	now      func() time.Time
	next     time.Time
}

func New(schedule cron.Schedule, logger Logger) *Scheduler {
	return &Scheduler{
		schedule: schedule,
		poll:     DefaultPollInterval,
		logger:   logger,
		now:      time.Now,
	}
}

// ScheduleFor maps a configured cadence onto a cron schedule in local time.
func ScheduleFor(spec config.ScheduleSpec) (cron.Schedule, error) {
	switch spec.Kind {
	case config.Daily:
		return cron.ParseStandard(fmt.Sprintf("%d %d * * *", spec.Minute, spec.Hour))
	case config.Hourly:
		return cron.Every(time.Hour), nil
	case config.EveryNMinutes:
		if spec.Minutes <= 0 {
			return nil, fmt.Errorf("%w: every %d minutes", domain.ErrInvalidSchedule, spec.Minutes)
		}
		return cron.Every(time.Duration(spec.Minutes) * time.Minute), nil
	default:
		return nil, fmt.Errorf("%w: kind %d", domain.ErrInvalidSchedule, spec.Kind)
	}
}

// Run blocks until ctx is cancelled or the job fails. An in-flight job is
// never interrupted by the scheduler itself.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	if err := s.start(ctx, job); err != nil {
		return err
	}

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infof("Scheduler stopped")
			return nil
		case <-ticker.C:
			if err := s.tick(ctx, job); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) start(ctx context.Context, job Job) error {
	s.logger.Infof("Running startup backup")
	return s.run(ctx, job)
}

func (s *Scheduler) tick(ctx context.Context, job Job) error {
	if ctx.Err() != nil || s.now().Before(s.next) {
		return nil
	}
	return s.run(ctx, job)
}

// run executes job and computes the next due time from the clock after it returns.
func (s *Scheduler) run(ctx context.Context, job Job) error {
	if err := job(ctx); err != nil {
		return err
	}
	s.next = s.schedule.Next(s.now())
	s.logger.Infof("Next backup at %s", s.next.Format(time.DateTime))
	return nil
}
