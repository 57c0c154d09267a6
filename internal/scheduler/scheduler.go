package scheduler

import (
	"context"
	"log/slog"
	"time"

	"xdigest/internal/digest"
	"xdigest/internal/model"
	"xdigest/internal/settings"
)

// Job is the daily digest run.
type Job interface {
	Run(ctx context.Context) digest.Result
}

// ScheduleFunc returns the current HH:MM run time. It is called on every tick
// so edits made through the settings page apply without a restart.
type ScheduleFunc func() (string, error)

// Scheduler triggers the daily job once local time passes the scheduled time.
type Scheduler struct {
	job      Job
	schedule ScheduleFunc
	log      *slog.Logger
	tick     time.Duration
	backoff  time.Duration
	now      func() time.Time

	doneDay   string
	nextRetry time.Time
}

// New creates a Scheduler that checks every minute.
func New(job Job, schedule ScheduleFunc, log *slog.Logger) *Scheduler {
	return &Scheduler{
		job:      job,
		schedule: schedule,
		log:      log,
		tick:     1 * time.Minute,
		backoff:  30 * time.Minute,
		now:      time.Now,
	}
}

// SetTickInterval overrides the default 1-minute check interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// SetRetryInterval sets how long to wait after a run that did not send
// before trying again on the same day.
func (s *Scheduler) SetRetryInterval(d time.Duration) {
	s.backoff = d
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.check(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *Scheduler) check(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	now := s.now()
	day := now.Format(time.DateOnly)
	if s.doneDay == day || now.Before(s.nextRetry) {
		return
	}

	at, err := s.schedule()
	if err != nil {
		s.log.Error("read schedule", "error", err)
		return
	}
	hour, minute, err := settings.ParseScheduleTime(at)
	if err != nil {
		s.log.Error("invalid schedule time", "schedule_time", at, "error", err)
		return
	}
	due := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if now.Before(due) {
		return
	}

	s.log.Debug("running scheduled digest", "schedule_time", at)
	res := s.job.Run(ctx)

	switch res.Outcome {
	case model.OutcomeSent, model.OutcomeAlreadySent:
		s.doneDay = day
	default:
		s.nextRetry = now.Add(s.backoff)
		s.log.Info("digest not sent, will retry", "outcome", res.Outcome, "at", s.nextRetry.Format(time.TimeOnly))
	}
}
