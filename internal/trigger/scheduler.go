package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron"

	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
)

// DefaultSchedule runs every two hours on the hour. The first field is seconds.
const DefaultSchedule = "0 0 */2 * * *"

// DefaultTimezone is the zone the schedule is evaluated in.
const DefaultTimezone = "Europe/Athens"

// Scheduler fires Runner on a cron schedule in a named time zone.
// A tick that finds a run in progress is skipped.
type Scheduler struct {
	runner   *Runner
	spec     string
	location *time.Location
	schedule cron.Schedule
	log      logger.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup
}

// NewScheduler validates spec and timezone.
func NewScheduler(runner *Runner, spec, timezone string, log logger.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	if timezone == "" {
		timezone = DefaultTimezone
	}
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}

	schedule, err := cron.Parse(spec)
	if err != nil {
		return nil, errors.Newf("invalid schedule %q: %w", spec, err).
			Component("trigger").
			Category(errors.CategoryConfiguration).
			Build()
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errors.Newf("invalid schedule timezone %q: %w", timezone, err).
			Component("trigger").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return &Scheduler{
		runner:   runner,
		spec:     spec,
		location: loc,
		schedule: schedule,
		log:      log,
	}, nil
}

// Start begins firing. Runs started by the scheduler are cancelled when ctx
// ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.Newf("scheduler already started").
			Component("trigger").
			Category(errors.CategoryState).
			Build()
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	c := cron.NewWithLocation(s.location)
	if err := c.AddFunc(s.spec, s.tick); err != nil {
		s.cancel()
		return errors.New(err).Component("trigger").Category(errors.CategoryConfiguration).Build()
	}
	c.Start()
	s.cron = c

	s.log.Info("scheduler started",
		logger.String("schedule", s.spec),
		logger.String("timezone", s.location.String()),
		logger.Time("next_run", s.Next(time.Now())))
	return nil
}

// Stop halts the timer, cancels an active scheduled run and waits for it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	cancel := s.cancel
	s.mu.Unlock()

	if c == nil {
		return
	}
	c.Stop()
	cancel()
	s.jobs.Wait()
	s.log.Info("scheduler stopped")
}

// Next returns the first fire time after t, in the scheduler's zone.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	if s.cron == nil {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.jobs.Add(1)
	s.mu.Unlock()
	defer s.jobs.Done()

	_, err := s.runner.RunFrom(ctx, SourceCron, nil)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.log.Warn("scheduled run skipped, previous run still active")
	case err != nil:
		// the runner already logged the per-scope failures
		s.log.Debug("scheduled run failed", logger.Error(err))
	}
}
