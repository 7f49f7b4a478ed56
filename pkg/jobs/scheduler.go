package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/smith3v/tg-habit-tracker/pkg/config"
	"github.com/smith3v/tg-habit-tracker/pkg/logger"
)

type JobFunc func(ctx context.Context) (Summary, error)

// UnknownJobError is returned by RunNow for a name no job is registered under.
type UnknownJobError struct {
	Name string
}

func (e UnknownJobError) Error() string {
	return fmt.Sprintf("unknown job %q", e.Name)
}

// Scheduler runs the jobs on their cron expressions. Runs of different jobs
// may overlap; each run is independent.
type Scheduler struct {
	cron     *cron.Cron
	jobs     map[string]JobFunc
	schedule map[string]string
}

// Registry maps every job name to the runner method implementing it.
func Registry(r *Runner) map[string]JobFunc {
	return map[string]JobFunc{
		config.JobHourlyUpcoming:     r.HourlyUpcoming,
		config.JobMorningDigest:      r.MorningDigest,
		config.JobInactivityCheck:    r.InactivityCheck,
		config.JobRetentionCleanup:   r.RetentionCleanup,
		config.JobStatisticsSnapshot: r.StatisticsSnapshot,
	}
}

// NewScheduler validates the cron expressions in cfg and registers every
// enabled job. A job whose expression is "-" can still be run with RunNow.
func NewScheduler(jobs map[string]JobFunc, cfg config.SchedulerConfig) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone: %w", err)
	}
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		jobs:     jobs,
		schedule: make(map[string]string, len(cfg.Jobs)),
	}

	for name, expr := range cfg.Jobs {
		expr = strings.TrimSpace(expr)
		if expr == "" || expr == config.DisabledSchedule {
			logger.Info("scheduled job disabled", "job", name)
			continue
		}
		if _, ok := jobs[name]; !ok {
			return nil, UnknownJobError{Name: name}
		}
		if _, err := s.cron.AddFunc(expr, func() {
			_, _ = s.run(context.Background(), name)
		}); err != nil {
			return nil, fmt.Errorf("schedule %s (%q): %w", name, expr, err)
		}
		s.schedule[name] = expr
	}
	return s, nil
}

// Start runs the scheduler until ctx is cancelled, then waits for running
// jobs to finish.
func (s *Scheduler) Start(ctx context.Context) {
	for _, name := range s.Names() {
		if expr, ok := s.schedule[name]; ok {
			logger.Info("job scheduled", "job", name, "cron", expr)
		}
	}
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	logger.Info("scheduler stopped")
}

func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schedule returns the cron expression of every enabled job.
func (s *Scheduler) Schedule() map[string]string {
	out := make(map[string]string, len(s.schedule))
	for name, expr := range s.schedule {
		out[name] = expr
	}
	return out
}

// RunNow executes the named job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) (Summary, error) {
	if _, ok := s.jobs[name]; !ok {
		return Summary{}, UnknownJobError{Name: name}
	}
	return s.run(ctx, name)
}

// run is the failure boundary of a job: errors and panics are logged with the
// run id and never reach the cron loop.
func (s *Scheduler) run(ctx context.Context, name string) (summary Summary, err error) {
	runID := uuid.NewString()
	started := time.Now()
	logger.Info("job started", "job", name, "run_id", runID)

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", name, p)
		}
		elapsed := time.Since(started)
		if err != nil {
			logger.Error("job failed", "job", name, "run_id", runID, "elapsed", elapsed, "error", err)
			return
		}
		logger.Info("job finished", "job", name, "run_id", runID, "elapsed", elapsed, "summary", summary.String())
	}()

	return s.jobs[name](ctx)
}
