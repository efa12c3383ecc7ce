// Package scheduler wraps robfig/cron with named jobs and per-run timeout
// contexts.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled task.
type Job func(ctx context.Context) error

// jobTimeout bounds a single run so a stuck cycle cannot overlap the next
// ones forever.
const jobTimeout = 30 * time.Minute

// Scheduler manages periodic tasks.
type Scheduler struct {
	cron *cron.Cron
	jobs map[string]cron.EntryID
	log  zerolog.Logger
}

// New creates a scheduler.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: make(map[string]cron.EntryID),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// AddJob adds a job with a cron schedule expression.
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		s.log.Info().Str("job", name).Msg("job starting")
		start := time.Now()

		if err := job(ctx); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("job failed")
		} else {
			s.log.Info().Str("job", name).Dur("took", time.Since(start)).Msg("job completed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.log.Info().Str("job", name).Str("schedule", schedule).Msg("job added")
	return nil
}

// AddEvery adds a job on a fixed interval.
func (s *Scheduler) AddEvery(name string, interval time.Duration, job Job) error {
	return s.AddJob(name, fmt.Sprintf("@every %s", interval), job)
}

// RemoveJob removes a scheduled job.
func (s *Scheduler) RemoveJob(name string) {
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.log.Info().Str("job", name).Msg("job removed")
	}
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.log.Info().Msg("scheduler starting")
	s.cron.Start()
}

// Stop halts the scheduler and returns a context that is done when all
// running jobs have finished.
func (s *Scheduler) Stop() context.Context {
	s.log.Info().Msg("scheduler stopping")
	return s.cron.Stop()
}

// RunNow immediately executes a job outside its schedule.
func (s *Scheduler) RunNow(name string, job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	s.log.Info().Str("job", name).Msg("running job now")
	return job(ctx)
}

// JobInfo contains information about a scheduled job.
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// ListJobs returns info about scheduled jobs.
func (s *Scheduler) ListJobs() []JobInfo {
	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(entries))

	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: entry.Next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}

	return infos
}
