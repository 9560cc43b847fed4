// internal/scheduler/scheduler.go
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is a named periodic function.
type Job struct {
	Name     string
	Schedule string
	Enabled  bool
	Run      func()
}

// Scheduler evaluates cron expressions and fires registered jobs.
type Scheduler struct {
	mu   sync.Mutex
	jobs []Job
	cron *cron.Cron
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field, plus descriptors such as
// "@every 5m".
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithParser(cronParser)),
	}
}

// Validate reports whether schedule parses.
func Validate(schedule string) error {
	if _, err := cronParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// Add registers a job. It takes effect on the next Start.
func (s *Scheduler) Add(job Job) error {
	if job.Schedule != "" {
		if err := Validate(job.Schedule); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return nil
}

// Start registers enabled jobs that have a schedule as cron entries and
// starts the cron ticker.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if job.Schedule == "" || !job.Enabled || job.Run == nil {
			continue
		}

		name := job.Name
		run := job.Run

		_, err := s.cron.AddFunc(job.Schedule, func() {
			slog.Debug("cron firing job", "name", name)
			run()
		})
		if err != nil {
			slog.Error("invalid cron schedule", "name", name, "schedule", job.Schedule, "error", err)
			continue
		}
		slog.Info("scheduled job", "name", name, "schedule", job.Schedule)
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron ticker and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()
	<-c.Stop().Done()
}
