// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrJobRunning is returned by RunNow when the job is already running
var ErrJobRunning = errors.New("job is already running")

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobStatus is the run history of one job
type JobStatus struct {
	Name         string    `json:"name"`
	Schedule     string    `json:"schedule,omitempty"`
	Running      bool      `json:"running"`
	Runs         int       `json:"runs"`
	Failures     int       `json:"failures"`
	LastStarted  time.Time `json:"last_started,omitempty"`
	LastDuration string    `json:"last_duration,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

// Scheduler manages background jobs. A job never runs twice at the same
// time: a scheduled tick that finds it running is skipped.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu     sync.Mutex
	status map[string]*JobStatus
}

// New creates a new scheduler using standard five-field cron expressions
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		log:    log.With().Str("component", "scheduler").Logger(),
		status: make(map[string]*JobStatus),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job on a cron schedule, e.g. "15 3 * * *" or "@every 6h"
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.run(job, "scheduled"); errors.Is(err, ErrJobRunning) {
			s.log.Warn().Str("job", job.Name()).Msg("Previous run still in progress, skipping tick")
		}
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entryLocked(job.Name()).Schedule = schedule
	s.mu.Unlock()

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	return s.run(job, "manual")
}

// Status returns the run history of every known job, sorted by name
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]JobStatus, 0, len(s.status))
	for _, st := range s.status {
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// entryLocked returns the status record for name; s.mu must be held
func (s *Scheduler) entryLocked(name string) *JobStatus {
	st, ok := s.status[name]
	if !ok {
		st = &JobStatus{Name: name}
		s.status[name] = st
	}
	return st
}

func (s *Scheduler) run(job Job, trigger string) error {
	name := job.Name()

	s.mu.Lock()
	st := s.entryLocked(name)
	if st.Running {
		s.mu.Unlock()
		return ErrJobRunning
	}
	st.Running = true
	started := time.Now()
	st.LastStarted = started
	s.mu.Unlock()

	s.log.Debug().Str("job", name).Str("trigger", trigger).Msg("Running job")
	err := job.Run()
	elapsed := time.Since(started)

	s.mu.Lock()
	st.Running = false
	st.Runs++
	st.LastDuration = elapsed.String()
	st.LastError = ""
	if err != nil {
		st.Failures++
		st.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error().
			Err(err).
			Str("job", name).
			Str("trigger", trigger).
			Dur("duration", elapsed).
			Msg("Job failed")
		return err
	}

	s.log.Info().
		Str("job", name).
		Str("trigger", trigger).
		Dur("duration", elapsed).
		Msg("Job completed")
	return nil
}
