// Package scheduler runs recurring scans on cron schedules.
// Each job wraps one scan pass; overlapping runs of the same job are skipped
// and a panicking job never takes the scheduler down.
package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/anstrom/skim/internal/logging"
)

var (
	// ErrJobNotFound is returned for an unknown job ID.
	ErrJobNotFound = stderrors.New("job not found")

	// ErrAlreadyRunning is returned by Start on a running scheduler.
	ErrAlreadyRunning = stderrors.New("scheduler is already running")
)

// JobFunc performs one run of a scheduled job.
type JobFunc func(ctx context.Context) error

// Scheduler manages scheduled scan jobs.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[uuid.UUID]*ScheduledJob
	mu      sync.RWMutex
	running bool
	stopped bool
	active  sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *logging.Logger
}

// ScheduledJob is a job registered with the scheduler.
type ScheduledJob struct {
	ID       uuid.UUID
	Name     string
	Schedule string
	CronID   cron.EntryID
	LastRun  time.Time
	LastErr  error
	Runs     int
	Running  bool

	run JobFunc
}

// JobStatus is a point-in-time copy of a job's state.
type JobStatus struct {
	ID       uuid.UUID
	Name     string
	Schedule string
	LastRun  time.Time
	LastErr  error
	NextRun  time.Time
	Runs     int
	Running  bool
}

// NewScheduler creates a new job scheduler.
func NewScheduler(logger *logging.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(),
		jobs:   make(map[uuid.UUID]*ScheduledJob),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.WithComponent("scheduler"),
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("Scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop stops the scheduler, cancels in-flight runs and waits for them to
// return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopped = true
	s.mu.Unlock()

	done := s.cron.Stop()
	s.cancel()
	<-done.Done()
	s.active.Wait()

	s.logger.Info("Scheduler stopped")
}

// AddJob registers fn under a standard five-field cron expression or a
// descriptor such as "@hourly".
func (s *Scheduler) AddJob(name, schedule string, fn JobFunc) (uuid.UUID, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return uuid.Nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	job := &ScheduledJob{
		ID:       uuid.New(),
		Name:     name,
		Schedule: schedule,
		run:      fn,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cronID, err := s.cron.AddFunc(schedule, func() {
		s.executeJob(job.ID)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to add cron job: %w", err)
	}
	job.CronID = cronID
	s.jobs[job.ID] = job

	s.logger.Info("Added scheduled job", "job", name, "schedule", schedule)
	return job.ID, nil
}

// RunNow runs a job immediately in the calling goroutine, subject to the
// same overlap rule as scheduled runs.
func (s *Scheduler) RunNow(jobID uuid.UUID) error {
	s.mu.RLock()
	_, exists := s.jobs[jobID]
	s.mu.RUnlock()
	if !exists {
		return ErrJobNotFound
	}

	s.executeJob(jobID)
	return nil
}

// Jobs returns the state of every registered job.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for _, job := range s.jobs {
		status := JobStatus{
			ID:       job.ID,
			Name:     job.Name,
			Schedule: job.Schedule,
			LastRun:  job.LastRun,
			LastErr:  job.LastErr,
			Runs:     job.Runs,
			Running:  job.Running,
		}
		if entry := s.cron.Entry(job.CronID); entry.Valid() {
			status.NextRun = entry.Next
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// executeJob runs one pass of a job, recovering from panics.
func (s *Scheduler) executeJob(jobID uuid.UUID) {
	job, shouldContinue := s.prepareJobExecution(jobID)
	if !shouldContinue {
		return
	}

	logger := s.logger.WithFields("job", job.Name)
	var runErr error

	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("job panicked: %v", r)
			logger.Error("Scheduled job panicked", "panic", r)
		}
		s.cleanupJobExecution(jobID, runErr)
	}()

	logger.Info("Executing scheduled job")
	start := time.Now()

	runErr = job.run(s.ctx)
	if runErr != nil {
		logger.Warn("Scheduled job failed", "error", runErr, "elapsed", time.Since(start))
		return
	}

	logger.Info("Scheduled job completed", "elapsed", time.Since(start))
}

// prepareJobExecution marks a job as running unless it already is.
func (s *Scheduler) prepareJobExecution(jobID uuid.UUID) (*ScheduledJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || s.stopped {
		return nil, false
	}

	if job.Running {
		s.logger.Warn("Scheduled job is still running, skipping", "job", job.Name)
		return nil, false
	}

	job.Running = true
	job.LastRun = time.Now()
	s.active.Add(1)
	return job, true
}

// cleanupJobExecution records the outcome and marks the job as idle.
func (s *Scheduler) cleanupJobExecution(jobID uuid.UUID, runErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.active.Done()

	if job, exists := s.jobs[jobID]; exists {
		job.Running = false
		job.LastErr = runErr
		job.Runs++
	}
}
