// Package scheduler runs the relay's periodic housekeeping (status updates,
// idle-session sweeps) on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs jobs on their cron schedules. A job that is still running
// when its next tick arrives is skipped for that tick.
type Scheduler struct {
	jobs    []Job
	cron    *cron.Cron
	history map[string]*JobHistory
	running map[string]bool
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler for the given jobs.
func NewScheduler(jobs []Job) *Scheduler {
	return &Scheduler{
		jobs:    jobs,
		history: make(map[string]*JobHistory),
		running: make(map[string]bool),
	}
}

// Start schedules every job and blocks until ctx is cancelled. It returns
// an error only if a schedule cannot be parsed.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New(cron.WithSeconds())
	s.mu.Unlock()
	defer s.cancel()

	for _, job := range s.jobs {
		job := job
		if _, err := s.cron.AddFunc(job.Schedule, func() { s.runJob(job) }); err != nil {
			return fmt.Errorf("failed to schedule job '%s' (%s): %w", job.ID, job.Schedule, err)
		}
		log.Printf("INFO: Job '%s' (%s) scheduled: %s", job.ID, job.Name, job.Schedule)
	}

	if len(s.jobs) == 0 {
		log.Printf("WARN: No housekeeping jobs to schedule")
		return nil
	}

	s.cron.Start()
	<-s.ctx.Done()

	log.Printf("INFO: Scheduler stopping...")
	s.Stop()
	return nil
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	c, cancel := s.cron, s.cancel
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		<-c.Stop().Done()
	}
}

// runJob executes one tick of a job unless the previous tick is still
// running.
func (s *Scheduler) runJob(job Job) {
	s.mu.Lock()
	if s.running[job.ID] {
		s.mu.Unlock()
		log.Printf("WARN: Job '%s' (%s) skipped: already running", job.ID, job.Name)
		return
	}
	s.running[job.ID] = true
	ctx := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, job.ID)
		s.mu.Unlock()
	}()

	if ctx == nil {
		ctx = context.Background()
	}

	result := JobResult{JobID: job.ID, StartTime: time.Now()}
	result.Error = job.Run(ctx)
	result.EndTime = time.Now()
	if result.Error != nil {
		log.Printf("ERROR: Job '%s' (%s) failed: %v", job.ID, job.Name, result.Error)
	}

	s.updateHistory(result)
}
