package scheduler

import (
	"context"
	"time"
)

// Job is a recurring housekeeping task.
type Job struct {
	ID       string
	Name     string
	Schedule string // cron expression with a seconds field, or an @every descriptor
	Run      func(ctx context.Context) error
}

// JobResult captures the outcome of one run.
type JobResult struct {
	JobID     string
	StartTime time.Time
	EndTime   time.Time
	Error     error
}

// JobHistory tracks run statistics for a job.
type JobHistory struct {
	JobID        string
	LastRun      time.Time
	LastStatus   string // "success", "failure", "timeout"
	LastDuration int64  // milliseconds
	RunCount     int
	SuccessCount int
	FailureCount int
}
