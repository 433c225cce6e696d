package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/stlalpha/tagrelay/internal/logging"
)

// Relay is the part of the broker housekeeping drives.
type Relay interface {
	PublishStats()
	SweepIdle(now time.Time) int
}

// Job ids.
const (
	JobStats     = "stats"
	JobIdleSweep = "idle-sweep"
)

// idleSweepEvery is fixed; the timeout itself is hot-reloadable and a zero
// timeout makes the sweep a no-op.
const idleSweepEvery = time.Second

// HousekeepingJobs returns the relay's periodic jobs: a status update every
// statsEvery (skipped when zero) and an idle-session sweep.
func HousekeepingJobs(r Relay, statsEvery time.Duration) []Job {
	var jobs []Job
	if statsEvery > 0 {
		jobs = append(jobs, Job{
			ID:       JobStats,
			Name:     "Relay status",
			Schedule: every(statsEvery),
			Run: func(context.Context) error {
				r.PublishStats()
				return nil
			},
		})
	}
	jobs = append(jobs, Job{
		ID:       JobIdleSweep,
		Name:     "Idle session sweep",
		Schedule: every(idleSweepEvery),
		Run: func(context.Context) error {
			if n := r.SweepIdle(time.Now()); n > 0 {
				logging.Debug("Idle sweep closed %d session(s)", n)
			}
			return nil
		},
	})
	return jobs
}

func every(d time.Duration) string {
	if d < time.Second {
		d = time.Second
	}
	return fmt.Sprintf("@every %s", d.Truncate(time.Second))
}
