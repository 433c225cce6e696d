package scheduler

import (
	"context"
	"errors"

	"github.com/stlalpha/tagrelay/internal/logging"
)

// updateHistory records a completed run.
func (s *Scheduler) updateHistory(result JobResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, exists := s.history[result.JobID]
	if !exists {
		h = &JobHistory{JobID: result.JobID}
		s.history[result.JobID] = h
	}

	h.LastRun = result.EndTime
	h.LastDuration = result.EndTime.Sub(result.StartTime).Milliseconds()
	h.RunCount++

	switch {
	case result.Error == nil:
		h.LastStatus = "success"
		h.SuccessCount++
	case errors.Is(result.Error, context.DeadlineExceeded):
		h.LastStatus = "timeout"
		h.FailureCount++
	default:
		h.LastStatus = "failure"
		h.FailureCount++
	}

	logging.Debug("Job '%s': status=%s, duration=%dms, runs=%d",
		result.JobID, h.LastStatus, h.LastDuration, h.RunCount)
}

// GetHistory returns a copy of the run statistics, keyed by job id.
func (s *Scheduler) GetHistory() map[string]*JobHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	historyCopy := make(map[string]*JobHistory, len(s.history))
	for k, v := range s.history {
		hCopy := *v
		historyCopy[k] = &hCopy
	}
	return historyCopy
}
