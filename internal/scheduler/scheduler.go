package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/instflow/pkg/logger"
)

// ErrJobNotFound is returned for an unknown job name
var ErrJobNotFound = errors.New("job not found")

// Option configures a Scheduler
type Option func(*Scheduler)

// WithRetry sets how often a failed job is retried and the pause between attempts
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(s *Scheduler) {
		s.maxRetries = maxRetries
		s.retryDelay = delay
	}
}

// WithLocation evaluates schedules in loc (e.g. Asia/Taipei)
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		s.location = loc
	}
}

type entry struct {
	job Job
	id  cron.EntryID
}

// Scheduler manages scheduled jobs
// ⭐ SSOT: 스케줄 관리는 이 스케줄러에서만
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	jobs    map[string]entry
	history map[string]*JobHistory
	mu      sync.RWMutex

	// runs started by cron share this context; Stop cancels it
	ctx    context.Context
	cancel context.CancelFunc

	maxRetries int
	retryDelay time.Duration
	location   *time.Location
}

// New creates a new scheduler
func New(log *logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:     log.Component("scheduler"),
		jobs:       make(map[string]entry),
		history:    make(map[string]*JobHistory),
		maxRetries: 3,
		retryDelay: 1 * time.Minute,
		location:   time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(cron.WithSeconds(), cron.WithLocation(s.location))
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() {
		s.runJob(s.ctx, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entry{job: job, id: id}
	s.history[name] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")

	return nil
}

// RemoveJob removes a job from the scheduler; its history is kept
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("%s: %w", name, ErrJobNotFound)
	}

	s.cron.Remove(e.id)
	delete(s.jobs, name)
	s.logger.WithField("job", name).Info("Job removed from scheduler")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunNow runs a job immediately and synchronously, outside of its schedule
func (s *Scheduler) RunNow(ctx context.Context, name string) (JobResult, error) {
	s.mu.RLock()
	e, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return JobResult{}, fmt.Errorf("%s: %w", name, ErrJobNotFound)
	}

	result := s.runJob(ctx, e.job)
	if !result.Success {
		return result, errors.New(result.Error)
	}
	return result, nil
}

// runJob executes a job with retry logic and records the result
func (s *Scheduler) runJob(ctx context.Context, job Job) JobResult {
	name := job.Name()
	start := time.Now()

	s.logger.WithField("job", name).Info("Job started")

	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		attempts++
		lastErr = job.Run(ctx)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}

		s.logger.WithFields(map[string]interface{}{
			"job":     name,
			"attempt": attempts,
			"error":   lastErr.Error(),
		}).Warn("Job execution failed, retrying")

		if attempt < s.maxRetries {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
			}
		}
	}

	end := time.Now()
	result := JobResult{
		JobName:   name,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Attempts:  attempts,
		Success:   lastErr == nil,
	}
	if lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if h, exists := s.history[name]; exists {
		h.Add(result)
	}
	s.mu.Unlock()

	if result.Success {
		s.logger.WithFields(map[string]interface{}{
			"job":      name,
			"duration": result.Duration,
			"attempts": attempts,
		}).Info("Job completed successfully")
	} else {
		s.logger.WithFields(map[string]interface{}{
			"job":      name,
			"duration": result.Duration,
			"error":    result.Error,
		}).Error("Job failed after all retries")
	}

	return result
}

// GetJobHistory returns a copy of the history of a job
func (s *Scheduler) GetJobHistory(name string) (*JobHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.history[name]
	if !exists {
		return nil, fmt.Errorf("%s: %w", name, ErrJobNotFound)
	}

	return &JobHistory{Results: h.Latest(len(h.Results))}, nil
}

// GetAllJobs returns the registered job names, sorted
func (s *Scheduler) GetAllJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetJobStats returns statistics for all registered jobs
func (s *Scheduler) GetJobStats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats, len(s.jobs))
	for name, e := range s.jobs {
		h := s.history[name]
		failed := len(h.Failed())

		st := JobStats{
			JobName:      name,
			Schedule:     e.job.Schedule(),
			TotalRuns:    len(h.Results),
			SuccessCount: len(h.Results) - failed,
			FailureCount: failed,
			SuccessRate:  h.SuccessRate(),
		}
		if latest := h.Latest(1); len(latest) == 1 {
			t := latest[0].StartTime
			st.LastRun = &t
			if latest[0].Success {
				st.LastSuccess = &t
			} else {
				st.LastFailure = &t
			}
		}
		if next := s.cron.Entry(e.id).Next; !next.IsZero() {
			st.NextRun = &next
		}
		stats[name] = st
	}

	return stats
}

// JobStats represents statistics for a job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
}
