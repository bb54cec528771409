package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job tracks one async optimization from submission to completion.
type Job struct {
	ID          string      `json:"id"`
	Status      JobStatus   `json:"status"`
	Result      interface{} `json:"result,omitempty"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// JobStore is an in-memory job registry. Finished jobs are kept for the TTL
// so clients can poll, then a cron sweep reclaims them.
type JobStore struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	ttl    time.Duration
	logger *logrus.Logger

	cron      *cron.Cron
	cronMu    sync.Mutex
	isRunning bool
}

func NewJobStore(ttl time.Duration, logger *logrus.Logger) *JobStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &JobStore{
		jobs:   make(map[string]*Job),
		ttl:    ttl,
		logger: logger,
		cron:   cron.New(),
	}
}

func (s *JobStore) Create() *Job {
	job := &Job{
		ID:        uuid.New().String(),
		Status:    JobPending,
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job
}

// Get returns a snapshot copy so callers never observe a job mid-update.
func (s *JobStore) Get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

func (s *JobStore) MarkRunning(id string) {
	now := time.Now()
	s.mu.Lock()
	if job, ok := s.jobs[id]; ok {
		job.Status = JobRunning
		job.StartedAt = &now
	}
	s.mu.Unlock()
}

func (s *JobStore) Complete(id string, result interface{}) {
	now := time.Now()
	s.mu.Lock()
	if job, ok := s.jobs[id]; ok {
		job.Status = JobCompleted
		job.Result = result
		job.CompletedAt = &now
	}
	s.mu.Unlock()
}

func (s *JobStore) Fail(id string, message string) {
	now := time.Now()
	s.mu.Lock()
	if job, ok := s.jobs[id]; ok {
		job.Status = JobFailed
		job.Error = message
		job.CompletedAt = &now
	}
	s.mu.Unlock()
}

// Cleanup removes finished jobs older than the TTL and returns how many it
// reclaimed.
func (s *JobStore) Cleanup() int {
	cutoff := time.Now().Add(-s.ttl)
	removed := 0
	s.mu.Lock()
	for id, job := range s.jobs {
		terminal := job.Status == JobCompleted || job.Status == JobFailed
		if terminal && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	s.mu.Unlock()
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("Cleaned up expired optimization jobs")
	}
	return removed
}

// StartCleanup schedules the reaper. Safe to call once; subsequent calls are
// no-ops until StopCleanup.
func (s *JobStore) StartCleanup(interval time.Duration) error {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.isRunning {
		return nil
	}
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddFunc(spec, func() { s.Cleanup() }); err != nil {
		return fmt.Errorf("failed to schedule job cleanup: %w", err)
	}
	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("interval", interval.String()).Info("Job cleanup scheduler started")
	return nil
}

// StopCleanup halts the scheduler and waits for an in-flight sweep.
func (s *JobStore) StopCleanup() {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if !s.isRunning {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.isRunning = false
	s.logger.Info("Job cleanup scheduler stopped")
}

// Stats counts jobs per status for the readiness endpoint.
func (s *JobStore) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := map[string]int{
		string(JobPending):   0,
		string(JobRunning):   0,
		string(JobCompleted): 0,
		string(JobFailed):    0,
	}
	for _, job := range s.jobs {
		stats[string(job.Status)]++
	}
	return stats
}
