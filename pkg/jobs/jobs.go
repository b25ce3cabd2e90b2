// Package jobs wraps asynchronous work behind a submit and poll
// interface so callers control polling intervals and timeouts instead
// of relying on hard coded sleeps.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status of a submitted job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobError reports a job that finished with a failure, carrying the
// error payload reported by the service that ran it.
type JobError struct {
	ID      string
	Status  Status
	Message string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s %s: %s", e.ID, e.Status, e.Message)
}

// Spec describes the work a job performs.
type Spec struct {
	Command    string
	Parameters map[string]string
}

// Job is the observable state of a submitted job.
type Job struct {
	ID        string
	Command   string
	Status    Status
	Result    string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Client submits work and reports on its progress. Submit returns an
// opaque job ID and Check returns the current state of a job.
type Client interface {
	Submit(ctx context.Context, spec Spec) (string, error)
	Check(ctx context.Context, id string) (Job, error)
}

// Wait polls a job until it reaches a terminal state. The poll
// interval is supplied by the caller and the deadline comes from the
// context. A failed job surfaces a JobError with the remote error
// payload.
func Wait(ctx context.Context, client Client, id string, interval time.Duration) (Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := client.Check(ctx, id)
		if err != nil {
			return Job{}, err
		}
		if job.Status == StatusFailed {
			return job, &JobError{ID: id, Status: job.Status, Message: job.Error}
		}
		if job.Status.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Runner performs the work of one job and returns its result.
type Runner func(ctx context.Context, spec Spec) (string, error)

// Manager runs jobs in process and tracks their states indexed by job
// ID. It implements Client for local pipeline runs and tests.
type Manager struct {
	runner Runner

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewManager creates a manager that performs submitted work with the
// runner.
func NewManager(runner Runner) *Manager {
	return &Manager{
		runner: runner,
		jobs:   make(map[string]*Job),
	}
}

// Submit registers a job and starts the work.
func (m *Manager) Submit(ctx context.Context, spec Spec) (string, error) {
	job := &Job{
		ID:        "job-" + uuid.NewString(),
		Command:   spec.Command,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.run(ctx, job.ID, spec)
	return job.ID, nil
}

// Check returns the current state of a job.
func (m *Manager) Check(ctx context.Context, id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job %s does not exist", id)
	}
	return *job, nil
}

func (m *Manager) run(ctx context.Context, id string, spec Spec) {
	m.update(id, func(job *Job) {
		job.Status = StatusRunning
	})
	result, err := m.runner(ctx, spec)
	if err != nil {
		m.update(id, func(job *Job) {
			job.Status = StatusFailed
			job.Error = err.Error()
		})
		return
	}
	m.update(id, func(job *Job) {
		job.Status = StatusCompleted
		job.Result = result
	})
}

func (m *Manager) update(id string, apply func(job *Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	apply(job)
	job.UpdatedAt = time.Now()
}
