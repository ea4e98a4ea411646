package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// projectLock provides non-blocking lock semantics using atomic operations.
type projectLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// tryAcquire attempts to acquire the lock without blocking.
func (l *projectLock) tryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

func (l *projectLock) release() {
	l.state.Store(0)
}

// ProgressFunc receives milestone updates from a running job function. The
// message is appended to the job log and the percentage becomes the job's
// reported progress. An empty message updates progress without logging.
type ProgressFunc func(percent int, message string)

// JobFunc is the work a job executes. The returned stats become the job's
// stats on success.
type JobFunc func(ctx context.Context, progress ProgressFunc) (*Stats, error)

// Manager tracks asynchronous jobs, serializes them per project, and garbage
// collects terminal jobs after a retention window.
type Manager struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	locks     map[string]*projectLock
	retention time.Duration
	logger    *zap.SugaredLogger
}

// NewManager creates a job manager. Terminal jobs older than retention are
// removed by Cleanup.
func NewManager(retention time.Duration, logger *zap.SugaredLogger) *Manager {
	return &Manager{
		jobs:      make(map[string]*Job),
		locks:     make(map[string]*projectLock),
		retention: retention,
		logger:    logger,
	}
}

// acquireLock looks up or creates the project's lock and tries to acquire it.
// Acquisition happens under the manager mutex so Cleanup can prune idle locks
// without racing a concurrent acquire on a removed entry.
func (m *Manager) acquireLock(projectID string) (*projectLock, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[projectID]
	if !ok {
		l = &projectLock{}
		m.locks[projectID] = l
	}
	return l, l.tryAcquire()
}

// Start registers a new job and runs fn in a goroutine. Only one job may be
// in flight per project; a second submission fails fast with ErrProjectBusy.
func (m *Manager) Start(ctx context.Context, jobType Type, projectID string, params any, fn JobFunc) (*Job, error) {
	lock, acquired := m.acquireLock(projectID)
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrProjectBusy, projectID)
	}

	job := &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		ProjectID: projectID,
		Status:    StatusPending,
		StartTime: time.Now(),
		Params:    params,
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.run(ctx, job, lock, fn)

	return job.snapshot(), nil
}

func (m *Manager) run(ctx context.Context, job *Job, lock *projectLock, fn JobFunc) {
	// Release before closing done so a waiter on Done never observes the
	// project still locked.
	defer close(job.done)
	defer lock.release()

	m.mu.Lock()
	job.Status = StatusRunning
	m.mu.Unlock()

	progress := func(percent int, message string) {
		m.mu.Lock()
		job.Progress = percent
		if message != "" {
			job.appendLog(message)
		}
		m.mu.Unlock()
		m.logger.Debugw("job progress",
			"jobId", job.ID, "projectId", job.ProjectID,
			"percent", percent, "message", message)
	}

	stats, err := fn(ctx, progress)

	now := time.Now()
	m.mu.Lock()
	job.EndTime = &now
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		// Failed jobs report zero progress regardless of how far they got
		job.Progress = 0
		job.appendLog("failed: " + err.Error())
	} else {
		job.Status = StatusCompleted
		job.Progress = 100
		job.Stats = stats
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Errorw("job failed",
			"jobId", job.ID, "projectId", job.ProjectID, "error", err)
		return
	}
	m.logger.Infow("job completed",
		"jobId", job.ID, "projectId", job.ProjectID,
		"duration", now.Sub(job.StartTime))
}

// Get returns a snapshot of the job with the given ID.
func (m *Manager) Get(jobID string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job.snapshot(), nil
}

// All returns snapshots of every tracked job, newest start time first.
func (m *Manager) All() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, job.snapshot())
	}
	sortByStartDesc(out)
	return out
}

// Active returns snapshots of jobs that have not reached a terminal state,
// newest start time first.
func (m *Manager) Active() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Job
	for _, job := range m.jobs {
		if !job.Status.Terminal() {
			out = append(out, job.snapshot())
		}
	}
	sortByStartDesc(out)
	return out
}

func sortByStartDesc(jobs []*Job) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.After(jobs[j].StartTime)
	})
}

// Cleanup removes terminal jobs whose end time is older than the retention
// window and prunes project locks that are not held. Pending and running jobs
// are never removed. Returns the number of jobs deleted.
func (m *Manager) Cleanup() int {
	cutoff := time.Now().Add(-m.retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, job := range m.jobs {
		if job.Status.Terminal() && job.EndTime != nil && job.EndTime.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}

	// Prune lock entries for projects with no job in flight so the map does
	// not grow with every project ID ever submitted.
	for id, l := range m.locks {
		if l.state.Load() == 0 {
			delete(m.locks, id)
		}
	}
	return removed
}

// StartCleanupLoop runs Cleanup at the given interval until ctx is cancelled.
func (m *Manager) StartCleanupLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Cleanup(); n > 0 {
					m.logger.Infow("cleaned up expired jobs", "count", n)
				}
			}
		}
	}()
}
