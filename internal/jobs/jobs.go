package jobs

import (
	"errors"
	"fmt"
	"time"

	"github.com/reposcope/reposcope/pkg/types"
)

// Status is the lifecycle state of a job. Jobs move pending -> running and
// terminate in either completed or failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Type identifies the kind of work a job performs.
type Type string

const (
	TypeIndex  Type = "index"
	TypeUpdate Type = "update"
)

var (
	// ErrProjectBusy is returned when a job is submitted for a project that
	// already has a job in flight.
	ErrProjectBusy = errors.New("project already has a job in progress")

	// ErrJobNotFound is returned when looking up an unknown job ID.
	ErrJobNotFound = errors.New("job not found")
)

// maxLogEntries bounds the per-job log ring. Older entries are dropped first.
const maxLogEntries = 50

// Stats aggregates what an indexing run accomplished.
type Stats struct {
	FilesTotal     int               `json:"filesTotal"`
	FilesProcessed int               `json:"filesProcessed"`
	ChunksIndexed  int               `json:"chunksIndexed"`
	DeltaStats     *types.DeltaStats `json:"deltaStats,omitempty"`
}

// Job is the tracked record of one asynchronous indexing run. Instances
// returned by the Manager are snapshots; mutation happens only inside the
// Manager under its lock.
type Job struct {
	ID        string     `json:"id"`
	Type      Type       `json:"type"`
	ProjectID string     `json:"projectId"`
	Status    Status     `json:"status"`
	Progress  int        `json:"progress"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Params    any        `json:"params,omitempty"`
	Stats     *Stats     `json:"stats,omitempty"`
	Error     string     `json:"error,omitempty"`
	Logs      []string   `json:"logs"`

	done chan struct{}
}

// Done returns a channel closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) appendLog(message string) {
	entry := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), message)
	j.Logs = append(j.Logs, entry)
	if len(j.Logs) > maxLogEntries {
		j.Logs = j.Logs[len(j.Logs)-maxLogEntries:]
	}
}

// snapshot returns a copy safe to hand to callers while the original keeps
// mutating under the manager lock.
func (j *Job) snapshot() *Job {
	cp := *j
	cp.Logs = append([]string(nil), j.Logs...)
	if j.EndTime != nil {
		end := *j.EndTime
		cp.EndTime = &end
	}
	if j.Stats != nil {
		st := *j.Stats
		cp.Stats = &st
	}
	return &cp
}
