package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Metrics aggregates one job's counters. TemplatesRendered counts
// actual renders; cache hits that skipped a render count in CacheHits
// instead. Both contribute to FilesGenerated.
type Metrics struct {
	OntologiesProcessed int         `json:"ontologies_processed"`
	TemplatesRendered   int         `json:"templates_rendered"`
	FilesGenerated      int         `json:"files_generated"`
	CacheHits           int         `json:"cache_hits"`
	Errors              []TaskError `json:"errors,omitempty"`
}

// Job records one generation pass through the pipeline.
type Job struct {
	ID        string    `json:"id"`
	Pipeline  string    `json:"pipeline"`
	Status    Status    `json:"status"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
	Metrics   Metrics   `json:"metrics"`

	mu sync.Mutex
}

func NewJob(pipeline string) *Job {
	return &Job{
		ID:       uuid.NewString(),
		Pipeline: pipeline,
		Status:   StatusPending,
	}
}

// Transition moves the job to the given status. Valid moves are
// pending to running and running to completed or failed; transitions
// out of a terminal status are rejected.
func (j *Job) Transition(to Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status.Terminal() {
		return fmt.Errorf("job %s is already %s", j.ID, j.Status)
	}
	switch to {
	case StatusRunning:
		if j.Status != StatusPending {
			return fmt.Errorf("job %s cannot move from %s to %s", j.ID, j.Status, to)
		}
		j.StartTime = time.Now().UTC()
	case StatusCompleted, StatusFailed:
		if j.Status != StatusRunning {
			return fmt.Errorf("job %s cannot move from %s to %s", j.ID, j.Status, to)
		}
		j.EndTime = time.Now().UTC()
	default:
		return fmt.Errorf("job %s cannot move to %s", j.ID, to)
	}
	j.Status = to
	return nil
}

// Duration is the elapsed run time, zero until the job reaches a
// terminal status.
func (j *Job) Duration() time.Duration {
	if j.StartTime.IsZero() || j.EndTime.IsZero() {
		return 0
	}
	return j.EndTime.Sub(j.StartTime)
}

func (j *Job) recordResult(r TaskResult) {
	switch {
	case r.Err != nil:
		j.Metrics.Errors = append(j.Metrics.Errors, TaskError{
			TaskID:  r.Task.ID,
			Stage:   r.Stage,
			Message: r.Err.Error(),
		})
	case r.CacheHit:
		j.Metrics.CacheHits++
		j.Metrics.FilesGenerated++
	default:
		j.Metrics.TemplatesRendered++
		j.Metrics.FilesGenerated++
	}
}
