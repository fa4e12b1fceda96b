package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_Transition_Lifecycle(t *testing.T) {
	job := NewJob("docs")
	assert.Equal(t, StatusPending, job.Status)
	assert.NotEmpty(t, job.ID)

	require.NoError(t, job.Transition(StatusRunning))
	assert.False(t, job.StartTime.IsZero())

	require.NoError(t, job.Transition(StatusCompleted))
	assert.False(t, job.EndTime.IsZero())
	assert.GreaterOrEqual(t, job.Duration(), time.Duration(0))
}

func TestJob_Transition_TerminalIsFinal(t *testing.T) {
	job := NewJob("docs")
	require.NoError(t, job.Transition(StatusRunning))
	require.NoError(t, job.Transition(StatusFailed))

	err := job.Transition(StatusRunning)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already failed")
	assert.Equal(t, StatusFailed, job.Status)

	assert.Error(t, job.Transition(StatusCompleted))
}

func TestJob_Transition_MustRunBeforeFinishing(t *testing.T) {
	job := NewJob("docs")
	assert.Error(t, job.Transition(StatusCompleted))
	assert.Error(t, job.Transition(StatusFailed))
	assert.Equal(t, StatusPending, job.Status)
}

func TestJob_recordResult_Counters(t *testing.T) {
	job := NewJob("docs")
	job.recordResult(TaskResult{Task: RenderTask{ID: "a"}})
	job.recordResult(TaskResult{Task: RenderTask{ID: "b"}, CacheHit: true})
	job.recordResult(TaskResult{Task: RenderTask{ID: "c"}, Stage: StageRender, Err: assert.AnError})

	assert.Equal(t, 1, job.Metrics.TemplatesRendered)
	assert.Equal(t, 1, job.Metrics.CacheHits)
	assert.Equal(t, 2, job.Metrics.FilesGenerated)
	require.Len(t, job.Metrics.Errors, 1)
	assert.Equal(t, "c", job.Metrics.Errors[0].TaskID)
	assert.Equal(t, StageRender, job.Metrics.Errors[0].Stage)
}
