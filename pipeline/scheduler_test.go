package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTasks(n int) []RenderTask {
	tasks := make([]RenderTask, n)
	for i := range tasks {
		tasks[i] = RenderTask{ID: fmt.Sprintf("task-%02d", i)}
	}
	return tasks
}

func TestScheduler_Run_BoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int64
	exec := func(_ context.Context, task RenderTask) TaskResult {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return TaskResult{Task: task}
	}

	results := NewScheduler(2, true, testLogger()).Run(context.Background(), makeTasks(20), exec)

	assert.Len(t, results, 20)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestScheduler_Run_StopsAfterFirstFailure(t *testing.T) {
	exec := func(_ context.Context, task RenderTask) TaskResult {
		return TaskResult{Task: task, Err: errors.New("boom")}
	}

	results := NewScheduler(1, false, testLogger()).Run(context.Background(), makeTasks(10), exec)

	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

func TestScheduler_Run_ContinuesPastFailures(t *testing.T) {
	var failed atomic.Int64
	exec := func(_ context.Context, task RenderTask) TaskResult {
		if task.ID < "task-05" {
			failed.Add(1)
			return TaskResult{Task: task, Err: errors.New("boom")}
		}
		return TaskResult{Task: task}
	}

	results := NewScheduler(4, true, testLogger()).Run(context.Background(), makeTasks(10), exec)

	assert.Len(t, results, 10)
	assert.Equal(t, int64(5), failed.Load())
}

func TestScheduler_Run_CancelStopsDispatchSoftly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var executed atomic.Int64
	exec := func(_ context.Context, task RenderTask) TaskResult {
		if executed.Add(1) == 5 {
			cancel()
		}
		time.Sleep(time.Millisecond)
		return TaskResult{Task: task}
	}

	results := NewScheduler(2, true, testLogger()).Run(ctx, makeTasks(20), exec)

	// Dispatch stops once the cancel is observed; tasks already handed
	// to workers still finish cleanly.
	assert.GreaterOrEqual(t, len(results), 5)
	assert.Less(t, len(results), 20)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
}

func TestScheduler_Run_EmptyTaskList(t *testing.T) {
	exec := func(_ context.Context, task RenderTask) TaskResult {
		t.Error("exec must not be called")
		return TaskResult{}
	}
	assert.Nil(t, NewScheduler(4, true, testLogger()).Run(context.Background(), nil, exec))
}
