package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/c360studio/semgen/config"
)

// Scheduler fans a plan's tasks out over a bounded worker pool. Tasks
// are dispatched in plan order; completion order depends on timing.
type Scheduler struct {
	workers         int
	continueOnError bool
	logger          *slog.Logger
}

func NewScheduler(workers int, continueOnError bool, logger *slog.Logger) *Scheduler {
	if workers <= 0 {
		workers = config.DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{workers: workers, continueOnError: continueOnError, logger: logger}
}

// Run executes every task and returns results in completion order.
// Cancellation is soft: a canceled context stops dispatching and
// in-flight tasks run to completion. When continueOnError is false the
// first failure stops dispatching the same way.
func (s *Scheduler) Run(ctx context.Context, tasks []RenderTask, exec func(context.Context, RenderTask) TaskResult) []TaskResult {
	if len(tasks) == 0 {
		return nil
	}
	workers := min(s.workers, len(tasks))

	taskCh := make(chan RenderTask)
	resultCh := make(chan TaskResult, len(tasks))
	stopCh := make(chan struct{})
	var stopOnce sync.Once
	stop := func() { stopOnce.Do(func() { close(stopCh) }) }

	go func() {
		defer close(taskCh)
		for i, task := range tasks {
			// Checked up front so a stop observed during a send does
			// not dispatch further tasks on the next iteration.
			select {
			case <-ctx.Done():
				s.logger.Warn("run canceled, letting in-flight tasks finish",
					"dispatched", i, "total", len(tasks))
				return
			case <-stopCh:
				s.logger.Debug("dispatch stopped after failure",
					"dispatched", i, "total", len(tasks))
				return
			default:
			}
			select {
			case <-ctx.Done():
				s.logger.Warn("run canceled, letting in-flight tasks finish",
					"dispatched", i, "total", len(tasks))
				return
			case <-stopCh:
				return
			case taskCh <- task:
			}
		}
	}()

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				// A task handed over in the same instant the halt landed
				// is dropped before it starts; only in-flight work finishes.
				select {
				case <-ctx.Done():
					continue
				case <-stopCh:
					continue
				default:
				}
				result := exec(ctx, task)
				if result.Err != nil && !s.continueOnError {
					stop()
				}
				resultCh <- result
			}
		}()
	}
	wg.Wait()
	close(resultCh)

	results := make([]TaskResult, 0, len(tasks))
	for r := range resultCh {
		results = append(results, r)
	}
	return results
}
