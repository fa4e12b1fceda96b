package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/semgen/cache"
	"github.com/c360studio/semgen/event"
	"github.com/c360studio/semgen/metric"
	"github.com/c360studio/semgen/template"
)

// Executor runs individual render tasks: cache lookup, render, atomic
// write, bookkeeping. One executor serves a single job and is safe for
// concurrent Execute calls.
type Executor struct {
	pipeline string
	jobID    string
	renderer template.Renderer
	cache    *cache.Manager
	metrics  *metric.Metrics
	emitter  *event.Emitter
	logger   *slog.Logger
	timeout  time.Duration
}

// Execute runs one task. A cache hit skips the render but still
// guarantees the output file exists, rewriting it from the cached
// bytes when it was removed out of band.
func (x *Executor) Execute(ctx context.Context, plan *Plan, task RenderTask) TaskResult {
	start := time.Now()

	if entry := x.cache.Get(task.CacheKey); entry != nil {
		if _, err := os.Stat(task.OutputPath); err != nil {
			if werr := writeFileAtomic(task.OutputPath, entry.Data); werr != nil {
				return x.fail(task, StageWrite, fmt.Errorf("restoring %s from cache: %w", task.OutputPath, werr), start)
			}
		}
		x.metrics.ObserveTask(metric.ResultCacheHit, time.Since(start).Seconds())
		x.logger.Debug("cache hit",
			"template", task.TemplateName,
			"context", task.ContextName,
			"output", task.OutputPath)
		return TaskResult{Task: task, CacheHit: true, Duration: time.Since(start)}
	}

	qctx := plan.Contexts[task.ContextKey]
	if qctx == nil {
		return x.fail(task, StageRender, fmt.Errorf("context %q not in plan", task.ContextKey), start)
	}

	out, err := x.render(ctx, template.RenderInput{
		Name:      task.TemplateName,
		Body:      plan.Templates[task.TemplatePath],
		Context:   qctx,
		Overrides: task.Overrides,
		Filters:   task.Filters,
		Meta: template.Meta{
			Pipeline: x.pipeline,
			Template: task.TemplateName,
			Ontology: task.ContextName,
		},
	})
	if err != nil {
		rerr := &TemplateRenderError{Template: task.TemplateName, Context: task.ContextName, Err: err}
		return x.fail(task, StageRender, rerr, start)
	}

	if err := writeFileAtomic(task.OutputPath, out); err != nil {
		return x.fail(task, StageWrite, fmt.Errorf("writing %s: %w", task.OutputPath, err), start)
	}
	x.cache.Put(task.CacheKey, out, task.Dependencies, 0)

	x.metrics.ObserveTask(metric.ResultRendered, time.Since(start).Seconds())
	x.emitter.Emit(event.Event{
		Type:     event.TemplateRendered,
		Pipeline: x.pipeline,
		JobID:    x.jobID,
		TaskID:   task.ID,
		Template: task.TemplateName,
		Output:   task.OutputPath,
	})
	x.logger.Debug("rendered",
		"template", task.TemplateName,
		"context", task.ContextName,
		"output", task.OutputPath,
		"bytes", len(out))
	return TaskResult{Task: task, Duration: time.Since(start)}
}

// render bounds a single render by the per-task timeout. Cancellation
// of the job context is deliberately not propagated: an in-flight
// render always runs to completion or its own deadline.
func (x *Executor) render(jobCtx context.Context, in template.RenderInput) ([]byte, error) {
	ctx := context.WithoutCancel(jobCtx)
	if x.timeout <= 0 {
		return x.renderer.Render(ctx, in)
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	type rendered struct {
		data []byte
		err  error
	}
	done := make(chan rendered, 1)
	go func() {
		data, err := x.renderer.Render(ctx, in)
		done <- rendered{data, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("render exceeded %s: %w", x.timeout, ctx.Err())
	case r := <-done:
		return r.data, r.err
	}
}

func (x *Executor) fail(task RenderTask, stage string, err error, start time.Time) TaskResult {
	x.metrics.ObserveTask(metric.ResultFailed, time.Since(start).Seconds())
	x.emitter.Emit(event.Event{
		Type:     event.TaskFailed,
		Pipeline: x.pipeline,
		JobID:    x.jobID,
		TaskID:   task.ID,
		Template: task.TemplateName,
		Output:   task.OutputPath,
		Error:    err.Error(),
	})
	x.logger.Error("task failed",
		"template", task.TemplateName,
		"context", task.ContextName,
		"stage", stage,
		"error", err)
	return TaskResult{Task: task, Stage: stage, Duration: time.Since(start), Err: err}
}

// writeFileAtomic writes via a temp file and rename so readers never
// observe a partially written output.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
