package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/c360studio/semgen/cache"
	"github.com/c360studio/semgen/config"
	"github.com/c360studio/semgen/event"
	"github.com/c360studio/semgen/graph"
	"github.com/c360studio/semgen/metric"
	"github.com/c360studio/semgen/ontology"
	"github.com/c360studio/semgen/template"
)

// Deps carries the pipeline's collaborators. Every field is optional:
// the zero value gets the text/template engine, a fresh in-memory
// cache, slog's default logger, no metrics, and no event listeners.
type Deps struct {
	Logger    *slog.Logger
	Renderer  template.Renderer
	Cache     *cache.Manager
	Metrics   *metric.Metrics
	Listeners []event.Listener
}

// Pipeline executes generation passes for one configuration. Create
// it once and reuse it across passes: the render cache and the
// clean-once guard live on the pipeline, which is what watch mode
// relies on to avoid re-cleaning output on every change.
type Pipeline struct {
	cfg      *config.PipelineConfig
	logger   *slog.Logger
	renderer template.Renderer
	cache    *cache.Manager
	metrics  *metric.Metrics
	emitter  *event.Emitter
	loader   *ontology.Loader
	planner  *Planner

	cleanOnce sync.Once
}

// New validates the configuration and assembles a pipeline.
func New(cfg *config.PipelineConfig, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("nil pipeline config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = template.NewEngine()
	}
	cacheManager := deps.Cache
	if cacheManager == nil {
		cacheManager = cache.NewManager()
	}

	return &Pipeline{
		cfg:      cfg,
		logger:   logger,
		renderer: renderer,
		cache:    cacheManager,
		metrics:  deps.Metrics,
		emitter:  event.NewEmitter(logger, deps.Listeners...),
		loader:   ontology.NewLoader(ontology.NewRegistry(), logger),
		planner:  NewPlanner(cfg, logger),
	}, nil
}

// ExecuteJob runs one full generation pass with a throwaway pipeline.
// Callers that run repeatedly, watch mode in particular, should build
// a Pipeline once and call Run instead.
func ExecuteJob(ctx context.Context, cfg *config.PipelineConfig, deps Deps) (*Job, error) {
	p, err := New(cfg, deps)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}

// Run executes a full pass over every source and template.
func (p *Pipeline) Run(ctx context.Context) (*Job, error) {
	return p.run(ctx, nil)
}

// RunIncremental executes only the tasks whose dependencies intersect
// the changed paths. Cache entries depending on those paths are
// evicted first.
func (p *Pipeline) RunIncremental(ctx context.Context, changed []string) (*Job, error) {
	if len(changed) == 0 {
		return p.run(ctx, nil)
	}
	return p.run(ctx, changed)
}

// Cache exposes the render cache so watch mode can consult known
// dependencies before deciding between a full and incremental pass.
func (p *Pipeline) Cache() *cache.Manager { return p.cache }

func (p *Pipeline) Config() *config.PipelineConfig { return p.cfg }

func (p *Pipeline) run(ctx context.Context, changed []string) (*Job, error) {
	job := NewJob(p.cfg.Name)
	if err := job.Transition(StatusRunning); err != nil {
		return job, err
	}
	p.emitter.Emit(event.Event{Type: event.JobStarted, Pipeline: p.cfg.Name, JobID: job.ID})
	p.logger.Info("job started",
		"pipeline", p.cfg.Name,
		"job_id", job.ID,
		"incremental", changed != nil)

	if changed != nil {
		removed := p.cache.Invalidate(changed)
		if len(removed) > 0 {
			p.logger.Debug("invalidated cache entries", "count", len(removed))
		}
	}

	plan, err := p.prepare(ctx, job)
	if err != nil {
		return p.finish(job, StatusFailed, err)
	}

	tasks := plan.Tasks
	if changed != nil {
		tasks = filterTasks(plan.Tasks, changed)
		p.logger.Info("incremental pass",
			"changed", len(changed),
			"tasks", len(tasks),
			"planned", len(plan.Tasks))
	}

	if p.cfg.Output.Clean && changed == nil {
		var cleanErr error
		p.cleanOnce.Do(func() {
			p.logger.Info("cleaning output directory", "dir", p.cfg.Output.Directory)
			cleanErr = cleanDirectory(p.cfg.Output.Directory)
		})
		if cleanErr != nil {
			return p.finish(job, StatusFailed, fmt.Errorf("cleaning output directory: %w", cleanErr))
		}
	}

	p.phase(job, "render")
	executor := &Executor{
		pipeline: p.cfg.Name,
		jobID:    job.ID,
		renderer: p.renderer,
		cache:    p.cache,
		metrics:  p.metrics,
		emitter:  p.emitter,
		logger:   p.logger,
		timeout:  p.cfg.TaskTimeout(),
	}
	scheduler := NewScheduler(p.cfg.WorkerCount(), p.cfg.ContinueOnError(), p.logger)
	results := scheduler.Run(ctx, tasks, func(ctx context.Context, task RenderTask) TaskResult {
		return executor.Execute(ctx, plan, task)
	})
	for _, r := range results {
		job.recordResult(r)
	}
	p.metrics.SetCacheEntries(p.cache.Len())

	if err := ctx.Err(); err != nil {
		return p.finish(job, StatusFailed, err)
	}
	if len(job.Metrics.Errors) > 0 && !p.cfg.ContinueOnError() {
		return p.finish(job, StatusFailed, firstFailure(results))
	}
	return p.finish(job, StatusCompleted, nil)
}

// prepare runs the load, merge, and plan phases. Per-file load errors
// respect the continue-on-error setting; planning errors always fail
// the pass because the whole task list is suspect.
func (p *Pipeline) prepare(ctx context.Context, job *Job) (*Plan, error) {
	p.phase(job, "load")

	needPerSource := p.cfg.FanoutStrategy() != config.StrategyTemplates
	var all []graph.Fragment
	sources := make([]SourceContext, 0, len(p.cfg.Ontologies))

	for i, src := range p.cfg.Ontologies {
		res, err := p.loader.Load(ctx, []ontology.Source{{
			Path:      src.Path,
			Format:    src.Format,
			Namespace: src.Namespace,
		}})
		if err != nil {
			return nil, err
		}
		for _, loadErr := range res.Errors {
			if !p.cfg.ContinueOnError() {
				return nil, loadErr
			}
			job.Metrics.Errors = append(job.Metrics.Errors, TaskError{
				Stage:   StageLoad,
				Message: loadErr.Error(),
			})
		}

		sc := SourceContext{
			Key:  fmt.Sprintf("source:%d", i),
			Name: src.Namespace,
		}
		if sc.Name == "" {
			sc.Name = sourceLabel(src.Path)
		}
		for _, frag := range res.Fragments {
			sc.Paths = append(sc.Paths, frag.Path)
		}
		if needPerSource {
			sc.Context = graph.Merge(res.Fragments)
		}
		sources = append(sources, sc)
		all = append(all, res.Fragments...)
		job.Metrics.OntologiesProcessed += len(res.Fragments)
	}

	p.phase(job, "merge")
	merged := graph.Merge(all)
	for _, w := range merged.Warnings() {
		p.logger.Warn("merge conflict", "detail", w)
	}
	p.logger.Info("semantic context built",
		"triples", merged.Len(),
		"fragments", len(all),
		"warnings", len(merged.Warnings()))

	p.phase(job, "plan")
	plan, err := p.planner.Plan(merged, sources)
	if err != nil {
		return nil, fmt.Errorf("planning: %w", err)
	}
	p.logger.Info("plan built", "tasks", len(plan.Tasks))
	return plan, nil
}

func (p *Pipeline) phase(job *Job, name string) {
	p.emitter.Emit(event.Event{
		Type:     event.PhaseStarted,
		Pipeline: p.cfg.Name,
		JobID:    job.ID,
		Phase:    name,
	})
}

func (p *Pipeline) finish(job *Job, status Status, err error) (*Job, error) {
	if terr := job.Transition(status); terr != nil {
		p.logger.Error("job transition rejected", "job_id", job.ID, "error", terr)
	}
	p.metrics.ObserveJob(string(status))
	p.emitter.Emit(event.Event{
		Type:     event.JobCompleted,
		Pipeline: p.cfg.Name,
		JobID:    job.ID,
		Status:   string(status),
		Error:    errString(err),
	})
	p.logger.Info("job finished",
		"job_id", job.ID,
		"status", status,
		"rendered", job.Metrics.TemplatesRendered,
		"cache_hits", job.Metrics.CacheHits,
		"files", job.Metrics.FilesGenerated,
		"errors", len(job.Metrics.Errors),
		"duration", job.Duration())
	return job, err
}

// filterTasks keeps tasks whose dependency lists intersect the
// changed paths.
func filterTasks(tasks []RenderTask, changed []string) []RenderTask {
	set := make(map[string]struct{}, len(changed))
	for _, path := range changed {
		set[path] = struct{}{}
	}
	var out []RenderTask
	for _, task := range tasks {
		for _, dep := range task.Dependencies {
			if _, hit := set[dep]; hit {
				out = append(out, task)
				break
			}
		}
	}
	return out
}

// cleanDirectory removes the directory's contents, keeping the
// directory itself.
func cleanDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func firstFailure(results []TaskResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// sourceLabel derives a readable context name from a source path for
// the {ontology} output token. Glob sources fall back to the parent
// directory name; a namespace on the source is always preferred.
func sourceLabel(path string) string {
	base := filepath.Base(path)
	if strings.ContainsAny(base, "*?[{") {
		dir := filepath.Base(filepath.Dir(path))
		if dir == "." || dir == string(filepath.Separator) {
			return "source"
		}
		return dir
	}
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
