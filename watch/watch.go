// Package watch rebuilds pipeline outputs when ontology sources or
// templates change on disk. Changes are debounced, hashed to drop
// no-op writes, and applied through incremental passes whenever every
// changed path is already a known dependency of the render cache.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/semgen/cache"
	"github.com/c360studio/semgen/config"
	"github.com/c360studio/semgen/metric"
	"github.com/c360studio/semgen/ontology"
	"github.com/c360studio/semgen/pipeline"
)

// Start runs the pipeline in watch mode until the context is
// canceled. The first pass is always a full build; a pass that fails
// is logged and watching continues so a fixed file triggers a rebuild.
func Start(ctx context.Context, cfg *config.PipelineConfig, deps pipeline.Deps) error {
	p, err := pipeline.New(cfg, deps)
	if err != nil {
		return err
	}
	c, err := NewCoordinator(p, deps.Metrics, deps.Logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return c.Stop()
}

// Coordinator owns the filesystem watches and the single-flight run
// loop. Exactly one pass executes at a time; changes arriving during
// a pass are queued and coalesced into the next one.
type Coordinator struct {
	pipeline *pipeline.Pipeline
	cfg      *config.PipelineConfig
	logger   *slog.Logger
	metrics  *metric.Metrics
	watcher  *fsnotify.Watcher
	debounce time.Duration
	patterns []string
	ignore   []string

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashMu sync.RWMutex
	hashes map[string]string

	queueMu    sync.Mutex
	queued     map[string]struct{}
	fullQueued bool
	kick       chan struct{}

	passCount atomic.Int64
	lastJob   atomic.Pointer[pipeline.Job]

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCoordinator wires a coordinator around an existing pipeline. The
// pipeline must be reused across passes so its render cache and
// clean-once guard carry over.
func NewCoordinator(p *pipeline.Pipeline, metrics *metric.Metrics, logger *slog.Logger) (*Coordinator, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg := p.Config()
	var patterns []string
	for _, src := range cfg.Ontologies {
		patterns = append(patterns, src.Path)
	}
	for _, tc := range cfg.Templates {
		patterns = append(patterns, tc.Path)
	}

	return &Coordinator{
		pipeline: p,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		watcher:  fsw,
		debounce: cfg.DebounceInterval(),
		patterns: patterns,
		ignore:   cfg.Watch.Ignore,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		queued:   make(map[string]struct{}),
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start registers the watches, seeds content hashes, runs the initial
// full pass, and begins watching. It returns once the initial pass has
// finished; a failed initial pass is logged, not returned, so a broken
// template can be fixed while watch mode stays up.
func (c *Coordinator) Start(ctx context.Context) error {
	for _, root := range c.watchRoots() {
		if err := c.addWatchesRecursive(root); err != nil {
			c.logger.Warn("failed to watch directory tree", "root", root, "error", err)
		}
	}
	c.seedHashes()

	c.runPass(ctx, nil, true)

	c.wg.Add(2)
	go c.processEvents(ctx)
	go c.runLoop(ctx)

	c.logger.Info("watch mode started",
		"pipeline", c.cfg.Name,
		"debounce", c.debounce,
		"patterns", len(c.patterns))
	return nil
}

// Stop halts watching and waits for in-flight work. Safe to call more
// than once.
func (c *Coordinator) Stop() error {
	c.stopOnce.Do(func() { close(c.done) })
	c.wg.Wait()
	return c.watcher.Close()
}

// PassCount reports how many passes have run, the initial full pass
// included.
func (c *Coordinator) PassCount() int64 {
	return c.passCount.Load()
}

// LastJob returns the most recently finished job, nil before the
// first pass completes.
func (c *Coordinator) LastJob() *pipeline.Job {
	return c.lastJob.Load()
}

// watchRoots derives the directory trees to watch from the configured
// source and template patterns.
func (c *Coordinator) watchRoots() []string {
	seen := make(map[string]bool)
	var roots []string
	for _, pattern := range c.patterns {
		root := patternRoot(pattern)
		if root == "" || seen[root] {
			continue
		}
		seen[root] = true
		roots = append(roots, root)
	}
	return roots
}

func (c *Coordinator) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if path != root && strings.HasPrefix(base, ".") {
			return filepath.SkipDir
		}
		if c.ignored(path) {
			return filepath.SkipDir
		}
		if err := c.watcher.Add(path); err != nil {
			c.logger.Warn("failed to watch directory", "path", path, "error", err)
		} else {
			c.logger.Debug("watching directory", "path", path)
		}
		return nil
	})
}

// seedHashes records the current content hash of every resolvable
// input so an editor re-saving identical bytes does not trigger a
// rebuild.
func (c *Coordinator) seedHashes() {
	for _, pattern := range c.patterns {
		files, err := ontology.ResolveFiles(pattern)
		if err != nil {
			continue
		}
		for _, file := range files {
			data, err := os.ReadFile(file)
			if err != nil {
				continue
			}
			c.setHash(file, cache.Key(data))
		}
	}
}

func (c *Coordinator) setHash(path, hash string) {
	c.hashMu.Lock()
	defer c.hashMu.Unlock()
	c.hashes[path] = hash
}

func (c *Coordinator) getHash(path string) (string, bool) {
	c.hashMu.RLock()
	defer c.hashMu.RUnlock()
	hash, ok := c.hashes[path]
	return hash, ok
}

func (c *Coordinator) dropHash(path string) {
	c.hashMu.Lock()
	defer c.hashMu.Unlock()
	delete(c.hashes, path)
}

// processEvents accumulates filesystem events and flushes them on the
// debounce tick.
func (c *Coordinator) processEvents(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.handleFSEvent(ev)
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Error("watcher error", "error", err)
		case <-ticker.C:
			c.flushPending()
		}
	}
}

func (c *Coordinator) handleFSEvent(ev fsnotify.Event) {
	path := ev.Name

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			base := filepath.Base(path)
			if !strings.HasPrefix(base, ".") && !c.ignored(path) {
				if err := c.addWatchesRecursive(path); err != nil {
					c.logger.Warn("failed to watch new directory", "path", path, "error", err)
				}
			}
			return
		}
	}

	if !c.relevant(path) {
		return
	}

	c.pendingMu.Lock()
	c.pending[path] |= ev.Op
	c.pendingMu.Unlock()

	c.logger.Debug("change detected", "path", path, "op", ev.Op.String())
}

// relevant reports whether a path participates in the pipeline: it
// matches a configured pattern or is a recorded cache dependency, and
// is not ignored.
func (c *Coordinator) relevant(path string) bool {
	if c.ignored(path) {
		return false
	}
	slashed := filepath.ToSlash(path)
	for _, pattern := range c.patterns {
		if !strings.ContainsAny(pattern, "*?[{") {
			if path == pattern {
				return true
			}
			continue
		}
		if ok, _ := doublestar.Match(filepath.ToSlash(pattern), slashed); ok {
			return true
		}
	}
	return c.pipeline.Cache().KnownDependency(path)
}

func (c *Coordinator) ignored(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range c.ignore {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// flushPending turns accumulated events into a queued pass. Deleted
// paths force a full pass because the planned file set changed; so
// does any path the cache has no dependency record for. The known
// dependency check happens here, before the pass invalidates entries.
func (c *Coordinator) flushPending() {
	c.pendingMu.Lock()
	if len(c.pending) == 0 {
		c.pendingMu.Unlock()
		return
	}
	batch := c.pending
	c.pending = make(map[string]fsnotify.Op)
	c.pendingMu.Unlock()

	var changed []string
	full := false
	for path, op := range batch {
		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			c.dropHash(path)
			changed = append(changed, path)
			full = true
			continue
		}
		if _, err := os.Stat(path); err != nil {
			c.dropHash(path)
			changed = append(changed, path)
			full = true
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			c.logger.Warn("failed to read changed file", "path", path, "error", err)
			continue
		}
		hash := cache.Key(data)
		if prev, ok := c.getHash(path); ok && prev == hash {
			c.logger.Debug("content unchanged, skipping", "path", path)
			continue
		}
		c.setHash(path, hash)
		changed = append(changed, path)
		if !c.pipeline.Cache().KnownDependency(path) {
			full = true
		}
	}
	if len(changed) == 0 {
		return
	}
	sort.Strings(changed)
	c.logger.Info("changes flushed", "paths", len(changed), "full", full)
	c.enqueue(changed, full)
}

func (c *Coordinator) enqueue(changed []string, full bool) {
	c.queueMu.Lock()
	for _, path := range changed {
		c.queued[path] = struct{}{}
	}
	c.fullQueued = c.fullQueued || full
	c.queueMu.Unlock()

	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Coordinator) drainQueue() ([]string, bool) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	changed := make([]string, 0, len(c.queued))
	for path := range c.queued {
		changed = append(changed, path)
	}
	clear(c.queued)
	full := c.fullQueued
	c.fullQueued = false
	sort.Strings(changed)
	return changed, full
}

// runLoop executes queued passes one at a time. A kick arriving while
// a pass runs stays buffered, so the loop re-checks the queue after
// every pass.
func (c *Coordinator) runLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-c.kick:
			changed, full := c.drainQueue()
			if len(changed) == 0 && !full {
				continue
			}
			c.runPass(ctx, changed, full)
		}
	}
}

func (c *Coordinator) runPass(ctx context.Context, changed []string, full bool) {
	kind := metric.PassIncremental
	var job *pipeline.Job
	var err error
	if full || len(changed) == 0 {
		kind = metric.PassFull
		job, err = c.pipeline.Run(ctx)
	} else {
		job, err = c.pipeline.RunIncremental(ctx, changed)
	}
	c.passCount.Add(1)
	if job != nil {
		c.lastJob.Store(job)
	}
	c.metrics.ObserveWatchPass(kind)

	if err != nil {
		c.logger.Error("watch pass failed", "kind", kind, "error", err)
		return
	}
	c.logger.Info("watch pass finished",
		"kind", kind,
		"rendered", job.Metrics.TemplatesRendered,
		"cache_hits", job.Metrics.CacheHits,
		"files", job.Metrics.FilesGenerated)
}

// patternRoot finds the deepest literal directory of a path or glob.
func patternRoot(pattern string) string {
	if !strings.ContainsAny(pattern, "*?[{") {
		return filepath.Dir(pattern)
	}
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	return filepath.FromSlash(base)
}
