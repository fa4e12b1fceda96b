package pipeline

import (
	"time"

	"github.com/c360studio/semgen/graph"
)

// RenderTask is one unit of work: render one template against one
// context and write one output file. Tasks are immutable once planned.
type RenderTask struct {
	ID           string
	TemplateName string
	TemplatePath string

	// ContextKey selects the task's context in Plan.Contexts.
	// ContextName is the human label used for the {ontology} output
	// token and in events; labels may collide, keys never do.
	ContextKey  string
	ContextName string

	OutputPath   string
	CacheKey     string
	Dependencies []string
	Overrides    map[string]any
	Filters      []string
}

// Plan is the complete set of render tasks for one pass plus the
// shared data the tasks reference. Template bodies are read once at
// plan time so every task renders the same bytes the cache key was
// derived from.
type Plan struct {
	Tasks     []RenderTask
	Templates map[string][]byte
	Contexts  map[string]*graph.Context
}

// TaskResult reports one executed task. Exactly one of CacheHit and
// a render happened when Err is nil.
type TaskResult struct {
	Task     RenderTask
	CacheHit bool
	Stage    string
	Duration time.Duration
	Err      error
}
