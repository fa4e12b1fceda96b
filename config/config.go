// Package config provides pipeline configuration loading and
// validation for semgen.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/semgen/graph"
)

// Fan-out strategies for pairing templates with semantic contexts.
const (
	// StrategyTemplates renders every template once against the merged
	// context of all ontologies.
	StrategyTemplates = "templates"
	// StrategyOntologies renders the first template once per ontology
	// source, each against that source's own context.
	StrategyOntologies = "ontologies"
	// StrategyBoth renders the full cross product: every template
	// against every ontology source.
	StrategyBoth = "both"
)

// DefaultWorkers is the pool size when parallelism is enabled but no
// worker count is configured.
const DefaultWorkers = 4

// DefaultDebounce is the watch-mode debounce window when none is
// configured.
const DefaultDebounce = 500 * time.Millisecond

// PipelineConfig is the complete definition of one generation
// pipeline, normally loaded from a semgen.yaml document.
type PipelineConfig struct {
	// Name identifies the pipeline in logs, events, and the
	// {pipeline} output token.
	Name string `yaml:"name"`

	Ontologies  []OntologySource  `yaml:"ontologies"`
	Templates   []TemplateConfig  `yaml:"templates"`
	Output      OutputConfig      `yaml:"output"`
	Parallelism ParallelismConfig `yaml:"parallelism"`
	Validation  ValidationConfig  `yaml:"validation"`
	Watch       WatchConfig       `yaml:"watch"`
}

// OntologySource names one graph-data input.
type OntologySource struct {
	// Path is a file path or doublestar glob.
	Path string `yaml:"path"`
	// Format forces a serialization (turtle, ntriples, jsonld);
	// empty means detect by file extension.
	Format string `yaml:"format,omitempty"`
	// Namespace labels this source for templates and the {ontology}
	// output token.
	Namespace string `yaml:"namespace,omitempty"`
}

// TemplateConfig names one template input and where its output goes.
type TemplateConfig struct {
	// Path is a template file path or doublestar glob.
	Path string `yaml:"path"`
	// OutputPattern names generated files relative to the output
	// directory. Tokens: {pipeline}, {template}, {ontology}, {ext}.
	OutputPattern string `yaml:"output_pattern"`
	// ContextOverrides are extra values exposed to the template and
	// folded into cache keys.
	ContextOverrides map[string]any `yaml:"context_overrides,omitempty"`
	// Filters restricts the filter functions available to this
	// template; empty means all registered filters.
	Filters []string `yaml:"filters,omitempty"`
}

// OutputConfig controls where artifacts land.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	// Clean empties the directory before the first full pass.
	// Incremental watch passes never clean.
	Clean bool `yaml:"clean"`
}

// ParallelismConfig controls the render worker pool.
type ParallelismConfig struct {
	Enabled bool `yaml:"enabled"`
	// Workers caps concurrent renders; 0 means DefaultWorkers.
	Workers  int    `yaml:"workers"`
	Strategy string `yaml:"strategy"`
	// TaskTimeoutMs bounds a single render; 0 disables the bound.
	TaskTimeoutMs int `yaml:"task_timeout_ms"`
}

// ValidationConfig controls failure policy.
type ValidationConfig struct {
	// Strict fails the job on the first task error instead of
	// collecting errors and completing.
	Strict bool `yaml:"strict"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
	// DebounceMs coalesces change bursts; 0 means DefaultDebounce.
	DebounceMs int `yaml:"debounce_ms"`
	// Ignore lists doublestar patterns for paths that never trigger.
	Ignore []string `yaml:"ignore,omitempty"`
}

// DefaultConfig returns a PipelineConfig with sensible defaults.
func DefaultConfig() *PipelineConfig {
	return &PipelineConfig{
		Output: OutputConfig{
			Directory: "generated",
		},
		Parallelism: ParallelismConfig{
			Enabled:  true,
			Workers:  DefaultWorkers,
			Strategy: StrategyTemplates,
		},
		Watch: WatchConfig{
			DebounceMs: int(DefaultDebounce / time.Millisecond),
		},
	}
}

// Validate checks the configuration and reports every violation at
// once rather than stopping at the first.
func (c *PipelineConfig) Validate() error {
	var v []string

	if strings.TrimSpace(c.Name) == "" {
		v = append(v, "name: required")
	}

	if len(c.Ontologies) == 0 {
		v = append(v, "ontologies: at least one source is required")
	}
	for i, src := range c.Ontologies {
		if strings.TrimSpace(src.Path) == "" {
			v = append(v, fmt.Sprintf("ontologies[%d].path: required", i))
		}
		if src.Format != "" {
			if _, err := graph.ParseFormat(src.Format); err != nil {
				v = append(v, fmt.Sprintf("ontologies[%d].format: %v", i, err))
			}
		}
	}

	if len(c.Templates) == 0 {
		v = append(v, "templates: at least one template is required")
	}
	for i, tpl := range c.Templates {
		if strings.TrimSpace(tpl.Path) == "" {
			v = append(v, fmt.Sprintf("templates[%d].path: required", i))
		}
		if strings.TrimSpace(tpl.OutputPattern) == "" {
			v = append(v, fmt.Sprintf("templates[%d].output_pattern: required", i))
		}
	}

	if strings.TrimSpace(c.Output.Directory) == "" {
		v = append(v, "output.directory: required")
	}

	if c.Parallelism.Workers < 0 {
		v = append(v, "parallelism.workers: must not be negative")
	}
	switch c.Parallelism.Strategy {
	case "", StrategyTemplates, StrategyOntologies, StrategyBoth:
	default:
		v = append(v, fmt.Sprintf("parallelism.strategy: %q is not one of templates, ontologies, both", c.Parallelism.Strategy))
	}
	if c.Parallelism.TaskTimeoutMs < 0 {
		v = append(v, "parallelism.task_timeout_ms: must not be negative")
	}

	if c.Watch.DebounceMs < 0 {
		v = append(v, "watch.debounce_ms: must not be negative")
	}
	for i, pattern := range c.Watch.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			v = append(v, fmt.Sprintf("watch.ignore[%d]: invalid glob %q", i, pattern))
		}
	}

	if len(v) > 0 {
		return &ValidationError{Violations: v}
	}
	return nil
}

// WorkerCount returns the effective render pool size.
func (c *PipelineConfig) WorkerCount() int {
	if !c.Parallelism.Enabled {
		return 1
	}
	if c.Parallelism.Workers <= 0 {
		return DefaultWorkers
	}
	return c.Parallelism.Workers
}

// FanoutStrategy returns the effective strategy.
func (c *PipelineConfig) FanoutStrategy() string {
	if c.Parallelism.Strategy == "" {
		return StrategyTemplates
	}
	return c.Parallelism.Strategy
}

// TaskTimeout returns the per-render bound; zero disables it.
func (c *PipelineConfig) TaskTimeout() time.Duration {
	if c.Parallelism.TaskTimeoutMs <= 0 {
		return 0
	}
	return time.Duration(c.Parallelism.TaskTimeoutMs) * time.Millisecond
}

// DebounceInterval returns the effective watch debounce window.
func (c *PipelineConfig) DebounceInterval() time.Duration {
	if c.Watch.DebounceMs <= 0 {
		return DefaultDebounce
	}
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// ContinueOnError reports whether a pass keeps running after a task
// fails. Strict validation means fail-fast.
func (c *PipelineConfig) ContinueOnError() bool {
	return !c.Validation.Strict
}

// ValidationError carries every violation found in one pass over the
// configuration.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return "invalid pipeline config: " + e.Violations[0]
	}
	return fmt.Sprintf("invalid pipeline config (%d violations): %s",
		len(e.Violations), strings.Join(e.Violations, "; "))
}
