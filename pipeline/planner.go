package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/c360studio/semgen/cache"
	"github.com/c360studio/semgen/config"
	"github.com/c360studio/semgen/graph"
	"github.com/c360studio/semgen/ontology"
	"github.com/c360studio/semgen/template"
)

// mergedContextKey is the Plan.Contexts key for the context built
// from every source together.
const mergedContextKey = "merged"

// SourceContext pairs one configured ontology source with the context
// built from just its own fragments. Context stays nil under the
// templates strategy, which only renders against the merged context.
type SourceContext struct {
	Key     string
	Name    string
	Paths   []string
	Context *graph.Context
}

// Planner turns contexts and template configs into an executable task
// list. Planning reads template bodies exactly once and computes each
// task's cache key up front, so execution never re-derives identity.
type Planner struct {
	cfg    *config.PipelineConfig
	logger *slog.Logger
}

func NewPlanner(cfg *config.PipelineConfig, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{cfg: cfg, logger: logger}
}

type resolvedTemplate struct {
	cfg  config.TemplateConfig
	path string
	name string
	ext  string
	body []byte
}

// Plan builds the task list for one pass. Task order is deterministic:
// config order for templates, source order for ontologies, and under
// the both strategy ontologies iterate in the outer loop.
func (p *Planner) Plan(merged *graph.Context, sources []SourceContext) (*Plan, error) {
	templates, err := p.resolveTemplates()
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, errors.New("no templates resolved, nothing to plan")
	}

	plan := &Plan{
		Templates: make(map[string][]byte, len(templates)),
		Contexts:  make(map[string]*graph.Context, len(sources)+1),
	}
	for _, tpl := range templates {
		plan.Templates[tpl.path] = tpl.body
	}

	plan.Contexts[mergedContextKey] = merged
	fingerprints := map[string]string{mergedContextKey: contextFingerprint(merged)}
	for _, sc := range sources {
		if sc.Context != nil {
			plan.Contexts[sc.Key] = sc.Context
			fingerprints[sc.Key] = contextFingerprint(sc.Context)
		}
	}
	mergedDeps := merged.Metadata().SourcePaths

	strategy := p.cfg.FanoutStrategy()
	switch strategy {
	case config.StrategyTemplates:
		for _, tpl := range templates {
			task, err := p.buildTask(tpl, mergedContextKey, p.cfg.Name, fingerprints[mergedContextKey], mergedDeps)
			if err != nil {
				return nil, err
			}
			plan.Tasks = append(plan.Tasks, task)
		}

	case config.StrategyOntologies:
		if len(templates) != 1 {
			return nil, fmt.Errorf("fan-out strategy %q requires exactly one template, got %d", strategy, len(templates))
		}
		for _, sc := range sources {
			task, err := p.buildTask(templates[0], sc.Key, sc.Name, fingerprints[sc.Key], sc.Paths)
			if err != nil {
				return nil, err
			}
			plan.Tasks = append(plan.Tasks, task)
		}

	case config.StrategyBoth:
		for _, sc := range sources {
			for _, tpl := range templates {
				task, err := p.buildTask(tpl, sc.Key, sc.Name, fingerprints[sc.Key], sc.Paths)
				if err != nil {
					return nil, err
				}
				plan.Tasks = append(plan.Tasks, task)
			}
		}

	default:
		return nil, fmt.Errorf("unknown fan-out strategy %q", strategy)
	}

	byOutput := make(map[string]RenderTask, len(plan.Tasks))
	for _, task := range plan.Tasks {
		if prev, dup := byOutput[task.OutputPath]; dup {
			return nil, fmt.Errorf(
				"output collision: %s (%s) and %s (%s) both write %s; add {template} or {ontology} to the output pattern",
				prev.TemplateName, prev.ContextName, task.TemplateName, task.ContextName, task.OutputPath)
		}
		byOutput[task.OutputPath] = task
	}

	p.logger.Debug("plan assembled",
		"strategy", strategy,
		"templates", len(templates),
		"contexts", len(plan.Contexts),
		"tasks", len(plan.Tasks))
	return plan, nil
}

func (p *Planner) buildTask(tpl resolvedTemplate, contextKey, contextName, fingerprint string, sourcePaths []string) (RenderTask, error) {
	vars := map[string]string{
		"pipeline": p.cfg.Name,
		"template": tpl.name,
		"ontology": contextName,
		"ext":      tpl.ext,
	}
	rel, err := template.ExpandPattern(tpl.cfg.OutputPattern, vars)
	if err != nil {
		return RenderTask{}, fmt.Errorf("template %s: %w", tpl.path, err)
	}

	deps := make([]string, 0, len(sourcePaths)+1)
	deps = append(deps, tpl.path)
	deps = append(deps, sourcePaths...)

	return RenderTask{
		ID:           uuid.NewString(),
		TemplateName: tpl.name,
		TemplatePath: tpl.path,
		ContextKey:   contextKey,
		ContextName:  contextName,
		OutputPath:   filepath.Join(p.cfg.Output.Directory, rel),
		CacheKey: cache.Key(
			tpl.body,
			[]byte(fingerprint),
			canonicalOverrides(tpl.cfg.ContextOverrides),
			[]byte(strings.Join(tpl.cfg.Filters, ",")),
		),
		Dependencies: deps,
		Overrides:    tpl.cfg.ContextOverrides,
		Filters:      tpl.cfg.Filters,
	}, nil
}

// resolveTemplates expands template globs and reads bodies. A literal
// path that does not exist fails the plan; a glob matching nothing is
// logged and skipped.
func (p *Planner) resolveTemplates() ([]resolvedTemplate, error) {
	var out []resolvedTemplate
	for _, tc := range p.cfg.Templates {
		files, err := ontology.ResolveFiles(tc.Path)
		if err != nil {
			return nil, fmt.Errorf("resolve template %q: %w", tc.Path, err)
		}
		if len(files) == 0 {
			p.logger.Warn("template pattern matched no files", "pattern", tc.Path)
			continue
		}
		for _, file := range files {
			body, err := os.ReadFile(file)
			if err != nil {
				return nil, fmt.Errorf("reading template %s: %w", file, err)
			}
			name, ext := splitTemplateName(file)
			out = append(out, resolvedTemplate{cfg: tc, path: file, name: name, ext: ext, body: body})
		}
	}
	return out, nil
}

// templateExts are suffixes stripped before deriving the {template}
// and {ext} output tokens: model.go.tmpl renders as template "model"
// with extension "go".
var templateExts = map[string]bool{".tmpl": true, ".gotmpl": true, ".tpl": true}

func splitTemplateName(path string) (name, ext string) {
	base := filepath.Base(path)
	if e := filepath.Ext(base); templateExts[e] {
		base = strings.TrimSuffix(base, e)
	}
	if e := filepath.Ext(base); e != "" {
		return strings.TrimSuffix(base, e), strings.TrimPrefix(e, ".")
	}
	return base, ""
}

// contextFingerprint hashes a context's triples and prefixes so cache
// keys change exactly when the semantic content changes.
func contextFingerprint(ctx *graph.Context) string {
	h := sha256.New()
	for _, t := range ctx.Triples() {
		h.Write([]byte(t.Key()))
		h.Write([]byte{'\n'})
	}
	prefixes := ctx.Prefixes()
	labels := make([]string, 0, len(prefixes))
	for label := range prefixes {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(h, "@%s=%s\n", label, prefixes[label])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalOverrides renders override maps to stable bytes for cache
// keying. json.Marshal sorts map keys, which is all the determinism
// needed here.
func canonicalOverrides(overrides map[string]any) []byte {
	if len(overrides) == 0 {
		return nil
	}
	data, err := json.Marshal(overrides)
	if err != nil {
		return []byte(fmt.Sprintf("%v", overrides))
	}
	return data
}
