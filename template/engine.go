package template

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/c360studio/semgen/graph"
)

// Engine is the default Renderer, built on text/template. Each render
// parses the body fresh with the filter functions and context-bound
// query functions installed, so Engine itself holds no per-render
// state and is safe for concurrent use.
type Engine struct {
	filters *FilterRegistry
}

// NewEngine returns an engine with the default filter set.
func NewEngine() *Engine {
	return &Engine{filters: DefaultFilters()}
}

// NewEngineWithFilters returns an engine using the given registry.
func NewEngineWithFilters(filters *FilterRegistry) *Engine {
	if filters == nil {
		filters = DefaultFilters()
	}
	return &Engine{filters: filters}
}

func (e *Engine) Render(ctx context.Context, in RenderInput) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	qctx := in.Context
	if qctx == nil {
		qctx = graph.Merge(nil)
	}

	funcs := e.filters.FuncMap(in.Filters)
	bindContextFuncs(funcs, qctx)

	tmpl, err := template.New(in.Name).Funcs(funcs).Parse(string(in.Body))
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}

	data := map[string]any{
		"Pipeline":  in.Meta.Pipeline,
		"Template":  in.Meta.Template,
		"Ontology":  in.Meta.Ontology,
		"Overrides": in.Overrides,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}
	return buf.Bytes(), nil
}

// bindContextFuncs installs the query surface of the semantic context.
// Optional capabilities (full triple listing, serialization) are
// probed so a caller-supplied Queryable still renders.
func bindContextFuncs(funcs template.FuncMap, qctx graph.Queryable) {
	funcs["query"] = func(subject string) []graph.Triple {
		return qctx.Query(subject)
	}
	funcs["filter"] = func(predicate string, object ...string) []graph.Triple {
		return qctx.Filter(predicate, object...)
	}
	funcs["namespace"] = func(prefix string) string {
		return qctx.Namespace(prefix)
	}
	if lister, ok := qctx.(interface{ Triples() []graph.Triple }); ok {
		funcs["triples"] = lister.Triples
	}
	if lister, ok := qctx.(interface{ Subjects() []string }); ok {
		funcs["subjects"] = lister.Subjects
	}
	if ser, ok := qctx.(interface {
		Serialize(graph.Format) (string, error)
	}); ok {
		funcs["serialize"] = func(format string) (string, error) {
			f, err := graph.ParseFormat(format)
			if err != nil {
				return "", err
			}
			return ser.Serialize(f)
		}
	}
}
