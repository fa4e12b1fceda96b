// Package template defines the rendering boundary between the
// pipeline and the template language, plus the default text/template
// engine behind it. The pipeline depends only on Renderer, so the
// template grammar itself stays an opaque, replaceable collaborator.
package template

import (
	"context"

	"github.com/c360studio/semgen/graph"
)

// Meta names the coordinates of one render for templates and error
// messages.
type Meta struct {
	Pipeline string
	Template string
	Ontology string
}

// RenderInput carries everything one render needs.
type RenderInput struct {
	// Name labels the template in parse and execution errors.
	Name string

	// Body is the template source.
	Body []byte

	// Context is the semantic context the template queries. A nil
	// context renders against an empty graph.
	Context graph.Queryable

	// Overrides are config-supplied values exposed as .Overrides.
	Overrides map[string]any

	// Filters restricts which registered filters the template may
	// call; empty means all of them.
	Filters []string

	// Meta is exposed as .Pipeline, .Template, and .Ontology.
	Meta Meta
}

// Renderer turns a template body and a semantic context into output
// bytes. Implementations must be safe for concurrent use; the worker
// pool renders in parallel.
type Renderer interface {
	Render(ctx context.Context, in RenderInput) ([]byte, error)
}
