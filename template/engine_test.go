package template

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semgen/graph"
)

func engineContext() *graph.Context {
	return graph.Merge([]graph.Fragment{{
		Path:     "onto.ttl",
		Prefixes: map[string]string{"ex": "http://example.org/"},
		Triples: []graph.Triple{
			{Subject: "http://example.org/Widget", Predicate: "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", Object: graph.NewIRI("http://www.w3.org/2002/07/owl#Class")},
			{Subject: "http://example.org/Widget", Predicate: "http://www.w3.org/2000/01/rdf-schema#label", Object: graph.NewLiteral("Widget")},
			{Subject: "http://example.org/Gadget", Predicate: "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", Object: graph.NewIRI("http://www.w3.org/2002/07/owl#Class")},
		},
	}})
}

func TestEngine_Render_QueriesContext(t *testing.T) {
	body := `# {{ .Pipeline }}
{{- range filter "rdf:type" "owl:Class" }}
- {{ localname .Subject }}
{{- end }}
label: {{ (index (query "ex:Widget") 1).Object.Value }}
ns: {{ namespace "ex" }}`

	out, err := NewEngine().Render(context.Background(), RenderInput{
		Name:    "classes.tmpl",
		Body:    []byte(body),
		Context: engineContext(),
		Meta:    Meta{Pipeline: "docs", Template: "classes"},
	})
	require.NoError(t, err)

	want := `# docs
- Widget
- Gadget
label: Widget
ns: http://example.org/`
	assert.Equal(t, want, string(out))
}

func TestEngine_Render_OverridesAndOntology(t *testing.T) {
	body := `{{ .Ontology }}/{{ index .Overrides "audience" }}`

	out, err := NewEngine().Render(context.Background(), RenderInput{
		Name:      "x.tmpl",
		Body:      []byte(body),
		Context:   engineContext(),
		Overrides: map[string]any{"audience": "ops"},
		Meta:      Meta{Ontology: "core"},
	})
	require.NoError(t, err)
	assert.Equal(t, "core/ops", string(out))
}

func TestEngine_Render_SerializeCapability(t *testing.T) {
	out, err := NewEngine().Render(context.Background(), RenderInput{
		Name:    "dump.tmpl",
		Body:    []byte(`{{ serialize "ntriples" }}`),
		Context: engineContext(),
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), "<http://example.org/Widget>")
}

func TestEngine_Render_FilterAllowlist(t *testing.T) {
	in := RenderInput{
		Name:    "x.tmpl",
		Body:    []byte(`{{ upper "abc" }}`),
		Context: engineContext(),
		Filters: []string{"lower"},
	}

	_, err := NewEngine().Render(context.Background(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing template")

	in.Filters = []string{"upper"}
	out, err := NewEngine().Render(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "ABC", string(out))
}

func TestEngine_Render_NilContext(t *testing.T) {
	out, err := NewEngine().Render(context.Background(), RenderInput{
		Name: "x.tmpl",
		Body: []byte(`{{ len (filter "rdf:type") }}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "0", string(out))
}

func TestEngine_Render_ParseError(t *testing.T) {
	_, err := NewEngine().Render(context.Background(), RenderInput{
		Name: "broken.tmpl",
		Body: []byte(`{{ range }}`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing template")
}
