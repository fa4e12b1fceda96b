package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_DeduplicatesAcrossFragments(t *testing.T) {
	shared := Triple{
		Subject:   "http://example.org/Widget",
		Predicate: "http://www.w3.org/1999/02/22-rdf-syntax-ns#type",
		Object:    NewIRI("http://www.w3.org/2002/07/owl#Class"),
	}
	ctx := Merge([]Fragment{
		{Path: "a.ttl", Triples: []Triple{shared, {
			Subject:   "http://example.org/Widget",
			Predicate: "http://www.w3.org/2000/01/rdf-schema#label",
			Object:    NewLiteral("Widget"),
		}}},
		{Path: "b.ttl", Triples: []Triple{shared}},
	})

	assert.Equal(t, 2, ctx.Len())
	assert.Equal(t, 2, ctx.Metadata().TripleCount)
	assert.Equal(t, []string{"a.ttl", "b.ttl"}, ctx.Metadata().SourcePaths)
}

func TestMerge_PrefixConflictLastWinsWithWarning(t *testing.T) {
	ctx := Merge([]Fragment{
		{Path: "a.ttl", Prefixes: map[string]string{"ex": "http://example.org/a#"}},
		{Path: "b.ttl", Prefixes: map[string]string{"ex": "http://example.org/b#"}},
	})

	assert.Equal(t, "http://example.org/b#", ctx.Namespace("ex"))
	require.Len(t, ctx.Warnings(), 1)
	assert.Contains(t, ctx.Warnings()[0], `prefix "ex" redefined`)
	assert.Contains(t, ctx.Warnings()[0], "b.ttl")
}

func TestMerge_SamePrefixTwiceNoWarning(t *testing.T) {
	ctx := Merge([]Fragment{
		{Path: "a.ttl", Prefixes: map[string]string{"ex": "http://example.org/"}},
		{Path: "b.ttl", Prefixes: map[string]string{"ex": "http://example.org/"}},
	})

	assert.Empty(t, ctx.Warnings())
}

func TestMerge_PreservesFragmentOrder(t *testing.T) {
	ctx := Merge([]Fragment{
		{Path: "a.ttl", Triples: []Triple{{
			Subject:   "http://example.org/a",
			Predicate: "http://example.org/p",
			Object:    NewLiteral("first"),
		}}},
		{Path: "b.ttl", Triples: []Triple{{
			Subject:   "http://example.org/b",
			Predicate: "http://example.org/p",
			Object:    NewLiteral("second"),
		}}},
	})

	triples := ctx.Triples()
	require.Len(t, triples, 2)
	assert.Equal(t, "first", triples[0].Object.Value)
	assert.Equal(t, "second", triples[1].Object.Value)
}

func TestFragment_NamespaceBlankNodes(t *testing.T) {
	core := Fragment{Path: "core.ttl", Triples: []Triple{{
		Subject:   "_:b0",
		Predicate: "http://example.org/p",
		Object:    NewBlank("b1"),
	}}}
	shapes := Fragment{Path: "shapes.ttl", Triples: []Triple{{
		Subject:   "_:b0",
		Predicate: "http://example.org/p",
		Object:    NewBlank("b1"),
	}}}
	core.NamespaceBlankNodes("core")
	shapes.NamespaceBlankNodes("shapes")

	assert.Equal(t, "_:core.b0", core.Triples[0].Subject)
	assert.Equal(t, "core.b1", core.Triples[0].Object.Value)

	// Identical labels from different files stay distinct statements.
	ctx := Merge([]Fragment{core, shapes})
	assert.Equal(t, 2, ctx.Len())
}
