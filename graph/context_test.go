package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) *Context {
	t.Helper()
	return Merge([]Fragment{{
		Path:     "onto.ttl",
		Prefixes: map[string]string{"ex": "http://example.org/"},
		Triples: []Triple{
			{Subject: "http://example.org/Widget", Predicate: "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", Object: NewIRI("http://www.w3.org/2002/07/owl#Class")},
			{Subject: "http://example.org/Widget", Predicate: "http://www.w3.org/2000/01/rdf-schema#label", Object: NewLangLiteral("Widget", "en")},
			{Subject: "http://example.org/Gadget", Predicate: "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", Object: NewIRI("http://www.w3.org/2002/07/owl#Class")},
			{Subject: "http://example.org/Gadget", Predicate: "http://example.org/partOf", Object: NewIRI("http://example.org/Widget")},
		},
	}})
}

func TestContext_Query_ExpandsCURIE(t *testing.T) {
	ctx := testContext(t)

	direct := ctx.Query("http://example.org/Widget")
	curie := ctx.Query("ex:Widget")

	require.Len(t, direct, 2)
	assert.Equal(t, direct, curie)
	assert.Nil(t, ctx.Query("ex:Missing"))
}

func TestContext_Filter_ByPredicate(t *testing.T) {
	ctx := testContext(t)

	typed := ctx.Filter("rdf:type")
	require.Len(t, typed, 2)
	for _, tr := range typed {
		assert.Equal(t, "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", tr.Predicate)
	}
}

func TestContext_Filter_ByPredicateAndObject(t *testing.T) {
	ctx := testContext(t)

	got := ctx.Filter("ex:partOf", "ex:Widget")
	require.Len(t, got, 1)
	assert.Equal(t, "http://example.org/Gadget", got[0].Subject)

	assert.Nil(t, ctx.Filter("ex:partOf", "ex:Gadget"))
}

func TestContext_Subjects_Sorted(t *testing.T) {
	ctx := testContext(t)

	assert.Equal(t, []string{
		"http://example.org/Gadget",
		"http://example.org/Widget",
	}, ctx.Subjects())
}

func TestContext_AccessorsReturnCopies(t *testing.T) {
	ctx := testContext(t)

	triples := ctx.Triples()
	triples[0].Subject = "mutated"
	assert.Equal(t, "http://example.org/Widget", ctx.Triples()[0].Subject)

	prefixes := ctx.Prefixes()
	prefixes["ex"] = "mutated"
	assert.Equal(t, "http://example.org/", ctx.Namespace("ex"))

	meta := ctx.Metadata()
	meta.SourcePaths[0] = "mutated"
	assert.Equal(t, "onto.ttl", ctx.Metadata().SourcePaths[0])
}

func TestExpandCURIE(t *testing.T) {
	prefixes := map[string]string{"ex": "http://example.org/"}

	assert.Equal(t, "http://example.org/Widget", ExpandCURIE("ex:Widget", prefixes))
	assert.Equal(t, "http://example.org/Widget", ExpandCURIE("http://example.org/Widget", prefixes))
	assert.Equal(t, "unknown:Widget", ExpandCURIE("unknown:Widget", prefixes))
	assert.Equal(t, "_:b0", ExpandCURIE("_:b0", prefixes))
	assert.Equal(t, "plain", ExpandCURIE("plain", prefixes))
}
