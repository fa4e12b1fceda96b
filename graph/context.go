package graph

import (
	"sort"
	"strings"
	"time"
)

// Queryable is the read capability templates receive. It is the full
// surface rendering needs; the concrete Context stays internal to the
// pipeline so callers cannot reach mutable state.
type Queryable interface {
	// Query returns every triple with the given subject, in merge order.
	Query(subject string) []Triple

	// Filter returns every triple with the given predicate. An optional
	// second argument restricts matches to a specific object value.
	Filter(predicate string, object ...string) []Triple

	// Namespace resolves a prefix label to its namespace IRI, or ""
	// when the prefix is not declared.
	Namespace(prefix string) string
}

// Metadata describes how a context was assembled.
type Metadata struct {
	SourcePaths []string  `json:"source_paths"`
	BuiltAt     time.Time `json:"built_at"`
	TripleCount int       `json:"triple_count"`
}

// Context is the merged semantic context for one pipeline pass. It is
// immutable once built: every accessor returns copies or derived
// slices, never internal state.
type Context struct {
	triples  []Triple
	prefixes map[string]string
	meta     Metadata
	warnings []string

	bySubject   map[string][]int
	byPredicate map[string][]int
}

// Triples returns all statements in merge order.
func (c *Context) Triples() []Triple {
	out := make([]Triple, len(c.triples))
	copy(out, c.triples)
	return out
}

// Len returns the number of statements in the context.
func (c *Context) Len() int {
	return len(c.triples)
}

// Prefixes returns a copy of the merged prefix map.
func (c *Context) Prefixes() map[string]string {
	out := make(map[string]string, len(c.prefixes))
	for k, v := range c.prefixes {
		out[k] = v
	}
	return out
}

// Metadata returns provenance for the merged context.
func (c *Context) Metadata() Metadata {
	meta := c.meta
	meta.SourcePaths = append([]string(nil), c.meta.SourcePaths...)
	return meta
}

// Warnings returns non-fatal findings recorded during the merge, such
// as prefix redefinitions.
func (c *Context) Warnings() []string {
	return append([]string(nil), c.warnings...)
}

// Query returns every triple whose subject matches. CURIE subjects are
// expanded against the merged prefixes before lookup.
func (c *Context) Query(subject string) []Triple {
	idx, ok := c.bySubject[c.Expand(subject)]
	if !ok {
		return nil
	}
	out := make([]Triple, 0, len(idx))
	for _, i := range idx {
		out = append(out, c.triples[i])
	}
	return out
}

// Filter returns every triple whose predicate matches, optionally
// narrowed to a single object value. CURIEs are expanded for both the
// predicate and the object argument.
func (c *Context) Filter(predicate string, object ...string) []Triple {
	idx, ok := c.byPredicate[c.Expand(predicate)]
	if !ok {
		return nil
	}
	var want string
	if len(object) > 0 {
		want = c.Expand(object[0])
	}
	out := make([]Triple, 0, len(idx))
	for _, i := range idx {
		t := c.triples[i]
		if want != "" && t.Object.Value != want && c.Expand(t.Object.Value) != want {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Namespace resolves a prefix label to its namespace IRI.
func (c *Context) Namespace(prefix string) string {
	return c.prefixes[prefix]
}

// Subjects returns the distinct subjects in the context, sorted.
func (c *Context) Subjects() []string {
	out := make([]string, 0, len(c.bySubject))
	for s := range c.bySubject {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Expand resolves a CURIE like "rdfs:label" to an absolute IRI using
// the merged prefixes. Well-known prefixes (rdf, rdfs, owl, xsd, dc,
// skos, prov) resolve even when no source declares them. Absolute
// IRIs and unknown prefixes pass through unchanged.
func (c *Context) Expand(id string) string {
	if expanded := ExpandCURIE(id, c.prefixes); expanded != id {
		return expanded
	}
	return ExpandCURIE(id, defaultPrefixes)
}

// ExpandCURIE expands "prefix:local" against the given prefix map.
// Inputs that are already absolute IRIs, blank-node references, or use
// an undeclared prefix are returned as-is.
func ExpandCURIE(id string, prefixes map[string]string) string {
	if id == "" || IsBlankNode(id) {
		return id
	}
	i := strings.Index(id, ":")
	if i < 0 {
		return id
	}
	// "http://..." and friends carry "//" right after the colon.
	if strings.HasPrefix(id[i+1:], "//") {
		return id
	}
	ns, ok := prefixes[id[:i]]
	if !ok {
		return id
	}
	return ns + id[i+1:]
}
