// Package graph defines the RDF data model shared by the pipeline:
// triples, fragments parsed from individual sources, and the merged
// semantic context handed to templates.
package graph

import "strings"

// ObjectKind discriminates the three RDF term kinds an object can hold.
type ObjectKind string

const (
	ObjectIRI     ObjectKind = "iri"
	ObjectLiteral ObjectKind = "literal"
	ObjectBlank   ObjectKind = "blank"
)

// Object is the object term of a triple. Datatype and Lang are only
// meaningful for literals and are mutually exclusive.
type Object struct {
	Value    string     `json:"value"`
	Kind     ObjectKind `json:"kind"`
	Datatype string     `json:"datatype,omitempty"`
	Lang     string     `json:"lang,omitempty"`
}

// NewIRI returns an IRI object term.
func NewIRI(value string) Object {
	return Object{Value: value, Kind: ObjectIRI}
}

// NewLiteral returns a plain literal object term.
func NewLiteral(value string) Object {
	return Object{Value: value, Kind: ObjectLiteral}
}

// NewTypedLiteral returns a literal tagged with a datatype IRI.
func NewTypedLiteral(value, datatype string) Object {
	return Object{Value: value, Kind: ObjectLiteral, Datatype: datatype}
}

// NewLangLiteral returns a literal tagged with a language code.
func NewLangLiteral(value, lang string) Object {
	return Object{Value: value, Kind: ObjectLiteral, Lang: lang}
}

// NewBlank returns a blank-node object term. The label excludes the
// leading "_:".
func NewBlank(label string) Object {
	return Object{Value: label, Kind: ObjectBlank}
}

// IsBlank reports whether the object is a blank node.
func (o Object) IsBlank() bool {
	return o.Kind == ObjectBlank
}

// Triple is a single RDF statement. Subject holds either an absolute
// IRI or a blank-node reference in "_:label" form. Graph names the
// named graph the statement belongs to; empty means the default graph.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    Object `json:"object"`
	Graph     string `json:"graph,omitempty"`
}

// BlankPrefix marks blank-node subjects and object values after
// loader-side namespacing.
const BlankPrefix = "_:"

// IsBlankNode reports whether an identifier is a blank-node reference.
func IsBlankNode(id string) bool {
	return strings.HasPrefix(id, BlankPrefix)
}

// Key returns a canonical identity string used for deduplication
// during merge. Two triples with equal keys are the same statement.
func (t Triple) Key() string {
	var b strings.Builder
	b.Grow(len(t.Subject) + len(t.Predicate) + len(t.Object.Value) + 16)
	b.WriteString(t.Subject)
	b.WriteByte(0x1f)
	b.WriteString(t.Predicate)
	b.WriteByte(0x1f)
	b.WriteString(string(t.Object.Kind))
	b.WriteByte(0x1f)
	b.WriteString(t.Object.Value)
	b.WriteByte(0x1f)
	b.WriteString(t.Object.Datatype)
	b.WriteByte(0x1f)
	b.WriteString(t.Object.Lang)
	b.WriteByte(0x1f)
	b.WriteString(t.Graph)
	return b.String()
}
