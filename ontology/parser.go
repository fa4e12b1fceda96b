// Package ontology loads RDF sources from disk and parses them into
// graph fragments. Parsers register by format and file extension;
// the loader resolves globs, fans parsing out across workers, and
// namespaces blank nodes per source file.
package ontology

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/c360studio/semgen/graph"
)

// Parser converts one source document into a graph fragment.
type Parser interface {
	// Parse reads the document body. The path is used for error
	// reporting and fragment provenance only.
	Parse(path string, data []byte) (*graph.Fragment, error)

	// CanParse reports whether the parser handles the file, judged by
	// extension.
	CanParse(path string) bool

	// Format identifies the serialization this parser reads.
	Format() graph.Format
}

// Registry holds the known parsers. Lookup by explicit format beats
// extension sniffing when the caller states one.
type Registry struct {
	parsers []Parser
}

// NewRegistry returns a registry with the built-in parsers: Turtle,
// N-Triples, and JSON-LD.
func NewRegistry() *Registry {
	return &Registry{parsers: []Parser{
		NewTurtleParser(),
		NewNTriplesParser(),
		NewJSONLDParser(),
	}}
}

// Register adds a parser. Later registrations win extension conflicts.
func (r *Registry) Register(p Parser) {
	r.parsers = append([]Parser{p}, r.parsers...)
}

// ForFormat returns the parser for an explicit format.
func (r *Registry) ForFormat(format graph.Format) (Parser, error) {
	for _, p := range r.parsers {
		if p.Format() == format {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: format %q", ErrNoParser, format)
}

// ForPath returns the parser that recognizes the file extension.
func (r *Registry) ForPath(path string) (Parser, error) {
	for _, p := range r.parsers {
		if p.CanParse(path) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoParser, path)
}

func hasExtension(path string, exts ...string) bool {
	got := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if got == e {
			return true
		}
	}
	return false
}
