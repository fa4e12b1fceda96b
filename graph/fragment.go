package graph

// Fragment holds the triples and prefix declarations parsed from a
// single ontology source. Fragments are the unit of merging: the
// loader produces one per file and Merge combines them into a Context.
type Fragment struct {
	// Source is the logical label of the originating source entry,
	// typically its namespace or path from the pipeline config.
	Source string `json:"source"`

	// Path is the concrete file the fragment was parsed from.
	Path string `json:"path"`

	// Triples are the statements in document order. Blank-node
	// identifiers are already namespaced per source file.
	Triples []Triple `json:"triples"`

	// Prefixes maps prefix labels to namespace IRIs declared in the
	// source document.
	Prefixes map[string]string `json:"prefixes,omitempty"`
}

// NamespaceBlankNodes rewrites every blank-node identifier in the
// fragment to carry the given scope so that nodes from different files
// can never collide after merging. A label "b0" under scope "core"
// becomes "_:core.b0".
func (f *Fragment) NamespaceBlankNodes(scope string) {
	if scope == "" {
		return
	}
	for i := range f.Triples {
		t := &f.Triples[i]
		if IsBlankNode(t.Subject) {
			t.Subject = BlankPrefix + scope + "." + t.Subject[len(BlankPrefix):]
		}
		if t.Object.IsBlank() {
			t.Object.Value = scope + "." + t.Object.Value
		}
	}
}
