package ontology

import "github.com/c360studio/semgen/graph"

// NTriplesParser reads N-Triples and N-Quads: one statement per line,
// absolute IRIs only. It shares the Turtle tokenizer but rejects the
// abbreviations Turtle allows.
type NTriplesParser struct{}

func NewNTriplesParser() *NTriplesParser { return &NTriplesParser{} }

func (p *NTriplesParser) Format() graph.Format { return graph.FormatNTriples }

func (p *NTriplesParser) CanParse(path string) bool {
	return hasExtension(path, ".nt", ".nq", ".ntriples")
}

func (p *NTriplesParser) Parse(path string, data []byte) (*graph.Fragment, error) {
	d := &ttlDecoder{
		file:     path,
		src:      string(data),
		line:     1,
		prefixes: make(map[string]string),
	}
	var triples []graph.Triple
	for {
		tok, err := d.peek()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			break
		}
		t, err := d.parseStrictStatement()
		if err != nil {
			return nil, err
		}
		triples = append(triples, t)
	}
	return &graph.Fragment{Path: path, Triples: triples}, nil
}

func (d *ttlDecoder) parseStrictStatement() (graph.Triple, error) {
	subj, err := d.next()
	if err != nil {
		return graph.Triple{}, err
	}
	var subject string
	switch subj.kind {
	case tokIRI:
		subject = subj.val
	case tokBlank:
		subject = graph.BlankPrefix + subj.val
	default:
		return graph.Triple{}, parseErrorf(d.file, subj.line, "expected IRI or blank node subject, got %s", tokDesc(subj))
	}

	pred, err := d.next()
	if err != nil {
		return graph.Triple{}, err
	}
	if pred.kind != tokIRI {
		return graph.Triple{}, parseErrorf(d.file, pred.line, "expected IRI predicate, got %s", tokDesc(pred))
	}

	object, err := d.parseStrictObject()
	if err != nil {
		return graph.Triple{}, err
	}

	t := graph.Triple{Subject: subject, Predicate: pred.val, Object: object}
	tok, err := d.next()
	if err != nil {
		return graph.Triple{}, err
	}
	switch tok.kind {
	case tokDot:
		return t, nil
	case tokIRI:
		t.Graph = tok.val
	case tokBlank:
		t.Graph = graph.BlankPrefix + tok.val
	default:
		return graph.Triple{}, parseErrorf(d.file, tok.line, "expected '.' or graph label, got %s", tokDesc(tok))
	}
	if err := d.expect(tokDot, "'.'"); err != nil {
		return graph.Triple{}, err
	}
	return t, nil
}

func (d *ttlDecoder) parseStrictObject() (graph.Object, error) {
	tok, err := d.next()
	if err != nil {
		return graph.Object{}, err
	}
	switch tok.kind {
	case tokIRI:
		return graph.NewIRI(tok.val), nil
	case tokBlank:
		return graph.NewBlank(tok.val), nil
	case tokString:
		return d.parseLiteralTail(tok)
	default:
		return graph.Object{}, parseErrorf(d.file, tok.line, "expected IRI, blank node, or literal object, got %s", tokDesc(tok))
	}
}
