package ontology

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"

	"github.com/c360studio/semgen/graph"
)

// JSONLDParser reads the flattened JSON-LD shape common in generated
// ontologies: an @context of prefix mappings plus an @graph of node
// objects, or a bare node object or array of them. Remote contexts
// are not resolved.
type JSONLDParser struct{}

func NewJSONLDParser() *JSONLDParser { return &JSONLDParser{} }

func (p *JSONLDParser) Format() graph.Format { return graph.FormatJSONLD }

func (p *JSONLDParser) CanParse(path string) bool {
	return hasExtension(path, ".jsonld", ".json")
}

func (p *JSONLDParser) Parse(path string, data []byte) (*graph.Fragment, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			line := 1 + bytes.Count(data[:syn.Offset], []byte("\n"))
			return nil, &ParseError{File: path, Line: line, Msg: "invalid JSON: " + err.Error(), Err: err}
		}
		return nil, &ParseError{File: path, Msg: err.Error(), Err: err}
	}

	d := &jsonldDecoder{file: path, prefixes: make(map[string]string)}
	switch v := doc.(type) {
	case map[string]any:
		if err := d.decodeDocument(v); err != nil {
			return nil, err
		}
	case []any:
		for _, item := range v {
			node, ok := item.(map[string]any)
			if !ok {
				return nil, parseErrorf(path, 0, "document array may only hold node objects")
			}
			if _, err := d.decodeNode(node); err != nil {
				return nil, err
			}
		}
	default:
		return nil, parseErrorf(path, 0, "document root must be an object or array")
	}
	return &graph.Fragment{Path: path, Triples: d.triples, Prefixes: d.prefixes}, nil
}

type jsonldDecoder struct {
	file     string
	prefixes map[string]string
	vocab    string
	triples  []graph.Triple
	blankSeq int
}

func (d *jsonldDecoder) decodeDocument(doc map[string]any) error {
	if rawCtx, ok := doc["@context"]; ok {
		if err := d.decodeContext(rawCtx); err != nil {
			return err
		}
	}
	rawGraph, ok := doc["@graph"]
	if !ok {
		// the document itself is a single node
		_, err := d.decodeNode(doc)
		return err
	}
	nodes, ok := rawGraph.([]any)
	if !ok {
		return parseErrorf(d.file, 0, "@graph must be an array")
	}
	for _, item := range nodes {
		node, ok := item.(map[string]any)
		if !ok {
			return parseErrorf(d.file, 0, "@graph may only hold node objects")
		}
		if _, err := d.decodeNode(node); err != nil {
			return err
		}
	}
	return nil
}

func (d *jsonldDecoder) decodeContext(raw any) error {
	ctx, ok := raw.(map[string]any)
	if !ok {
		return parseErrorf(d.file, 0, "@context must be an object; remote contexts are not supported")
	}
	for term, def := range ctx {
		switch v := def.(type) {
		case string:
			if term == "@vocab" {
				d.vocab = v
				continue
			}
			d.prefixes[term] = v
		case map[string]any:
			if id, ok := v["@id"].(string); ok {
				d.prefixes[term] = id
			}
		}
	}
	return nil
}

// decodeNode emits the node's triples and returns its identifier,
// generating a blank node when @id is absent. Keys are processed in
// sorted order so output is deterministic.
func (d *jsonldDecoder) decodeNode(node map[string]any) (string, error) {
	id := graph.BlankPrefix + d.newBlank()
	if raw, ok := node["@id"].(string); ok {
		id = d.expandID(raw)
	}

	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := node[key]
		switch key {
		case "@id", "@context":
			continue
		case "@type":
			for _, raw := range asArray(value) {
				name, ok := raw.(string)
				if !ok {
					return "", parseErrorf(d.file, 0, "@type values must be strings")
				}
				d.emit(id, rdfType, graph.NewIRI(d.expandTerm(name)))
			}
		default:
			predicate := d.expandTerm(key)
			for _, raw := range asArray(value) {
				obj, err := d.decodeValue(raw)
				if err != nil {
					return "", err
				}
				d.emit(id, predicate, obj)
			}
		}
	}
	return id, nil
}

func (d *jsonldDecoder) decodeValue(raw any) (graph.Object, error) {
	switch v := raw.(type) {
	case string:
		return graph.NewLiteral(v), nil
	case bool:
		return graph.NewTypedLiteral(strconv.FormatBool(v), xsdBoolean), nil
	case float64:
		return numberLiteral(v), nil
	case map[string]any:
		if rawValue, ok := v["@value"]; ok {
			return d.decodeValueObject(v, rawValue)
		}
		// node reference or embedded node
		id, err := d.decodeNode(v)
		if err != nil {
			return graph.Object{}, err
		}
		if graph.IsBlankNode(id) {
			return graph.NewBlank(id[len(graph.BlankPrefix):]), nil
		}
		return graph.NewIRI(id), nil
	default:
		return graph.Object{}, parseErrorf(d.file, 0, "unsupported value of type %T", raw)
	}
}

func (d *jsonldDecoder) decodeValueObject(v map[string]any, rawValue any) (graph.Object, error) {
	var value string
	switch t := rawValue.(type) {
	case string:
		value = t
	case bool:
		value = strconv.FormatBool(t)
	case float64:
		value = numberLiteral(t).Value
	default:
		return graph.Object{}, parseErrorf(d.file, 0, "@value must be a string, number, or boolean")
	}
	if dt, ok := v["@type"].(string); ok {
		return graph.NewTypedLiteral(value, d.expandTerm(dt)), nil
	}
	if lang, ok := v["@language"].(string); ok {
		return graph.NewLangLiteral(value, lang), nil
	}
	return graph.NewLiteral(value), nil
}

func (d *jsonldDecoder) emit(subject, predicate string, object graph.Object) {
	d.triples = append(d.triples, graph.Triple{Subject: subject, Predicate: predicate, Object: object})
}

func (d *jsonldDecoder) newBlank() string {
	label := "gen" + strconv.Itoa(d.blankSeq)
	d.blankSeq++
	return label
}

func (d *jsonldDecoder) expandID(id string) string {
	if graph.IsBlankNode(id) {
		return id
	}
	return d.expandTerm(id)
}

func (d *jsonldDecoder) expandTerm(term string) string {
	expanded := graph.ExpandCURIE(term, d.prefixes)
	if expanded == term && d.vocab != "" && !isAbsoluteIRI(term) {
		return d.vocab + term
	}
	return expanded
}

func numberLiteral(f float64) graph.Object {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return graph.NewTypedLiteral(strconv.FormatInt(int64(f), 10), xsdInteger)
	}
	return graph.NewTypedLiteral(strconv.FormatFloat(f, 'g', -1, 64), xsdDouble)
}

func asArray(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	return []any{v}
}
