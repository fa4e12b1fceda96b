package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Format identifies an RDF serialization.
type Format string

const (
	FormatTurtle   Format = "turtle"
	FormatNTriples Format = "ntriples"
	FormatJSONLD   Format = "jsonld"
)

// ParseFormat normalizes a format name from config or CLI input.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "turtle", "ttl":
		return FormatTurtle, nil
	case "ntriples", "nt", "n-triples":
		return FormatNTriples, nil
	case "jsonld", "json-ld", "json":
		return FormatJSONLD, nil
	default:
		return "", fmt.Errorf("unknown RDF format %q", s)
	}
}

// defaultPrefixes are well-known namespaces used for compaction when a
// document does not declare its own label for them.
var defaultPrefixes = map[string]string{
	"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
	"owl":  "http://www.w3.org/2002/07/owl#",
	"xsd":  "http://www.w3.org/2001/XMLSchema#",
	"dc":   "http://purl.org/dc/elements/1.1/",
	"skos": "http://www.w3.org/2004/02/skos/core#",
	"prov": "http://www.w3.org/ns/prov#",
}

// Serialize renders the context in the requested format.
func (c *Context) Serialize(format Format) (string, error) {
	return Serialize(c.triples, c.prefixes, format)
}

// Serialize renders a set of triples in the requested format. Output
// is deterministic: prefixes are emitted sorted and subjects keep
// their first-seen order.
func Serialize(triples []Triple, prefixes map[string]string, format Format) (string, error) {
	switch format {
	case FormatTurtle:
		return toTurtle(triples, effectivePrefixes(prefixes)), nil
	case FormatNTriples:
		return toNTriples(triples), nil
	case FormatJSONLD:
		return toJSONLD(triples, effectivePrefixes(prefixes))
	default:
		return "", fmt.Errorf("unknown RDF format %q", format)
	}
}

func effectivePrefixes(prefixes map[string]string) map[string]string {
	merged := make(map[string]string, len(defaultPrefixes)+len(prefixes))
	for k, v := range defaultPrefixes {
		merged[k] = v
	}
	for k, v := range prefixes {
		merged[k] = v
	}
	return merged
}

func sortedLabels(prefixes map[string]string) []string {
	labels := make([]string, 0, len(prefixes))
	for l := range prefixes {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// groupBySubject partitions triples by subject, preserving first-seen
// subject order and statement order within each subject.
func groupBySubject(triples []Triple) ([]string, map[string][]Triple) {
	order := make([]string, 0)
	groups := make(map[string][]Triple)
	for _, t := range triples {
		if _, seen := groups[t.Subject]; !seen {
			order = append(order, t.Subject)
		}
		groups[t.Subject] = append(groups[t.Subject], t)
	}
	return order, groups
}

func toTurtle(triples []Triple, prefixes map[string]string) string {
	var b strings.Builder
	for _, label := range sortedLabels(prefixes) {
		b.WriteString(fmt.Sprintf("@prefix %s: <%s> .\n", label, prefixes[label]))
	}
	if len(prefixes) > 0 && len(triples) > 0 {
		b.WriteString("\n")
	}

	order, groups := groupBySubject(triples)
	for _, subject := range order {
		group := groups[subject]
		b.WriteString(compactTerm(subject, prefixes))
		for i, t := range group {
			if i == 0 {
				b.WriteString(" ")
			} else {
				b.WriteString(" ;\n    ")
			}
			b.WriteString(compactTerm(t.Predicate, prefixes))
			b.WriteString(" ")
			b.WriteString(turtleObject(t.Object, prefixes))
		}
		b.WriteString(" .\n")
	}
	return b.String()
}

func toNTriples(triples []Triple) string {
	var b strings.Builder
	for _, t := range triples {
		b.WriteString(ntriplesTerm(t.Subject))
		b.WriteString(" ")
		b.WriteString(ntriplesTerm(t.Predicate))
		b.WriteString(" ")
		b.WriteString(ntriplesObject(t.Object))
		if t.Graph != "" {
			b.WriteString(" ")
			b.WriteString(ntriplesTerm(t.Graph))
		}
		b.WriteString(" .\n")
	}
	return b.String()
}

func toJSONLD(triples []Triple, prefixes map[string]string) (string, error) {
	context := make(map[string]string, len(prefixes))
	for label, ns := range prefixes {
		context[label] = ns
	}

	order, groups := groupBySubject(triples)
	nodes := make([]map[string]any, 0, len(order))
	for _, subject := range order {
		node := map[string]any{"@id": subject}
		for _, t := range groups[subject] {
			key := compactTerm(t.Predicate, prefixes)
			node[key] = appendJSONLDValue(node[key], t.Object)
		}
		nodes = append(nodes, node)
	}

	doc := map[string]any{
		"@context": context,
		"@graph":   nodes,
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON-LD: %w", err)
	}
	return string(out) + "\n", nil
}

func appendJSONLDValue(existing any, o Object) any {
	v := jsonldObject(o)
	switch prev := existing.(type) {
	case nil:
		return v
	case []any:
		return append(prev, v)
	default:
		return []any{prev, v}
	}
}

func jsonldObject(o Object) any {
	switch o.Kind {
	case ObjectIRI:
		return map[string]any{"@id": o.Value}
	case ObjectBlank:
		return map[string]any{"@id": BlankPrefix + o.Value}
	default:
		switch {
		case o.Datatype != "":
			return map[string]any{"@value": o.Value, "@type": o.Datatype}
		case o.Lang != "":
			return map[string]any{"@value": o.Value, "@language": o.Lang}
		default:
			return o.Value
		}
	}
}

// compactTerm shortens an absolute IRI to a CURIE when a declared
// namespace matches; the longest namespace wins. Blank nodes pass
// through unchanged.
func compactTerm(id string, prefixes map[string]string) string {
	if IsBlankNode(id) {
		return id
	}
	bestLabel, bestLen := "", 0
	for label, ns := range prefixes {
		if !strings.HasPrefix(id, ns) || len(id) == len(ns) {
			continue
		}
		if strings.ContainsAny(id[len(ns):], "/#") {
			continue
		}
		// Longest namespace wins; ties break on label so output is stable.
		if len(ns) > bestLen || (len(ns) == bestLen && label < bestLabel) {
			bestLabel, bestLen = label, len(ns)
		}
	}
	if bestLen == 0 {
		return "<" + id + ">"
	}
	return bestLabel + ":" + id[bestLen:]
}

func turtleObject(o Object, prefixes map[string]string) string {
	switch o.Kind {
	case ObjectIRI:
		return compactTerm(o.Value, prefixes)
	case ObjectBlank:
		return BlankPrefix + o.Value
	default:
		return literalString(o, func(dt string) string { return compactTerm(dt, prefixes) })
	}
}

func ntriplesTerm(id string) string {
	if IsBlankNode(id) {
		return id
	}
	return "<" + id + ">"
}

func ntriplesObject(o Object) string {
	switch o.Kind {
	case ObjectIRI:
		return "<" + o.Value + ">"
	case ObjectBlank:
		return BlankPrefix + o.Value
	default:
		return literalString(o, func(dt string) string { return "<" + dt + ">" })
	}
}

func literalString(o Object, datatype func(string) string) string {
	s := `"` + escapeString(o.Value) + `"`
	switch {
	case o.Datatype != "":
		return s + "^^" + datatype(o.Datatype)
	case o.Lang != "":
		return s + "@" + o.Lang
	default:
		return s
	}
}

func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return s
}
