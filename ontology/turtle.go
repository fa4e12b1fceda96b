package ontology

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/c360studio/semgen/graph"
)

const (
	rdfType  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	rdfFirst = "http://www.w3.org/1999/02/22-rdf-syntax-ns#first"
	rdfRest  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#rest"
	rdfNil   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#nil"

	xsdInteger = "http://www.w3.org/2001/XMLSchema#integer"
	xsdDecimal = "http://www.w3.org/2001/XMLSchema#decimal"
	xsdDouble  = "http://www.w3.org/2001/XMLSchema#double"
	xsdBoolean = "http://www.w3.org/2001/XMLSchema#boolean"
)

// TurtleParser reads the practical Turtle subset ontologies are
// written in: @prefix/@base directives (plus their SPARQL spellings),
// predicate and object lists, anonymous nodes, collections, and
// numeric, boolean, typed, and language-tagged literals.
type TurtleParser struct{}

func NewTurtleParser() *TurtleParser { return &TurtleParser{} }

func (p *TurtleParser) Format() graph.Format { return graph.FormatTurtle }

func (p *TurtleParser) CanParse(path string) bool {
	return hasExtension(path, ".ttl", ".turtle")
}

func (p *TurtleParser) Parse(path string, data []byte) (*graph.Fragment, error) {
	d := &ttlDecoder{
		file:     path,
		src:      string(data),
		line:     1,
		prefixes: make(map[string]string),
	}
	for {
		tok, err := d.peek()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			break
		}
		if err := d.parseStatement(); err != nil {
			return nil, err
		}
	}
	return &graph.Fragment{Path: path, Triples: d.triples, Prefixes: d.prefixes}, nil
}

type ttlTokenKind int

const (
	tokEOF ttlTokenKind = iota
	tokIRI
	tokPName
	tokBlank
	tokString
	tokLangTag
	tokAt
	tokCaretCaret
	tokDot
	tokSemicolon
	tokComma
	tokLBracket
	tokRBracket
	tokLParen
	tokRParen
	tokBare
)

type ttlToken struct {
	kind ttlTokenKind
	val  string
	line int
}

func tokDesc(tok ttlToken) string {
	if tok.kind == tokEOF {
		return "end of file"
	}
	return strconv.Quote(tok.val)
}

type ttlDecoder struct {
	file string
	src  string
	pos  int
	line int

	peeked   *ttlToken
	prefixes map[string]string
	base     string
	blankSeq int
	triples  []graph.Triple
}

func (d *ttlDecoder) emit(subject, predicate string, object graph.Object) {
	d.triples = append(d.triples, graph.Triple{Subject: subject, Predicate: predicate, Object: object})
}

func (d *ttlDecoder) newBlank() string {
	label := "gen" + strconv.Itoa(d.blankSeq)
	d.blankSeq++
	return label
}

// --- scanning ---

func (d *ttlDecoder) skipSpace() {
	for d.pos < len(d.src) {
		switch c := d.src[d.pos]; c {
		case ' ', '\t', '\r':
			d.pos++
		case '\n':
			d.line++
			d.pos++
		case '#':
			for d.pos < len(d.src) && d.src[d.pos] != '\n' {
				d.pos++
			}
		default:
			return
		}
	}
}

func (d *ttlDecoder) next() (ttlToken, error) {
	if d.peeked != nil {
		tok := *d.peeked
		d.peeked = nil
		return tok, nil
	}
	return d.scan()
}

func (d *ttlDecoder) peek() (ttlToken, error) {
	if d.peeked == nil {
		tok, err := d.scan()
		if err != nil {
			return ttlToken{}, err
		}
		d.peeked = &tok
	}
	return *d.peeked, nil
}

func (d *ttlDecoder) scan() (ttlToken, error) {
	d.skipSpace()
	if d.pos >= len(d.src) {
		return ttlToken{kind: tokEOF, line: d.line}, nil
	}
	line := d.line
	switch c := d.src[d.pos]; c {
	case '<':
		return d.scanIRI(line)
	case '"', '\'':
		return d.scanString(line, c)
	case '@':
		d.pos++
		word := d.scanWord()
		if word == "prefix" || word == "base" {
			return ttlToken{kind: tokAt, val: word, line: line}, nil
		}
		return ttlToken{kind: tokLangTag, val: word, line: line}, nil
	case '^':
		if strings.HasPrefix(d.src[d.pos:], "^^") {
			d.pos += 2
			return ttlToken{kind: tokCaretCaret, val: "^^", line: line}, nil
		}
		return ttlToken{}, parseErrorf(d.file, line, "unexpected character %q", c)
	case '.':
		d.pos++
		return ttlToken{kind: tokDot, val: ".", line: line}, nil
	case ';':
		d.pos++
		return ttlToken{kind: tokSemicolon, val: ";", line: line}, nil
	case ',':
		d.pos++
		return ttlToken{kind: tokComma, val: ",", line: line}, nil
	case '[':
		d.pos++
		return ttlToken{kind: tokLBracket, val: "[", line: line}, nil
	case ']':
		d.pos++
		return ttlToken{kind: tokRBracket, val: "]", line: line}, nil
	case '(':
		d.pos++
		return ttlToken{kind: tokLParen, val: "(", line: line}, nil
	case ')':
		d.pos++
		return ttlToken{kind: tokRParen, val: ")", line: line}, nil
	}

	if strings.HasPrefix(d.src[d.pos:], "_:") {
		d.pos += 2
		label := d.scanWord()
		if label == "" {
			return ttlToken{}, parseErrorf(d.file, line, "blank node label missing after _:")
		}
		return ttlToken{kind: tokBlank, val: label, line: line}, nil
	}

	word := d.scanBare()
	if word == "" {
		return ttlToken{}, parseErrorf(d.file, line, "unexpected character %q", d.src[d.pos])
	}
	if strings.Contains(word, ":") {
		return ttlToken{kind: tokPName, val: word, line: line}, nil
	}
	return ttlToken{kind: tokBare, val: word, line: line}, nil
}

func (d *ttlDecoder) scanIRI(line int) (ttlToken, error) {
	d.pos++
	start := d.pos
	for d.pos < len(d.src) {
		switch d.src[d.pos] {
		case '>':
			val := d.src[start:d.pos]
			d.pos++
			return ttlToken{kind: tokIRI, val: val, line: line}, nil
		case '\n':
			return ttlToken{}, parseErrorf(d.file, line, "unterminated IRI")
		}
		d.pos++
	}
	return ttlToken{}, parseErrorf(d.file, line, "unterminated IRI")
}

func (d *ttlDecoder) scanString(line int, quote byte) (ttlToken, error) {
	delim := string(quote)
	long := strings.HasPrefix(d.src[d.pos:], strings.Repeat(delim, 3))
	if long {
		d.pos += 3
	} else {
		d.pos++
	}
	var b strings.Builder
	for d.pos < len(d.src) {
		c := d.src[d.pos]
		if c == '\\' {
			if err := d.scanEscape(&b, line); err != nil {
				return ttlToken{}, err
			}
			continue
		}
		if long {
			if c == quote && strings.HasPrefix(d.src[d.pos:], strings.Repeat(delim, 3)) {
				d.pos += 3
				return ttlToken{kind: tokString, val: b.String(), line: line}, nil
			}
			if c == '\n' {
				d.line++
			}
			b.WriteByte(c)
			d.pos++
			continue
		}
		if c == quote {
			d.pos++
			return ttlToken{kind: tokString, val: b.String(), line: line}, nil
		}
		if c == '\n' {
			return ttlToken{}, parseErrorf(d.file, line, "unterminated string literal")
		}
		b.WriteByte(c)
		d.pos++
	}
	return ttlToken{}, parseErrorf(d.file, line, "unterminated string literal")
}

func (d *ttlDecoder) scanEscape(b *strings.Builder, line int) error {
	if d.pos+1 >= len(d.src) {
		return parseErrorf(d.file, line, "unterminated escape sequence")
	}
	esc := d.src[d.pos+1]
	d.pos += 2
	switch esc {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case '"', '\'', '\\':
		b.WriteByte(esc)
	case 'u', 'U':
		width := 4
		if esc == 'U' {
			width = 8
		}
		if d.pos+width > len(d.src) {
			return parseErrorf(d.file, line, "truncated \\%c escape", esc)
		}
		code, err := strconv.ParseUint(d.src[d.pos:d.pos+width], 16, 32)
		if err != nil {
			return parseErrorf(d.file, line, "invalid \\%c escape", esc)
		}
		b.WriteRune(rune(code))
		d.pos += width
	default:
		return parseErrorf(d.file, line, "unknown escape sequence \\%c", esc)
	}
	return nil
}

// scanWord reads a letter/digit/hyphen run, used for @keywords,
// language tags, and blank node labels.
func (d *ttlDecoder) scanWord() string {
	start := d.pos
	for d.pos < len(d.src) {
		c := rune(d.src[d.pos])
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '-' && c != '_' {
			break
		}
		d.pos++
	}
	return d.src[start:d.pos]
}

// scanBare reads a prefixed name, keyword, or numeric token. Trailing
// dots terminate the statement rather than the token.
func (d *ttlDecoder) scanBare() string {
	start := d.pos
	for d.pos < len(d.src) {
		c := d.src[d.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '#' ||
			c == ';' || c == ',' || c == '<' || c == '"' || c == '\'' ||
			c == '[' || c == ']' || c == '(' || c == ')' || c == '^' {
			break
		}
		d.pos++
	}
	word := d.src[start:d.pos]
	for strings.HasSuffix(word, ".") {
		word = word[:len(word)-1]
		d.pos--
	}
	return word
}

// --- parsing ---

func (d *ttlDecoder) parseStatement() error {
	tok, err := d.peek()
	if err != nil {
		return err
	}
	if tok.kind == tokAt {
		return d.parseDirective(true)
	}
	if tok.kind == tokBare && (strings.EqualFold(tok.val, "prefix") || strings.EqualFold(tok.val, "base")) {
		return d.parseDirective(false)
	}
	subject, err := d.parseSubject()
	if err != nil {
		return err
	}
	if err := d.parsePredicateObjects(subject); err != nil {
		return err
	}
	return d.expect(tokDot, "'.'")
}

// parseDirective handles @prefix/@base and the dot-less SPARQL
// PREFIX/BASE spellings.
func (d *ttlDecoder) parseDirective(dotted bool) error {
	kw, err := d.next()
	if err != nil {
		return err
	}
	switch strings.ToLower(kw.val) {
	case "prefix":
		name, err := d.next()
		if err != nil {
			return err
		}
		if name.kind != tokPName || !strings.HasSuffix(name.val, ":") {
			return parseErrorf(d.file, name.line, "prefix directive expects a name ending in ':', got %s", tokDesc(name))
		}
		iri, err := d.next()
		if err != nil {
			return err
		}
		if iri.kind != tokIRI {
			return parseErrorf(d.file, iri.line, "prefix directive expects an IRI, got %s", tokDesc(iri))
		}
		d.prefixes[strings.TrimSuffix(name.val, ":")] = d.resolveIRI(iri.val)
	case "base":
		iri, err := d.next()
		if err != nil {
			return err
		}
		if iri.kind != tokIRI {
			return parseErrorf(d.file, iri.line, "base directive expects an IRI, got %s", tokDesc(iri))
		}
		d.base = d.resolveIRI(iri.val)
	default:
		return parseErrorf(d.file, kw.line, "unknown directive @%s", kw.val)
	}
	if dotted {
		return d.expect(tokDot, "'.'")
	}
	return nil
}

func (d *ttlDecoder) parseSubject() (string, error) {
	tok, err := d.next()
	if err != nil {
		return "", err
	}
	switch tok.kind {
	case tokIRI:
		return d.resolveIRI(tok.val), nil
	case tokPName:
		return d.expandPName(tok)
	case tokBlank:
		return graph.BlankPrefix + tok.val, nil
	case tokLBracket:
		label := d.newBlank()
		peeked, err := d.peek()
		if err != nil {
			return "", err
		}
		if peeked.kind == tokRBracket {
			d.next()
			return graph.BlankPrefix + label, nil
		}
		if err := d.parsePredicateObjects(graph.BlankPrefix + label); err != nil {
			return "", err
		}
		if err := d.expect(tokRBracket, "']'"); err != nil {
			return "", err
		}
		return graph.BlankPrefix + label, nil
	default:
		return "", parseErrorf(d.file, tok.line, "expected subject, got %s", tokDesc(tok))
	}
}

func (d *ttlDecoder) parsePredicateObjects(subject string) error {
	for {
		verb, err := d.parseVerb()
		if err != nil {
			return err
		}
		if err := d.parseObjectList(subject, verb); err != nil {
			return err
		}
		tok, err := d.peek()
		if err != nil {
			return err
		}
		if tok.kind != tokSemicolon {
			return nil
		}
		for tok.kind == tokSemicolon {
			d.next()
			if tok, err = d.peek(); err != nil {
				return err
			}
		}
		// trailing ';' before the statement terminator
		if tok.kind == tokDot || tok.kind == tokRBracket {
			return nil
		}
	}
}

func (d *ttlDecoder) parseVerb() (string, error) {
	tok, err := d.next()
	if err != nil {
		return "", err
	}
	switch {
	case tok.kind == tokIRI:
		return d.resolveIRI(tok.val), nil
	case tok.kind == tokPName:
		return d.expandPName(tok)
	case tok.kind == tokBare && tok.val == "a":
		return rdfType, nil
	default:
		return "", parseErrorf(d.file, tok.line, "expected predicate, got %s", tokDesc(tok))
	}
}

func (d *ttlDecoder) parseObjectList(subject, predicate string) error {
	for {
		obj, err := d.parseObjectTerm()
		if err != nil {
			return err
		}
		d.emit(subject, predicate, obj)
		tok, err := d.peek()
		if err != nil {
			return err
		}
		if tok.kind != tokComma {
			return nil
		}
		d.next()
	}
}

func (d *ttlDecoder) parseObjectTerm() (graph.Object, error) {
	tok, err := d.next()
	if err != nil {
		return graph.Object{}, err
	}
	switch tok.kind {
	case tokIRI:
		return graph.NewIRI(d.resolveIRI(tok.val)), nil
	case tokPName:
		iri, err := d.expandPName(tok)
		if err != nil {
			return graph.Object{}, err
		}
		return graph.NewIRI(iri), nil
	case tokBlank:
		return graph.NewBlank(tok.val), nil
	case tokString:
		return d.parseLiteralTail(tok)
	case tokBare:
		return d.parseBareObject(tok)
	case tokLBracket:
		label := d.newBlank()
		peeked, err := d.peek()
		if err != nil {
			return graph.Object{}, err
		}
		if peeked.kind == tokRBracket {
			d.next()
			return graph.NewBlank(label), nil
		}
		if err := d.parsePredicateObjects(graph.BlankPrefix + label); err != nil {
			return graph.Object{}, err
		}
		if err := d.expect(tokRBracket, "']'"); err != nil {
			return graph.Object{}, err
		}
		return graph.NewBlank(label), nil
	case tokLParen:
		return d.parseCollection()
	default:
		return graph.Object{}, parseErrorf(d.file, tok.line, "expected object, got %s", tokDesc(tok))
	}
}

func (d *ttlDecoder) parseLiteralTail(str ttlToken) (graph.Object, error) {
	tok, err := d.peek()
	if err != nil {
		return graph.Object{}, err
	}
	switch tok.kind {
	case tokLangTag:
		d.next()
		return graph.NewLangLiteral(str.val, tok.val), nil
	case tokCaretCaret:
		d.next()
		dt, err := d.next()
		if err != nil {
			return graph.Object{}, err
		}
		switch dt.kind {
		case tokIRI:
			return graph.NewTypedLiteral(str.val, d.resolveIRI(dt.val)), nil
		case tokPName:
			iri, err := d.expandPName(dt)
			if err != nil {
				return graph.Object{}, err
			}
			return graph.NewTypedLiteral(str.val, iri), nil
		default:
			return graph.Object{}, parseErrorf(d.file, dt.line, "expected datatype after ^^, got %s", tokDesc(dt))
		}
	default:
		return graph.NewLiteral(str.val), nil
	}
}

func (d *ttlDecoder) parseBareObject(tok ttlToken) (graph.Object, error) {
	switch {
	case tok.val == "true" || tok.val == "false":
		return graph.NewTypedLiteral(tok.val, xsdBoolean), nil
	case isInteger(tok.val):
		return graph.NewTypedLiteral(tok.val, xsdInteger), nil
	case isFloat(tok.val):
		if strings.ContainsAny(tok.val, "eE") {
			return graph.NewTypedLiteral(tok.val, xsdDouble), nil
		}
		return graph.NewTypedLiteral(tok.val, xsdDecimal), nil
	default:
		return graph.Object{}, parseErrorf(d.file, tok.line, "expected object, got %s", tokDesc(tok))
	}
}

// parseCollection turns "( a b c )" into an rdf:first/rdf:rest chain
// and returns its head. The open paren is already consumed.
func (d *ttlDecoder) parseCollection() (graph.Object, error) {
	var items []graph.Object
	for {
		tok, err := d.peek()
		if err != nil {
			return graph.Object{}, err
		}
		if tok.kind == tokRParen {
			d.next()
			break
		}
		if tok.kind == tokEOF {
			return graph.Object{}, parseErrorf(d.file, tok.line, "unterminated collection")
		}
		obj, err := d.parseObjectTerm()
		if err != nil {
			return graph.Object{}, err
		}
		items = append(items, obj)
	}
	if len(items) == 0 {
		return graph.NewIRI(rdfNil), nil
	}
	head := d.newBlank()
	node := head
	for i, item := range items {
		d.emit(graph.BlankPrefix+node, rdfFirst, item)
		if i == len(items)-1 {
			d.emit(graph.BlankPrefix+node, rdfRest, graph.NewIRI(rdfNil))
			break
		}
		next := d.newBlank()
		d.emit(graph.BlankPrefix+node, rdfRest, graph.NewBlank(next))
		node = next
	}
	return graph.NewBlank(head), nil
}

func (d *ttlDecoder) expandPName(tok ttlToken) (string, error) {
	i := strings.Index(tok.val, ":")
	ns, ok := d.prefixes[tok.val[:i]]
	if !ok {
		return "", parseErrorf(d.file, tok.line, "undeclared prefix %q", tok.val[:i])
	}
	return ns + tok.val[i+1:], nil
}

func (d *ttlDecoder) resolveIRI(iri string) string {
	if d.base == "" || isAbsoluteIRI(iri) {
		return iri
	}
	return d.base + iri
}

func (d *ttlDecoder) expect(kind ttlTokenKind, what string) error {
	tok, err := d.next()
	if err != nil {
		return err
	}
	if tok.kind != kind {
		return parseErrorf(d.file, tok.line, "expected %s, got %s", what, tokDesc(tok))
	}
	return nil
}

func isAbsoluteIRI(iri string) bool {
	i := strings.Index(iri, ":")
	if i <= 0 {
		return false
	}
	for _, r := range iri[:i] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '-' && r != '.' {
			return false
		}
	}
	return true
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isFloat(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
