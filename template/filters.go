package template

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"unicode"
)

// Filter is a template filter function. Arguments arrive as strings
// in pipeline order, so `{{ "x" | replace "a" "b" }}` calls
// replace("a", "b", "x").
type Filter func(args ...string) (string, error)

// FilterRegistry holds named filters. Build and register before
// rendering starts; FuncMap materialization is read-only.
type FilterRegistry struct {
	filters map[string]Filter
}

func NewFilterRegistry() *FilterRegistry {
	return &FilterRegistry{filters: make(map[string]Filter)}
}

// Register adds a filter. Redefining a name is an error.
func (r *FilterRegistry) Register(name string, f Filter) error {
	if f == nil {
		return fmt.Errorf("filter %q is nil", name)
	}
	if _, exists := r.filters[name]; exists {
		return fmt.Errorf("filter %q already registered", name)
	}
	r.filters[name] = f
	return nil
}

// MustRegister is Register for init-time wiring.
func (r *FilterRegistry) MustRegister(name string, f Filter) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Names returns the registered filter names, sorted.
func (r *FilterRegistry) Names() []string {
	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FuncMap materializes filters as template functions. A non-empty
// allowlist restricts the template to those names; a filter outside
// the list is simply undefined for it.
func (r *FilterRegistry) FuncMap(allowed []string) template.FuncMap {
	fm := make(template.FuncMap, len(r.filters))
	if len(allowed) == 0 {
		for name, f := range r.filters {
			fm[name] = f
		}
		return fm
	}
	for _, name := range allowed {
		if f, ok := r.filters[name]; ok {
			fm[name] = f
		}
	}
	return fm
}

// DefaultFilters returns the built-in filter set: case conversions,
// IRI helpers, and small string utilities.
func DefaultFilters() *FilterRegistry {
	r := NewFilterRegistry()
	r.MustRegister("upper", unary("upper", strings.ToUpper))
	r.MustRegister("lower", unary("lower", strings.ToLower))
	r.MustRegister("title", unary("title", titleCase))
	r.MustRegister("trim", unary("trim", strings.TrimSpace))
	r.MustRegister("quote", unary("quote", strconv.Quote))
	r.MustRegister("localname", unary("localname", localName))
	r.MustRegister("snake", unary("snake", func(s string) string {
		return strings.Join(splitWords(s), "_")
	}))
	r.MustRegister("kebab", unary("kebab", func(s string) string {
		return strings.Join(splitWords(s), "-")
	}))
	r.MustRegister("camel", unary("camel", camelCase))
	r.MustRegister("pascal", unary("pascal", pascalCase))
	r.MustRegister("replace", func(args ...string) (string, error) {
		if len(args) != 3 {
			return "", fmt.Errorf("replace: expected old, new, value; got %d argument(s)", len(args))
		}
		return strings.ReplaceAll(args[2], args[0], args[1]), nil
	})
	r.MustRegister("join", func(args ...string) (string, error) {
		if len(args) < 1 {
			return "", fmt.Errorf("join: expected a separator")
		}
		return strings.Join(args[1:], args[0]), nil
	})
	r.MustRegister("indent", func(args ...string) (string, error) {
		if len(args) != 2 {
			return "", fmt.Errorf("indent: expected width, value; got %d argument(s)", len(args))
		}
		width, err := strconv.Atoi(args[0])
		if err != nil {
			return "", fmt.Errorf("indent: %w", err)
		}
		pad := strings.Repeat(" ", width)
		lines := strings.Split(args[1], "\n")
		for i, line := range lines {
			if line != "" {
				lines[i] = pad + line
			}
		}
		return strings.Join(lines, "\n"), nil
	})
	r.MustRegister("default", func(args ...string) (string, error) {
		if len(args) != 2 {
			return "", fmt.Errorf("default: expected fallback, value; got %d argument(s)", len(args))
		}
		if args[1] == "" {
			return args[0], nil
		}
		return args[1], nil
	})
	return r
}

func unary(name string, f func(string) string) Filter {
	return func(args ...string) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%s: expected 1 argument, got %d", name, len(args))
		}
		return f(args[0]), nil
	}
}

// localName returns the fragment or last path segment of an IRI, or
// the part after the prefix of a CURIE.
func localName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 && i+1 < len(iri) {
		return iri[i+1:]
	}
	if i := strings.LastIndex(iri, ":"); i >= 0 && i+1 < len(iri) {
		return iri[i+1:]
	}
	return iri
}

// splitWords breaks an identifier in any common casing into lowercase
// words: "HTTPServer", "http_server", and "http-server" all yield
// ["http", "server"].
func splitWords(s string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.' || r == '/':
			flush()
		case unicode.IsUpper(r):
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				flush()
			} else if i > 0 && i+1 < len(runes) && unicode.IsUpper(runes[i-1]) && unicode.IsLower(runes[i+1]) {
				flush()
			}
			cur.WriteRune(unicode.ToLower(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	runes := []rune(word)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func titleCase(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func camelCase(s string) string {
	words := splitWords(s)
	for i := 1; i < len(words); i++ {
		words[i] = capitalize(words[i])
	}
	return strings.Join(words, "")
}

func pascalCase(s string) string {
	words := splitWords(s)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, "")
}
